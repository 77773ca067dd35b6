// Package core provides the pipeline orchestration framework.
package core

import (
	"context"
	"time"

	"github.com/jmylchreest/streamfold/internal/models"
)

// Stage represents a single step in the stream post-processing pipeline.
// Each stage reads the streams held in State and replaces or annotates them.
type Stage interface {
	// ID returns a unique identifier for the stage (e.g., "filtering").
	ID() string

	// Name returns a human-readable name for the stage (e.g., "Filtering").
	Name() string

	// Execute performs the stage's work.
	Execute(ctx context.Context, state *State) (*StageResult, error)

	// Cleanup performs any necessary cleanup after execution.
	// Called regardless of success or failure.
	Cleanup(ctx context.Context) error
}

// MetadataLookup resolves canonical titles for a media id.
type MetadataLookup interface {
	LookupMetadata(ctx context.Context, mediaID, mediaType string) (*models.Metadata, error)
}

// State holds all data shared between pipeline stages for one pass.
type State struct {
	// MediaType is movie, series or anime.
	MediaType string

	// MediaID is the requested Stremio id, including season and episode.
	MediaID string

	// UserData is the read-only user configuration.
	UserData *models.UserData

	// Streams holds the streams being processed.
	Streams []*models.ParsedStream

	// Metadata resolves titles for title matching. May be nil.
	Metadata MetadataLookup

	// StartTime records when pipeline execution began.
	StartTime time.Time

	// Errors collects non-fatal errors during execution.
	Errors []error

	// Statistics collects informational entries reported by stages.
	Statistics []models.Statistic
}

// NewState creates a new pipeline state for one pass over streams.
func NewState(mediaType, mediaID string, userData *models.UserData, streams []*models.ParsedStream) *State {
	return &State{
		MediaType:  mediaType,
		MediaID:    mediaID,
		UserData:   userData,
		Streams:    streams,
		StartTime:  time.Now(),
		Errors:     make([]error, 0),
		Statistics: make([]models.Statistic, 0),
	}
}

// AddError adds a non-fatal error to the state.
func (s *State) AddError(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// HasErrors returns true if any non-fatal errors were recorded.
func (s *State) HasErrors() bool {
	return len(s.Errors) > 0
}

// AddStatistics appends informational entries.
func (s *State) AddStatistics(stats ...models.Statistic) {
	s.Statistics = append(s.Statistics, stats...)
}

// Duration returns the elapsed time since pipeline start.
func (s *State) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// StageResult contains the outcome of a stage execution.
type StageResult struct {
	// RecordsProcessed is the count of streams the stage received.
	RecordsProcessed int

	// RecordsRemoved is the count of streams the stage dropped.
	RecordsRemoved int

	// RecordsModified is the count of streams the stage annotated.
	RecordsModified int

	// Duration is the execution time.
	Duration time.Duration

	// Message is an optional summary message.
	Message string
}

// Result represents the outcome of pipeline execution.
type Result struct {
	// Success indicates if the pipeline completed without fatal errors.
	Success bool

	// StreamCount is the number of streams left in State.
	StreamCount int

	// Duration is the total execution time.
	Duration time.Duration

	// StageResults contains results from each stage.
	StageResults map[string]*StageResult

	// Errors contains any errors that occurred.
	Errors []error
}
