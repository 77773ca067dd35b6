// Package service provides business logic layer services for streamfold.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/fetcher"
)

// ErrInvalidUserData wraps every user data validation failure.
var ErrInvalidUserData = errors.New("invalid user data")

// StreamsResponse is the output of one stream request.
type StreamsResponse struct {
	RequestID  models.ULID            `json:"requestId"`
	Streams    []*models.ParsedStream `json:"streams"`
	Errors     []models.StreamError   `json:"errors"`
	Statistics []models.Statistic     `json:"statistics"`
	Groups     []fetcher.GroupReport  `json:"groups,omitempty"`
}

// StreamService runs the full stream pipeline for one title.
type StreamService struct {
	fetcher *fetcher.Fetcher
	final   core.OrchestratorFactory
	engine  *expression.Engine
	logger  *slog.Logger
}

// NewStreamService creates a new stream service. The fetcher runs the
// per-group pipeline; final orders the accumulated streams.
func NewStreamService(f *fetcher.Fetcher, final core.OrchestratorFactory, engine *expression.Engine) *StreamService {
	if engine == nil {
		engine = expression.NewEngine()
	}
	return &StreamService{
		fetcher: f,
		final:   final,
		engine:  engine,
		logger:  slog.Default(),
	}
}

// NewStreamServiceFromDeps wires a fetcher and both pipeline passes from
// shared stage dependencies.
func NewStreamServiceFromDeps(client fetcher.AddonClient, deps *core.Dependencies, cfg core.Config, opts ...fetcher.Option) *StreamService {
	groups := pipeline.NewGroupFactory(deps, cfg)
	final := pipeline.NewFinalFactory(deps)
	opts = append([]fetcher.Option{fetcher.WithLogger(deps.Logger)}, opts...)
	f := fetcher.New(client, groups, deps.Engine, opts...)
	return NewStreamService(f, final, deps.Engine).WithLogger(deps.Logger)
}

// WithLogger sets the logger for the service.
func (s *StreamService) WithLogger(logger *slog.Logger) *StreamService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close releases the fetcher's worker pool.
func (s *StreamService) Close() {
	s.fetcher.Close()
}

// Validate checks the request parameters and user data, including the
// syntax of every configured expression.
func (s *StreamService) Validate(mediaType, mediaID string, ud *models.UserData) error {
	if err := models.ValidateMediaType(mediaType); err != nil {
		return err
	}
	if mediaID == "" {
		return models.ErrMediaIDRequired
	}
	if ud == nil {
		return fmt.Errorf("%w: %w", ErrInvalidUserData, core.ErrNoUserData)
	}
	if err := ud.Validate(s.engine.Check); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUserData, err)
	}
	return nil
}

// GetStreams fetches, filters, deduplicates and ranks the streams for a
// title.
func (s *StreamService) GetStreams(ctx context.Context, mediaType, mediaID string, ud *models.UserData) (*StreamsResponse, error) {
	requestID := models.NewULID()
	logger := s.logger.With(slog.String("request_id", requestID.String()))

	if err := s.Validate(mediaType, mediaID, ud); err != nil {
		return nil, err
	}

	start := time.Now()
	fetched, err := s.fetcher.Fetch(ctx, fetcher.Request{
		MediaType: mediaType,
		MediaID:   mediaID,
		UserData:  ud,
	})
	if err != nil {
		logger.ErrorContext(ctx, "stream pipeline failed",
			slog.String("media_type", mediaType),
			slog.String("media_id", mediaID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetching streams: %w", err)
	}
	fetchTime := time.Since(start)

	sortStart := time.Now()
	state := core.NewState(mediaType, mediaID, ud, fetched.Streams)
	if _, err := s.final.Create().Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("ranking streams: %w", err)
	}
	sortTime := time.Since(sortStart)

	stats := append(fetched.Statistics, state.Statistics...)
	stats = append(stats,
		models.Statistic{Title: "Fetch", Description: fmt.Sprintf("Fetched and processed %d groups in %s", completedGroups(fetched.Groups), round(fetchTime))},
		models.Statistic{Title: "Sort", Description: fmt.Sprintf("Sorted %d streams in %s", len(state.Streams), round(sortTime))},
		models.Statistic{Title: "Total", Description: fmt.Sprintf("Completed in %s", round(time.Since(start)))},
	)

	logger.InfoContext(ctx, "streams resolved",
		slog.String("media_type", mediaType),
		slog.String("media_id", mediaID),
		slog.Int("stream_count", len(state.Streams)),
		slog.Int("error_count", len(fetched.Errors)),
		slog.Duration("duration", time.Since(start)),
	)

	return &StreamsResponse{
		RequestID:  requestID,
		Streams:    state.Streams,
		Errors:     fetched.Errors,
		Statistics: stats,
		Groups:     fetched.Groups,
	}, nil
}

func completedGroups(groups []fetcher.GroupReport) int {
	n := 0
	for _, g := range groups {
		if g.State == fetcher.GroupCompleted {
			n++
		}
	}
	return n
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
