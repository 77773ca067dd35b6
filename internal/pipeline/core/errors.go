package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUserData is returned when a run starts without user configuration.
	ErrNoUserData = errors.New("no user data configured")

	// ErrNoMetadataLookup is returned by the metadata memo when title
	// matching needs metadata and no lookup was wired.
	ErrNoMetadataLookup = errors.New("no metadata lookup configured")

	// ErrInvalidConfiguration is matched by every ConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid pipeline configuration")
)

// StageError is returned by the orchestrator when a stage fails. The run is
// aborted and no later stage sees the state.
type StageError struct {
	StageID   string
	StageName string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.StageName, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the failing stage's identity.
func NewStageError(stageID, stageName string, err error) *StageError {
	return &StageError{StageID: stageID, StageName: stageName, Err: err}
}

// ConfigurationError reports an invalid pipeline Config field.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline config %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// NewConfigurationError creates a ConfigurationError for field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}
