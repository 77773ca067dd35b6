package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common errors for models.
var (
	// ErrNoAddons indicates the user data configures no enabled addons.
	ErrNoAddons = errors.New("no enabled addons configured")

	// ErrInvalidMediaType indicates a request type other than movie, series or anime.
	ErrInvalidMediaType = errors.New("invalid media type: must be 'movie', 'series' or 'anime'")

	// ErrMediaIDRequired indicates an empty media id.
	ErrMediaIDRequired = errors.New("media id is required")

	// ErrUnsupportedMediaID indicates a media id whose prefix is not understood.
	ErrUnsupportedMediaID = errors.New("unsupported media id")

	// ErrAddonIDRequired indicates an addon without an instance id.
	ErrAddonIDRequired = errors.New("addon instanceId is required")

	// ErrManifestURLRequired indicates an addon without a manifest url.
	ErrManifestURLRequired = errors.New("addon manifestUrl is required")
)

func invalid(field, format string, args ...any) error {
	return ErrValidation{Field: field, Message: fmt.Sprintf(format, args...)}
}
