// Package handlers provides HTTP API handlers for streamfold.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/observability"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/service"
)

// StreamsRequest is the body of a stream request. UserData is decoded by
// the handler so range values may use their compact list form.
type StreamsRequest struct {
	Type     string           `json:"type" doc:"Media type: movie, series or anime" example:"movie"`
	ID       string           `json:"id" doc:"Stremio content id" example:"tt0245429"`
	UserData *models.UserData `json:"userData"`
}

// GetStreamsInput is the input for the streams endpoint.
type GetStreamsInput struct {
	RawBody []byte `contentType:"application/json"`
}

// GetStreamsOutput is the output for the streams endpoint.
type GetStreamsOutput struct {
	Body *service.StreamsResponse
}

// ValidateUserDataInput is the input for the user data validation endpoint.
type ValidateUserDataInput struct {
	RawBody []byte `contentType:"application/json"`
}

// ValidateUserDataOutput is the output for the user data validation endpoint.
type ValidateUserDataOutput struct {
	Body struct {
		Valid bool   `json:"valid" doc:"Whether the request and user data are valid"`
		Error string `json:"error,omitempty" doc:"The first validation failure"`
	}
}

// StreamService resolves and validates stream requests.
type StreamService interface {
	GetStreams(ctx context.Context, mediaType, mediaID string, ud *models.UserData) (*service.StreamsResponse, error)
	Validate(mediaType, mediaID string, ud *models.UserData) error
}

// StreamHandler handles stream retrieval endpoints.
type StreamHandler struct {
	service StreamService
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc StreamService) *StreamHandler {
	return &StreamHandler{service: svc}
}

// Register registers the stream routes with the API.
func (h *StreamHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getStreams",
		Method:      http.MethodPost,
		Path:        "/api/v1/streams",
		Summary:     "Get streams",
		Description: "Queries the configured addons in groups, then filters, deduplicates and sorts the results.",
		Tags:        []string{"Streams"},
	}, h.GetStreams)

	huma.Register(api, huma.Operation{
		OperationID: "validateUserData",
		Method:      http.MethodPost,
		Path:        "/api/v1/userdata/validate",
		Summary:     "Validate user data",
		Description: "Checks a stream request without querying any addon, including the syntax of every expression.",
		Tags:        []string{"Streams"},
	}, h.ValidateUserData)
}

// GetStreams runs the stream pipeline for the requested title.
func (h *StreamHandler) GetStreams(ctx context.Context, input *GetStreamsInput) (*GetStreamsOutput, error) {
	var req StreamsRequest
	if err := json.Unmarshal(input.RawBody, &req); err != nil {
		return nil, huma.Error400BadRequest("invalid request body", err)
	}

	resp, err := h.service.GetStreams(ctx, req.Type, req.ID, req.UserData)
	if err != nil {
		return nil, streamError(ctx, err)
	}
	return &GetStreamsOutput{Body: resp}, nil
}

// ValidateUserData validates a stream request.
func (h *StreamHandler) ValidateUserData(_ context.Context, input *ValidateUserDataInput) (*ValidateUserDataOutput, error) {
	var req StreamsRequest
	if err := json.Unmarshal(input.RawBody, &req); err != nil {
		return nil, huma.Error400BadRequest("invalid request body", err)
	}

	out := &ValidateUserDataOutput{}
	if err := h.service.Validate(req.Type, req.ID, req.UserData); err != nil {
		out.Body.Error = err.Error()
		return out, nil
	}
	out.Body.Valid = true
	return out, nil
}

// streamError maps service errors onto HTTP statuses.
func streamError(ctx context.Context, err error) error {
	var stageErr *core.StageError
	switch {
	case isRequestError(err):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &stageErr):
		observability.LoggerFromContext(ctx).WarnContext(ctx, "stream pipeline failed",
			slog.String("stage", stageErr.StageName),
			slog.String("error", err.Error()),
		)
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("stream request failed", err)
	}
}

func isRequestError(err error) bool {
	var validation models.ErrValidation
	return errors.Is(err, service.ErrInvalidUserData) ||
		errors.Is(err, models.ErrInvalidMediaType) ||
		errors.Is(err, models.ErrMediaIDRequired) ||
		errors.Is(err, models.ErrUnsupportedMediaID) ||
		errors.As(err, &validation)
}
