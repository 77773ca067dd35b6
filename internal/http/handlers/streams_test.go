package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/service"
	"github.com/jmylchreest/streamfold/internal/testutil"
)

type fakeStreamService struct {
	resp *service.StreamsResponse
	err  error

	gotType string
	gotID   string
	gotUD   *models.UserData
}

func (f *fakeStreamService) GetStreams(_ context.Context, mediaType, mediaID string, ud *models.UserData) (*service.StreamsResponse, error) {
	f.gotType, f.gotID, f.gotUD = mediaType, mediaID, ud
	return f.resp, f.err
}

func (f *fakeStreamService) Validate(mediaType, mediaID string, ud *models.UserData) error {
	f.gotType, f.gotID, f.gotUD = mediaType, mediaID, ud
	return f.err
}

func newTestRouter(t *testing.T, svc StreamService) *chi.Mux {
	t.Helper()
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("streamfold test", "test"))
	NewStreamHandler(svc).Register(api)
	NewExpressionHandler(expression.NewEngine(expression.WithTimeout(time.Second))).Register(api)
	NewStremioHandler(svc, "test").RegisterChiRoutes(router)
	return router
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStreamHandler_GetStreams(t *testing.T) {
	svc := &fakeStreamService{resp: &service.StreamsResponse{
		RequestID: models.NewULID(),
		Streams:   []*models.ParsedStream{testutil.CachedStream("a", "realdebrid")},
		Errors:    []models.StreamError{},
	}}
	router := newTestRouter(t, svc)

	body := `{"type":"movie","id":"tt0245429","userData":{"addons":[{"instanceId":"a","name":"A","manifestUrl":"https://a.example.com/manifest.json"}]}}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/streams", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "movie", svc.gotType)
	assert.Equal(t, "tt0245429", svc.gotID)
	require.NotNil(t, svc.gotUD)
	require.Len(t, svc.gotUD.Addons, 1)

	var got service.StreamsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, "a", got.Streams[0].ID)
}

func TestStreamHandler_GetStreamsErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{
			name:       "malformed body",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid media type",
			body:       `{"type":"podcast","id":"tt1"}`,
			err:        models.ErrInvalidMediaType,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid user data",
			body:       `{"type":"movie","id":"tt1"}`,
			err:        service.ErrInvalidUserData,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "stage failure",
			body:       `{"type":"movie","id":"tt1","userData":{"addons":[]}}`,
			err:        core.NewStageError("dedup", "Deduplication", errors.New("policy requires a service")),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unexpected failure",
			body:       `{"type":"movie","id":"tt1","userData":{"addons":[]}}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeStreamService{err: tt.err})
			rec := doRequest(t, router, http.MethodPost, "/api/v1/streams", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestStreamHandler_ValidateUserData(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		router := newTestRouter(t, &fakeStreamService{})
		rec := doRequest(t, router, http.MethodPost, "/api/v1/userdata/validate", `{"type":"movie","id":"tt1","userData":{"addons":[]}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Valid)
		assert.Empty(t, got.Error)
	})

	t.Run("invalid", func(t *testing.T) {
		router := newTestRouter(t, &fakeStreamService{err: service.ErrInvalidUserData})
		rec := doRequest(t, router, http.MethodPost, "/api/v1/userdata/validate", `{"type":"movie","id":"tt1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.Valid)
		assert.Contains(t, got.Error, "user data")
	})
}

func TestExpressionHandler_Validate(t *testing.T) {
	router := newTestRouter(t, &fakeStreamService{})

	tests := []struct {
		name      string
		expr      string
		wantValid bool
		wantFuncs []string
	}{
		{"valid stream expression", "slice(resolution(streams, '2160p'), 0, 5)", true, []string{"slice", "resolution"}},
		{"valid group condition", "count(previousStreams) < 5 and queryType == 'movie'", true, []string{"count"}},
		{"unknown function", "bogus(streams)", false, nil},
		{"unterminated call", "count(streams", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]string{"expression": tt.expr})
			require.NoError(t, err)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/expressions/validate", string(body))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got ValidateExpressionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantValid, got.IsValid)
			if tt.wantValid {
				assert.Empty(t, got.Errors)
				assert.ElementsMatch(t, tt.wantFuncs, got.Functions)
				return
			}
			require.Len(t, got.Errors, 1)
			assert.Equal(t, "syntax", got.Errors[0].Category)
			assert.NotNil(t, got.Errors[0].Position)
		})
	}
}

func TestExpressionHandler_Evaluate(t *testing.T) {
	router := newTestRouter(t, &fakeStreamService{})

	streams := `[
		{"id":"uhd","type":"p2p","addon":{"instanceId":"a","name":"A"},"parsedFile":{"resolution":"2160p"}},
		{"id":"hd","type":"p2p","addon":{"instanceId":"a","name":"A"},"parsedFile":{"resolution":"1080p"}}
	]`

	t.Run("stream result", func(t *testing.T) {
		body := `{"expression":"resolution(streams, '2160p')","streams":` + streams + `}`
		rec := doRequest(t, router, http.MethodPost, "/api/v1/expressions/evaluate", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got EvaluateExpressionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, expression.KindStreams.String(), got.Kind)
		assert.Equal(t, []string{"uhd"}, got.StreamIDs)
		assert.True(t, got.Truthy)
	})

	t.Run("group condition", func(t *testing.T) {
		body := `{"expression":"count(previousStreams) < 5 and queryType == 'movie'","context":{"previousStreams":` + streams + `,"queryType":"movie"}}`
		rec := doRequest(t, router, http.MethodPost, "/api/v1/expressions/evaluate", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got EvaluateExpressionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, expression.KindBool.String(), got.Kind)
		assert.Equal(t, true, got.Value)
	})

	t.Run("invalid expression", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/expressions/evaluate", `{"expression":"count("}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExpressionHandler_ListFunctions(t *testing.T) {
	router := newTestRouter(t, &fakeStreamService{})
	rec := doRequest(t, router, http.MethodGet, "/api/v1/expressions/functions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Functions []FunctionInfo `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Functions, len(expression.Functions()))
	for _, fn := range got.Functions {
		assert.NotEmpty(t, fn.Signature, fn.Name)
	}
}

func TestStremioHandler_Streams(t *testing.T) {
	cached := testutil.CachedStream("c", "realdebrid",
		testutil.WithResolution("2160p"),
		testutil.WithQuality("BluRay"),
		testutil.WithSize(4*1024*1024*1024),
		testutil.WithFilename("Film.2021.2160p.BluRay.mkv"),
	)
	cached.URL = "https://cdn.example.com/c.mkv"
	p2p := testutil.P2PStream("p", 42)

	svc := &fakeStreamService{resp: &service.StreamsResponse{
		Streams: []*models.ParsedStream{cached, p2p},
		Errors:  []models.StreamError{{Title: "Broken", Description: "timed out"}},
	}}
	router := newTestRouter(t, svc)

	config, err := EncodeUserData(&models.UserData{Addons: testutil.SampleAddons(1)})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/stremio/"+config+"/stream/series/tt0944947:1:2.json", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "series", svc.gotType)
	assert.Equal(t, "tt0944947:1:2", svc.gotID)
	require.NotNil(t, svc.gotUD)
	assert.Len(t, svc.gotUD.Addons, 1)

	var got struct {
		Streams []StremioStream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Streams, 3)

	assert.True(t, strings.HasPrefix(got.Streams[0].Name, "[RD+]"))
	assert.Equal(t, "https://cdn.example.com/c.mkv", got.Streams[0].URL)
	assert.Contains(t, got.Streams[0].Description, "4.0 GiB")
	assert.Equal(t, "Film.2021.2160p.BluRay.mkv", got.Streams[0].BehaviorHints.Filename)

	assert.Empty(t, got.Streams[1].URL)
	assert.Equal(t, p2p.InfoHash, got.Streams[1].InfoHash)
	assert.Contains(t, got.Streams[1].Description, "👤 42")

	assert.Equal(t, "[❌] Broken", got.Streams[2].Name)
	assert.Equal(t, "timed out", got.Streams[2].Description)
}

func TestStremioHandler_ServiceFailure(t *testing.T) {
	router := newTestRouter(t, &fakeStreamService{err: errors.New("boom")})
	config, err := EncodeUserData(&models.UserData{})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/stremio/"+config+"/stream/movie/tt1.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[❌] streamfold")
}

func TestStremioHandler_Manifest(t *testing.T) {
	router := newTestRouter(t, &fakeStreamService{})
	config, err := EncodeUserData(&models.UserData{})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/stremio/"+config+"/manifest.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ManifestID, got.ID)
	assert.Equal(t, []string{"stream"}, got.Resources)

	rec = doRequest(t, router, http.MethodGet, "/stremio/!!!/manifest.json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeUserData(t *testing.T) {
	ud := &models.UserData{Addons: testutil.SampleAddons(2)}
	encoded, err := EncodeUserData(ud)
	require.NoError(t, err)

	got, err := DecodeUserData(encoded)
	require.NoError(t, err)
	assert.Len(t, got.Addons, 2)

	_, err = DecodeUserData("")
	assert.ErrorIs(t, err, errBadConfig)

	_, err = DecodeUserData("bm90IGpzb24") // "not json"
	assert.ErrorIs(t, err, errBadConfig)
}
