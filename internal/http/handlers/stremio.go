package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/streamfold/internal/addon"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/observability"
)

// ManifestID is the addon id advertised in the Stremio manifest.
const ManifestID = "com.jmylchreest.streamfold"

// errBadConfig is returned when the path config segment cannot be decoded.
var errBadConfig = errors.New("invalid addon configuration")

// StremioHandler serves the Stremio addon protocol. User data travels in the
// path as base64url-encoded JSON.
type StremioHandler struct {
	service StreamService
	version string
}

// NewStremioHandler creates a new Stremio protocol handler.
func NewStremioHandler(svc StreamService, version string) *StremioHandler {
	return &StremioHandler{service: svc, version: version}
}

// RegisterChiRoutes registers the addon routes. These bypass huma because
// Stremio clients expect the bare addon response shape.
func (h *StremioHandler) RegisterChiRoutes(r chi.Router) {
	r.Get("/stremio/{config}/manifest.json", h.serveManifest)
	r.Get("/stremio/{config}/stream/{type}/{id}.json", h.serveStreams)
}

// Manifest is the Stremio addon manifest.
type Manifest struct {
	ID            string                `json:"id"`
	Version       string                `json:"version"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Resources     []string              `json:"resources"`
	Types         []string              `json:"types"`
	Catalogs      []any                 `json:"catalogs"`
	IDPrefixes    []string              `json:"idPrefixes"`
	BehaviorHints ManifestBehaviorHints `json:"behaviorHints"`
}

// ManifestBehaviorHints are the manifest-level hints.
type ManifestBehaviorHints struct {
	Configurable bool `json:"configurable"`
}

// StremioStream is a stream in the Stremio addon response format.
type StremioStream struct {
	Name          string              `json:"name,omitempty"`
	Description   string              `json:"description,omitempty"`
	URL           string              `json:"url,omitempty"`
	InfoHash      string              `json:"infoHash,omitempty"`
	FileIdx       *int                `json:"fileIdx,omitempty"`
	ExternalURL   string              `json:"externalUrl,omitempty"`
	YtID          string              `json:"ytId,omitempty"`
	Sources       []string            `json:"sources,omitempty"`
	BehaviorHints StreamBehaviorHints `json:"behaviorHints"`
}

// StreamBehaviorHints are the per-stream hints.
type StreamBehaviorHints struct {
	Filename    string `json:"filename,omitempty"`
	VideoSize   int64  `json:"videoSize,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
	NotWebReady bool   `json:"notWebReady,omitempty"`
}

type stremioStreamsResponse struct {
	Streams []StremioStream `json:"streams"`
}

func (h *StremioHandler) serveManifest(w http.ResponseWriter, r *http.Request) {
	if _, err := DecodeUserData(chi.URLParam(r, "config")); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, Manifest{
		ID:          ManifestID,
		Version:     h.version,
		Name:        "streamfold",
		Description: "Aggregates, filters, deduplicates and ranks streams from your addons",
		Resources:   []string{"stream"},
		Types:       []string{models.MediaTypeMovie, models.MediaTypeSeries, models.MediaTypeAnime},
		Catalogs:    []any{},
		IDPrefixes:  []string{"tt", "tmdb:", "tvdb:", "kitsu:", "mal:", "anilist:", "anidb:"},
		BehaviorHints: ManifestBehaviorHints{
			Configurable: true,
		},
	})
}

func (h *StremioHandler) serveStreams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	ud, err := DecodeUserData(chi.URLParam(r, "config"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	mediaType := chi.URLParam(r, "type")
	mediaID := chi.URLParam(r, "id")

	resp, err := h.service.GetStreams(ctx, mediaType, mediaID, ud)
	if err != nil {
		if isRequestError(err) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.ErrorContext(ctx, "stremio stream request failed",
			slog.String("media_type", mediaType),
			slog.String("media_id", mediaID),
			slog.String("error", err.Error()),
		)
		// Stremio shows nothing for non-200 responses, so the failure is
		// reported as a stream.
		writeJSON(w, http.StatusOK, stremioStreamsResponse{Streams: []StremioStream{
			errorStream(models.StreamError{Title: "streamfold", Description: err.Error()}),
		}})
		return
	}

	out := stremioStreamsResponse{Streams: make([]StremioStream, 0, len(resp.Streams)+len(resp.Errors))}
	for _, s := range resp.Streams {
		out.Streams = append(out.Streams, ToStremioStream(s))
	}
	for _, e := range resp.Errors {
		out.Streams = append(out.Streams, errorStream(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// DecodeUserData decodes a base64url JSON user data path segment. Padded
// and standard alphabets are accepted too.
func DecodeUserData(raw string) (*models.UserData, error) {
	if raw == "" {
		return nil, errBadConfig
	}

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if data, err = enc.DecodeString(raw); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadConfig, err)
	}

	var ud models.UserData
	if err := json.Unmarshal(data, &ud); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadConfig, err)
	}
	return &ud, nil
}

// EncodeUserData encodes user data for use as a path segment.
func EncodeUserData(ud *models.UserData) (string, error) {
	data, err := json.Marshal(ud)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ToStremioStream renders a parsed stream in the Stremio response format.
func ToStremioStream(s *models.ParsedStream) StremioStream {
	out := StremioStream{
		Name:        streamName(s),
		Description: streamDescription(s),
		FileIdx:     s.FileIndex,
		BehaviorHints: StreamBehaviorHints{
			Filename:   s.Filename,
			VideoSize:  s.Size,
			BingeGroup: bingeGroup(s),
		},
	}
	if s.Torrent != nil {
		out.Sources = s.Torrent.Sources
	}

	switch s.Type {
	case models.StreamTypeP2P:
		out.InfoHash = s.InfoHash
	case models.StreamTypeYouTube:
		out.YtID = s.URL
	case models.StreamTypeExternal:
		out.ExternalURL = s.URL
	default:
		out.URL = s.URL
		if out.URL == "" {
			out.InfoHash = s.InfoHash
		}
	}
	return out
}

func streamName(s *models.ParsedStream) string {
	var b strings.Builder
	if s.Service != nil {
		marker := "⏳"
		if s.Service.Cached {
			marker = "+"
		}
		fmt.Fprintf(&b, "[%s%s] ", addon.ServiceCode(s.Service.ID), marker)
	} else if s.Type == models.StreamTypeP2P {
		b.WriteString("[P2P] ")
	}
	b.WriteString(s.Addon.Name)
	if res := s.File().Resolution; res != "" {
		b.WriteString("\n" + res)
	}
	return b.String()
}

func streamDescription(s *models.ParsedStream) string {
	f := s.File()
	var lines []string

	var head []string
	if f.Quality != "" {
		head = append(head, f.Quality)
	}
	if f.Encode != "" {
		head = append(head, f.Encode)
	}
	head = append(head, f.VisualTags...)
	if len(head) > 0 {
		lines = append(lines, "🎥 "+strings.Join(head, " "))
	}

	var audio []string
	audio = append(audio, f.AudioTags...)
	audio = append(audio, f.AudioChannels...)
	if len(audio) > 0 {
		lines = append(lines, "🎧 "+strings.Join(audio, " "))
	}

	var info []string
	if s.Size > 0 {
		info = append(info, "📦 "+humanize.IBytes(uint64(s.Size)))
	}
	if seeders, ok := s.Seeders(); ok {
		info = append(info, fmt.Sprintf("👤 %d", seeders))
	}
	if s.Indexer != "" {
		info = append(info, "🔍 "+s.Indexer)
	}
	if len(info) > 0 {
		lines = append(lines, strings.Join(info, " "))
	}

	if len(f.Languages) > 0 {
		lines = append(lines, "🌐 "+strings.Join(f.Languages, " | "))
	}
	if f.ReleaseGroup != "" {
		lines = append(lines, "🏷️ "+f.ReleaseGroup)
	}
	if s.Filename != "" {
		lines = append(lines, "📄 "+s.Filename)
	}
	if len(lines) == 0 {
		return s.Description
	}
	return strings.Join(lines, "\n")
}

func bingeGroup(s *models.ParsedStream) string {
	f := s.File()
	parts := []string{"streamfold", s.Addon.InstanceID, s.ServiceID()}
	if f.Resolution != "" {
		parts = append(parts, f.Resolution)
	}
	if f.Quality != "" {
		parts = append(parts, f.Quality)
	}
	return strings.Join(parts, "|")
}

func errorStream(e models.StreamError) StremioStream {
	return StremioStream{
		Name:        "[❌] " + e.Title,
		Description: e.Description,
		ExternalURL: "stremio:///",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response in JSON format for consistency with API clients.
func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
