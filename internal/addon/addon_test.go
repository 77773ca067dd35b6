package addon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddon(manifest string) models.Addon {
	return models.Addon{InstanceID: "addon-0", Name: "StreamCast", ManifestURL: manifest}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain manifest",
			manifest: "https://addon.example.com/manifest.json",
			want:     "https://addon.example.com/stream/movie/tt0211915.json",
		},
		{
			name:     "configured path keeps escaping",
			manifest: "https://addon.example.com/eyJhIjoxfQ%3D%3D/manifest.json",
			want:     "https://addon.example.com/eyJhIjoxfQ%3D%3D/stream/movie/tt0211915.json",
		},
		{
			name:     "query preserved",
			manifest: "http://127.0.0.1:7000/manifest.json?token=abc",
			want:     "http://127.0.0.1:7000/stream/movie/tt0211915.json?token=abc",
		},
		{
			name:     "relative url",
			manifest: "/manifest.json",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StreamURL(tt.manifest, models.MediaTypeMovie, "tt0211915")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidManifestURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := StreamURL("https://addon.example.com/manifest.json", models.MediaTypeSeries, "tt0903747:1:2")
	require.NoError(t, err)
	assert.Equal(t, "https://addon.example.com/stream/series/tt0903747:1:2.json", got)
}

func TestExtract_StreamTypes(t *testing.T) {
	e := NewExtractor()
	addon := testAddon("https://addon.example.com/manifest.json")

	tests := []struct {
		name        string
		raw         rawStream
		wantType    models.StreamType
		wantService *models.Service
	}{
		{
			name:     "p2p",
			raw:      rawStream{Name: "StreamCast\n1080p", InfoHash: "ABCDEF0123456789ABCDEF0123456789ABCDEF01"},
			wantType: models.StreamTypeP2P,
		},
		{
			name:        "cached debrid",
			raw:         rawStream{Name: "[RD+] StreamCast\n2160p", URL: "https://cdn.example.com/a.mkv"},
			wantType:    models.StreamTypeDebrid,
			wantService: &models.Service{ID: "realdebrid", Cached: true},
		},
		{
			name:        "uncached debrid",
			raw:         rawStream{Name: "[EN] [TB download] StreamCast", URL: "https://cdn.example.com/b.mkv"},
			wantType:    models.StreamTypeDebrid,
			wantService: &models.Service{ID: "torbox", Cached: false},
		},
		{
			name:        "usenet",
			raw:         rawStream{Name: "[NZB+] StreamCast", URL: "https://cdn.example.com/c.mkv"},
			wantType:    models.StreamTypeUsenet,
			wantService: &models.Service{ID: "usenet", Cached: true},
		},
		{
			name:     "http",
			raw:      rawStream{Name: "StreamCast", URL: "https://cdn.example.com/d.mp4"},
			wantType: models.StreamTypeHTTP,
		},
		{
			name:     "live",
			raw:      rawStream{Name: "StreamCast", URL: "https://cdn.example.com/live/index.m3u8"},
			wantType: models.StreamTypeLive,
		},
		{
			name:     "youtube",
			raw:      rawStream{Name: "Trailer", YtID: "dQw4w9WgXcQ"},
			wantType: models.StreamTypeYouTube,
		},
		{
			name:     "external",
			raw:      rawStream{Name: "Open in app", ExternalURL: "https://example.com/watch"},
			wantType: models.StreamTypeExternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.Extract(addon, tt.raw, 3)
			require.False(t, s.IsError())
			assert.Equal(t, tt.wantType, s.Type)
			assert.Equal(t, tt.wantService, s.Service)
			assert.Equal(t, "addon-0-3", s.ID)
			assert.Equal(t, "addon-0", s.Addon.InstanceID)
		})
	}
}

func TestExtract_Details(t *testing.T) {
	raw := rawStream{
		Name:        "StreamCast\n1080p",
		Description: "Spirited.Away.2001.Collection\nSpirited.Away.2001.1080p.BluRay.x264-NOVA.mkv\n👤 42 💾 2.3 GB ⚙️ TrackerOne",
		InfoHash:    "ABCDEF0123456789ABCDEF0123456789ABCDEF01",
		FileIdx:     models.IntPtr(2),
		Sources:     []string{"tracker:udp://tracker.example.com:1337"},
		BehaviorHints: behaviorHints{
			Filename: "Spirited.Away.2001.1080p.BluRay.x264-NOVA.mkv",
		},
	}

	s := NewExtractor().Extract(testAddon("https://addon.example.com/manifest.json"), raw, 0)

	assert.Equal(t, models.StreamTypeP2P, s.Type)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", s.InfoHash)
	assert.Equal(t, 2, *s.FileIndex)
	assert.Equal(t, "Spirited.Away.2001.1080p.BluRay.x264-NOVA.mkv", s.Filename)
	assert.Equal(t, "Spirited.Away.2001.Collection", s.FolderName)
	assert.Equal(t, int64(2_300_000_000), s.Size)
	assert.Equal(t, "TrackerOne", s.Indexer)
	seeders, ok := s.Seeders()
	require.True(t, ok)
	assert.Equal(t, 42, seeders)
	assert.Equal(t, raw.Sources, s.Torrent.Sources)

	require.NotNil(t, s.ParsedFile)
	assert.Equal(t, "1080p", s.ParsedFile.Resolution)
	assert.Equal(t, "BluRay", s.ParsedFile.Quality)
	assert.Equal(t, "AVC", s.ParsedFile.Encode)
	assert.Equal(t, 2001, s.ParsedFile.Year)
}

func TestExtract_VideoSizeHintWins(t *testing.T) {
	raw := rawStream{
		Name:          "[RD+] StreamCast",
		URL:           "https://cdn.example.com/a.mkv",
		Description:   "Film.mkv\n💾 9 GB",
		BehaviorHints: behaviorHints{Filename: "Film.mkv", VideoSize: 1234},
	}

	s := NewExtractor().Extract(testAddon("https://addon.example.com/manifest.json"), raw, 0)
	assert.Equal(t, int64(1234), s.Size)
	assert.Nil(t, s.Torrent, "cached streams carry no swarm")
}

func TestExtract_ErrorStreams(t *testing.T) {
	e := NewExtractor()
	addon := testAddon("https://addon.example.com/manifest.json")

	tests := []struct {
		name string
		raw  rawStream
	}{
		{name: "nothing playable", raw: rawStream{Name: "StreamCast", Description: "Invalid API key\nCheck settings"}},
		{name: "error marker", raw: rawStream{Name: "[❌] StreamCast", URL: "https://example.com/error.mp4", Description: "Service unavailable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.Extract(addon, tt.raw, 0)
			require.True(t, s.IsError())
			assert.Equal(t, "StreamCast", s.Error.Title)
			assert.NotEmpty(t, s.Error.Description)
		})
	}
}

func TestNormalizers(t *testing.T) {
	t.Run("resolution", func(t *testing.T) {
		assert.Equal(t, "2160p", normalizeResolution("4K"))
		assert.Equal(t, "1440p", normalizeResolution("2k"))
		assert.Equal(t, "720p", normalizeResolution("720p"))
		assert.Equal(t, "", normalizeResolution("999p"))
		assert.Equal(t, "2160p", normalizeResolution(resolutionFromName("StreamCast\n4k HDR")))
	})

	t.Run("quality", func(t *testing.T) {
		tests := map[string]string{
			"BluRay":       "BluRay",
			"BDRip":        "BluRay",
			"WEB-DL":       "WEB-DL",
			"WEB":          "WEB-DL",
			"WEBRip":       "WEBRip",
			"HDRip":        "HDRip",
			"DVDRip":       "DVDRip",
			"HDTV":         "HDTV",
			"TeleSync":     "TS",
			"TeleCine":     "TC",
			"SCR":          "SCR",
			"CAM":          "CAM",
			"BluRay REMUX": "BluRay REMUX",
			"":             "",
		}
		for in, want := range tests {
			assert.Equal(t, want, normalizeQuality(in, ""), in)
		}
		assert.Equal(t, "BluRay REMUX", normalizeQuality("BluRay", "Film.2160p.BluRay.REMUX.mkv"))
	})

	t.Run("encode", func(t *testing.T) {
		assert.Equal(t, "HEVC", normalizeEncode("x265"))
		assert.Equal(t, "AVC", normalizeEncode("H264"))
		assert.Equal(t, "AV1", normalizeEncode("av1"))
		assert.Equal(t, "", normalizeEncode("mpeg2"))
	})

	t.Run("audio", func(t *testing.T) {
		assert.Equal(t, []string{"Atmos", "TrueHD"}, audioTags([]string{"Atmos", "TrueHD", "Atmos"}))
		assert.Equal(t, []string{"DD+", "DTS-HD MA"}, audioTags([]string{"DDP", "DTS Lossless", "MP3"}))
		assert.Equal(t, []string{"5.1", "2.0"}, audioChannels([]string{"5.1", "stereo", "mono"}))
	})
}

func TestServiceCode(t *testing.T) {
	assert.Equal(t, "RD", ServiceCode("realdebrid"))
	assert.Equal(t, "PKP", ServiceCode("pikpak"))
	assert.Equal(t, "NZB", ServiceCode("usenet"))
	assert.Equal(t, "SEEDR", ServiceCode("seedr"))
}

func TestClient_FetchStreams(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"streams": []map[string]any{
				{"name": "StreamCast\n1080p", "title": "Film.2001.1080p.WEB-DL.mkv\n👤 9", "infoHash": "aa"},
				{"name": "StreamCast", "title": "Rate limited"},
			},
		})
	}))
	defer server.Close()

	cfg := httpclient.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	client := NewClient(httpclient.New(cfg))

	streams, err := client.FetchStreams(context.Background(), testAddon(server.URL+"/manifest.json"), models.MediaTypeMovie, "tt0211915")
	require.NoError(t, err)

	assert.Equal(t, "/stream/movie/tt0211915.json", gotPath)
	require.Len(t, streams, 2)
	assert.Equal(t, models.StreamTypeP2P, streams[0].Type)
	seeders, ok := streams[0].Seeders()
	require.True(t, ok)
	assert.Equal(t, 9, seeders)
	assert.True(t, streams[1].IsError())
}

func TestClient_FetchStreamsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(nil)
	_, err := client.FetchStreams(context.Background(), testAddon(server.URL+"/manifest.json"), models.MediaTypeMovie, "tt0211915")
	assert.EqualError(t, err, "addon responded with status 403")
}
