// Package metadata resolves canonical titles and release years for media ids
// from a Cinemeta-compatible catalogue.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/pkg/httpclient"
)

// ErrNotFound is returned when the catalogue has no entry for an id.
var ErrNotFound = errors.New("metadata not found")

// Default configuration values.
const (
	DefaultBaseURL   = "https://v3-cinemeta.strem.io"
	DefaultCacheSize = 2048
	DefaultCacheTTL  = 6 * time.Hour
)

// Config holds the metadata client configuration.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	CacheSize uint32        `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
	}
}

type metaResponse struct {
	Meta *struct {
		Name        string `json:"name"`
		Year        string `json:"year"`
		ReleaseInfo string `json:"releaseInfo"`
	} `json:"meta"`
}

// Cinemeta looks up metadata over HTTP. Successful lookups are cached and
// concurrent lookups for the same id share one request.
type Cinemeta struct {
	baseURL string
	http    *httpclient.Client
	cache   *freelru.SyncedLRU[string, *models.Metadata]
	group   singleflight.Group
	logger  *slog.Logger
}

// NewCinemeta creates a new Cinemeta client. A nil http client uses defaults.
func NewCinemeta(cfg Config, http *httpclient.Client) (*Cinemeta, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if http == nil {
		http = httpclient.NewWithDefaults()
	}

	cache, err := freelru.NewSynced[string, *models.Metadata](cfg.CacheSize, hashKey)
	if err != nil {
		return nil, fmt.Errorf("creating metadata cache: %w", err)
	}
	if cfg.CacheTTL > 0 {
		cache.SetLifetime(cfg.CacheTTL)
	}

	return &Cinemeta{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    http,
		cache:   cache,
		logger:  slog.Default(),
	}, nil
}

// WithLogger sets the logger for the client.
func (c *Cinemeta) WithLogger(logger *slog.Logger) *Cinemeta {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func hashKey(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// LookupMetadata returns the titles and years for a media id. Only imdb ids
// are understood; season and episode components are ignored.
func (c *Cinemeta) LookupMetadata(ctx context.Context, mediaID, mediaType string) (*models.Metadata, error) {
	id, err := models.ParseMediaID(mediaID)
	if err != nil {
		return nil, err
	}
	if id.Source != "imdb" {
		return nil, fmt.Errorf("%w: %s has no catalogue entry", models.ErrUnsupportedMediaID, mediaID)
	}

	kind := models.MediaTypeSeries
	if mediaType == models.MediaTypeMovie {
		kind = models.MediaTypeMovie
	}
	key := kind + "/" + id.BaseID()

	if meta, ok := c.cache.Get(key); ok {
		return meta, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		meta, err := c.fetch(ctx, kind, id.BaseID())
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, meta)
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "metadata resolved",
		slog.String("media_id", id.BaseID()),
		slog.Bool("shared", shared),
	)
	return v.(*models.Metadata), nil
}

func (c *Cinemeta) fetch(ctx context.Context, kind, id string) (*models.Metadata, error) {
	endpoint := c.baseURL + "/meta/" + url.PathEscape(kind) + "/" + url.PathEscape(id) + ".json"

	var resp metaResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("fetching metadata for %s: %w", id, err)
	}
	if resp.Meta == nil || resp.Meta.Name == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	meta := &models.Metadata{Titles: []string{resp.Meta.Name}}
	years := resp.Meta.ReleaseInfo
	if years == "" {
		years = resp.Meta.Year
	}
	meta.Year, meta.EndYear = parseYears(years)
	return meta, nil
}

// parseYears reads "2001", "2008-2013", "2008–2013" or an open "2019–".
func parseYears(s string) (start, end int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	from, to, _ := strings.Cut(strings.ReplaceAll(s, "–", "-"), "-")
	start, _ = strconv.Atoi(strings.TrimSpace(from))
	end, _ = strconv.Atoi(strings.TrimSpace(to))
	return start, end
}
