// Package addon queries Stremio-compatible addons and turns their raw stream
// objects into parsed streams.
package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/pkg/httpclient"
)

// ErrInvalidManifestURL is returned for addons whose manifest url cannot be
// turned into a stream endpoint.
var ErrInvalidManifestURL = errors.New("invalid manifest url")

const manifestSuffix = "/manifest.json"

// rawStream is a stream object as served by a Stremio addon.
type rawStream struct {
	Name          string        `json:"name"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	URL           string        `json:"url"`
	ExternalURL   string        `json:"externalUrl"`
	YtID          string        `json:"ytId"`
	InfoHash      string        `json:"infoHash"`
	FileIdx       *int          `json:"fileIdx"`
	Sources       []string      `json:"sources"`
	BehaviorHints behaviorHints `json:"behaviorHints"`
}

type behaviorHints struct {
	Filename   string `json:"filename"`
	VideoSize  int64  `json:"videoSize"`
	BingeGroup string `json:"bingeGroup"`
}

type streamResponse struct {
	Streams []rawStream `json:"streams"`
}

// Client fetches streams from addons over HTTP.
type Client struct {
	http      *httpclient.Client
	extractor *Extractor
	logger    *slog.Logger
}

// NewClient creates a new addon client.
func NewClient(http *httpclient.Client) *Client {
	if http == nil {
		http = httpclient.NewWithDefaults()
	}
	return &Client{
		http:      http,
		extractor: NewExtractor(),
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// FetchStreams requests the streams an addon offers for a title.
func (c *Client) FetchStreams(ctx context.Context, addon models.Addon, mediaType, mediaID string) ([]*models.ParsedStream, error) {
	endpoint, err := StreamURL(addon.ManifestURL, mediaType, mediaID)
	if err != nil {
		return nil, err
	}

	var resp streamResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("addon responded with status %d", statusErr.StatusCode)
		}
		return nil, err
	}

	streams := make([]*models.ParsedStream, 0, len(resp.Streams))
	for i, raw := range resp.Streams {
		streams = append(streams, c.extractor.Extract(addon, raw, i))
	}
	c.logger.DebugContext(ctx, "addon streams extracted",
		slog.String("addon", addon.Name),
		slog.Int("streams", len(streams)),
	)
	return streams, nil
}

// StreamURL derives the stream endpoint from an addon manifest url. The
// addon's own path segments keep their original escaping.
func StreamURL(manifestURL, mediaType, mediaID string) (string, error) {
	u, err := url.Parse(manifestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidManifestURL, manifestURL)
	}

	path := strings.TrimSuffix(strings.TrimSuffix(u.EscapedPath(), "/"), manifestSuffix)
	path += "/stream/" + url.PathEscape(mediaType) + "/" + url.PathEscape(mediaID) + ".json"

	host := u.Host
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	endpoint := u.Scheme + "://" + host + path
	if u.RawQuery != "" {
		endpoint += "?" + u.RawQuery
	}
	return endpoint, nil
}
