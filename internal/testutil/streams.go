// Package testutil provides test utilities including stream builders and
// sample data generation.
package testutil

import (
	"fmt"

	"github.com/jmylchreest/streamfold/internal/models"
)

// StreamOption mutates a stream under construction.
type StreamOption func(*models.ParsedStream)

// NewStream builds a stream with the given id and type. The stream belongs to
// the default test addon unless WithAddon is used.
func NewStream(id string, typ models.StreamType, opts ...StreamOption) *models.ParsedStream {
	s := &models.ParsedStream{
		ID:   id,
		Type: typ,
		Addon: models.AddonRef{
			InstanceID: DefaultAddonID,
			Name:       DefaultAddonName,
		},
		ParsedFile: &models.ParsedFile{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// P2PStream builds a p2p stream with a seeder count and an info hash derived from the id.
func P2PStream(id string, seeders int, opts ...StreamOption) *models.ParsedStream {
	base := []StreamOption{WithSeeders(seeders), WithInfoHash(fmt.Sprintf("%040s", id))}
	return NewStream(id, models.StreamTypeP2P, append(base, opts...)...)
}

// CachedStream builds a debrid stream cached at the given service.
func CachedStream(id, service string, opts ...StreamOption) *models.ParsedStream {
	return NewStream(id, models.StreamTypeDebrid, append([]StreamOption{WithService(service, true)}, opts...)...)
}

// UncachedStream builds a debrid stream not yet cached at the given service.
func UncachedStream(id, service string, opts ...StreamOption) *models.ParsedStream {
	return NewStream(id, models.StreamTypeDebrid, append([]StreamOption{WithService(service, false)}, opts...)...)
}

// WithAddon sets the originating addon.
func WithAddon(instanceID, name string) StreamOption {
	return func(s *models.ParsedStream) {
		s.Addon.InstanceID = instanceID
		s.Addon.Name = name
	}
}

// WithForceToTop flags the originating addon as pinned.
func WithForceToTop() StreamOption {
	return func(s *models.ParsedStream) { s.Addon.ForceToTop = true }
}

// WithPassthrough flags the originating addon as bypassing filters and dedup.
func WithPassthrough() StreamOption {
	return func(s *models.ParsedStream) { s.Addon.ResultPassthrough = true }
}

// WithService attaches a provider.
func WithService(id string, cached bool) StreamOption {
	return func(s *models.ParsedStream) {
		s.Service = &models.Service{ID: id, Cached: cached}
	}
}

// WithLibrary marks the stream as owned in the provider library.
func WithLibrary() StreamOption {
	return func(s *models.ParsedStream) {
		if s.Service != nil {
			s.Service.Owned = true
		}
	}
}

// WithSeeders sets the torrent seeder count.
func WithSeeders(n int) StreamOption {
	return func(s *models.ParsedStream) {
		if s.Torrent == nil {
			s.Torrent = &models.Torrent{}
		}
		s.Torrent.Seeders = &n
	}
}

// WithInfoHash sets the torrent info hash.
func WithInfoHash(h string) StreamOption {
	return func(s *models.ParsedStream) { s.InfoHash = h }
}

// WithFilename sets the release filename.
func WithFilename(name string) StreamOption {
	return func(s *models.ParsedStream) { s.Filename = name }
}

// WithFolder sets the release folder name.
func WithFolder(name string) StreamOption {
	return func(s *models.ParsedStream) { s.FolderName = name }
}

// WithIndexer sets the indexer name.
func WithIndexer(name string) StreamOption {
	return func(s *models.ParsedStream) { s.Indexer = name }
}

// WithSize sets the size in bytes.
func WithSize(n int64) StreamOption {
	return func(s *models.ParsedStream) { s.Size = n }
}

// WithResolution sets the parsed resolution.
func WithResolution(r string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.Resolution = r }
}

// WithQuality sets the parsed quality.
func WithQuality(q string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.Quality = q }
}

// WithEncode sets the parsed encode.
func WithEncode(e string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.Encode = e }
}

// WithVisualTags sets the parsed visual tags.
func WithVisualTags(tags ...string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.VisualTags = tags }
}

// WithAudioTags sets the parsed audio tags.
func WithAudioTags(tags ...string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.AudioTags = tags }
}

// WithLanguages sets the parsed languages.
func WithLanguages(langs ...string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.Languages = langs }
}

// WithReleaseGroup sets the parsed release group.
func WithReleaseGroup(g string) StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile.ReleaseGroup = g }
}

// WithTitle sets the parsed title and year.
func WithTitle(title string, year int) StreamOption {
	return func(s *models.ParsedStream) {
		s.ParsedFile.Title = title
		s.ParsedFile.Year = year
	}
}

// WithEpisode sets the parsed season and episode sets.
func WithEpisode(seasons, episodes []int) StreamOption {
	return func(s *models.ParsedStream) {
		s.ParsedFile.Seasons = seasons
		s.ParsedFile.Episodes = episodes
	}
}

// WithoutParsedFile clears the parsed file facts.
func WithoutParsedFile() StreamOption {
	return func(s *models.ParsedStream) { s.ParsedFile = nil }
}

// IDs returns the ids of streams in order.
func IDs(streams []*models.ParsedStream) []string {
	out := make([]string, len(streams))
	for i, s := range streams {
		out[i] = s.ID
	}
	return out
}

// Clone deep-copies streams so a test can run the same input twice.
func Clone(streams []*models.ParsedStream) []*models.ParsedStream {
	out := make([]*models.ParsedStream, len(streams))
	for i, s := range streams {
		c := *s
		if s.ParsedFile != nil {
			pf := *s.ParsedFile
			c.ParsedFile = &pf
		}
		if s.Service != nil {
			svc := *s.Service
			c.Service = &svc
		}
		if s.Torrent != nil {
			t := *s.Torrent
			if t.Seeders != nil {
				n := *t.Seeders
				t.Seeders = &n
			}
			c.Torrent = &t
		}
		if s.RegexMatched != nil {
			rm := *s.RegexMatched
			c.RegexMatched = &rm
		}
		if s.StreamExpressionMatched != nil {
			idx := *s.StreamExpressionMatched
			c.StreamExpressionMatched = &idx
		}
		out[i] = &c
	}
	return out
}
