package models

import (
	"slices"
	"strings"
)

// StreamType classifies where a stream comes from and how it is played.
type StreamType string

// Stream types.
const (
	StreamTypeDebrid   StreamType = "debrid"
	StreamTypeUsenet   StreamType = "usenet"
	StreamTypeP2P      StreamType = "p2p"
	StreamTypeHTTP     StreamType = "http"
	StreamTypeLive     StreamType = "live"
	StreamTypeYouTube  StreamType = "youtube"
	StreamTypeExternal StreamType = "external"
)

// StreamTypes lists every valid stream type in display order.
var StreamTypes = []StreamType{
	StreamTypeDebrid,
	StreamTypeUsenet,
	StreamTypeP2P,
	StreamTypeHTTP,
	StreamTypeLive,
	StreamTypeYouTube,
	StreamTypeExternal,
}

// IsValid reports whether t is one of the known stream types.
func (t StreamType) IsValid() bool {
	return slices.Contains(StreamTypes, t)
}

// ParsedFile holds the facts extracted from a release filename.
type ParsedFile struct {
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	Year          int      `json:"year,omitempty" yaml:"year,omitempty"`
	Seasons       []int    `json:"seasons,omitempty" yaml:"seasons,omitempty"`
	Episodes      []int    `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Resolution    string   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Quality       string   `json:"quality,omitempty" yaml:"quality,omitempty"`
	Encode        string   `json:"encode,omitempty" yaml:"encode,omitempty"`
	VisualTags    []string `json:"visualTags,omitempty" yaml:"visualTags,omitempty"`
	AudioTags     []string `json:"audioTags,omitempty" yaml:"audioTags,omitempty"`
	AudioChannels []string `json:"audioChannels,omitempty" yaml:"audioChannels,omitempty"`
	Languages     []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	ReleaseGroup  string   `json:"releaseGroup,omitempty" yaml:"releaseGroup,omitempty"`
}

// Torrent carries swarm information for p2p and uncached debrid streams.
type Torrent struct {
	Seeders *int     `json:"seeders,omitempty" yaml:"seeders,omitempty"`
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Service describes the debrid or usenet provider a stream is served through.
type Service struct {
	ID     string `json:"id" yaml:"id"`
	Cached bool   `json:"cached" yaml:"cached"`
	// Owned marks items already present in the user's provider library.
	Owned bool `json:"owned,omitempty" yaml:"owned,omitempty"`
}

// AddonRef identifies the upstream addon instance that produced a stream.
type AddonRef struct {
	InstanceID        string `json:"instanceId" yaml:"instanceId"`
	PresetID          string `json:"presetId,omitempty" yaml:"presetId,omitempty"`
	Name              string `json:"name" yaml:"name"`
	ForceToTop        bool   `json:"forceToTop,omitempty" yaml:"forceToTop,omitempty"`
	ResultPassthrough bool   `json:"resultPassthrough,omitempty" yaml:"resultPassthrough,omitempty"`
}

// RegexMatch records the preferred regex rule that claimed a stream.
type RegexMatch struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Index   int    `json:"index" yaml:"index"`
}

// StreamError is attached to synthetic streams that report an upstream failure.
type StreamError struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// ParsedStream is a single candidate link plus its parsed and derived metadata.
// Streams live for one request; only the precomputed annotation fields are
// written after creation.
type ParsedStream struct {
	ID         string      `json:"id" yaml:"id"`
	Type       StreamType  `json:"type" yaml:"type"`
	Addon      AddonRef    `json:"addon" yaml:"addon"`
	Service    *Service    `json:"service,omitempty" yaml:"service,omitempty"`
	URL        string      `json:"url,omitempty" yaml:"url,omitempty"`
	InfoHash   string      `json:"infoHash,omitempty" yaml:"infoHash,omitempty"`
	FileIndex  *int        `json:"fileIdx,omitempty" yaml:"fileIdx,omitempty"`
	Filename   string      `json:"filename,omitempty" yaml:"filename,omitempty"`
	FolderName string      `json:"folderName,omitempty" yaml:"folderName,omitempty"`
	Indexer    string      `json:"indexer,omitempty" yaml:"indexer,omitempty"`
	Size       int64       `json:"size,omitempty" yaml:"size,omitempty"`
	Duration   int64       `json:"duration,omitempty" yaml:"duration,omitempty"`
	ParsedFile *ParsedFile `json:"parsedFile,omitempty" yaml:"parsedFile,omitempty"`
	Torrent    *Torrent    `json:"torrent,omitempty" yaml:"torrent,omitempty"`

	// Name and Description are the upstream display strings, kept for output.
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	RegexMatched            *RegexMatch `json:"regexMatched,omitempty" yaml:"regexMatched,omitempty"`
	KeywordMatched          bool        `json:"keywordMatched,omitempty" yaml:"keywordMatched,omitempty"`
	StreamExpressionMatched *int        `json:"streamExpressionMatched,omitempty" yaml:"streamExpressionMatched,omitempty"`

	Error *StreamError `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsError reports whether the stream is a synthetic error report.
func (s *ParsedStream) IsError() bool {
	return s.Error != nil
}

// IsCached reports whether the stream is served from a provider cache.
func (s *ParsedStream) IsCached() bool {
	return s.Service != nil && s.Service.Cached
}

// IsUncached reports whether the stream goes through a provider but is not cached yet.
func (s *ParsedStream) IsUncached() bool {
	return s.Service != nil && !s.Service.Cached
}

// IsLibrary reports whether the stream is an item from the user's provider library.
func (s *ParsedStream) IsLibrary() bool {
	return s.Service != nil && s.Service.Owned
}

// ServiceID returns the provider id, or "" when the stream has no service.
func (s *ParsedStream) ServiceID() string {
	if s.Service == nil {
		return ""
	}
	return s.Service.ID
}

// Seeders returns the seeder count and whether it is known.
func (s *ParsedStream) Seeders() (int, bool) {
	if s.Torrent == nil || s.Torrent.Seeders == nil {
		return 0, false
	}
	return *s.Torrent.Seeders, true
}

// File returns the parsed file facts, never nil.
func (s *ParsedStream) File() *ParsedFile {
	if s.ParsedFile == nil {
		return &ParsedFile{}
	}
	return s.ParsedFile
}

// Resolution returns the parsed resolution or Unknown.
func (s *ParsedStream) Resolution() string {
	return orUnknown(s.File().Resolution)
}

// Quality returns the parsed quality or Unknown.
func (s *ParsedStream) Quality() string {
	return orUnknown(s.File().Quality)
}

// Encode returns the parsed encode or Unknown.
func (s *ParsedStream) Encode() string {
	return orUnknown(s.File().Encode)
}

// VisualTags returns the parsed visual tags. A stream carrying both an HDR and a
// DV tag also reports the combined HDR+DV tag. Absent tags read as Unknown.
func (s *ParsedStream) VisualTags() []string {
	tags := s.File().VisualTags
	if len(tags) == 0 {
		return []string{Unknown}
	}
	hasHDR := slices.ContainsFunc(tags, func(t string) bool { return strings.HasPrefix(t, "HDR") })
	hasDV := slices.ContainsFunc(tags, func(t string) bool { return strings.HasPrefix(t, "DV") })
	if hasHDR && hasDV && !slices.Contains(tags, VisualTagHDRDV) {
		out := make([]string, 0, len(tags)+1)
		out = append(out, VisualTagHDRDV)
		return append(out, tags...)
	}
	return tags
}

// AudioTags returns the parsed audio tags or [Unknown].
func (s *ParsedStream) AudioTags() []string {
	return listOrUnknown(s.File().AudioTags)
}

// AudioChannels returns the parsed audio channels or [Unknown].
func (s *ParsedStream) AudioChannels() []string {
	return listOrUnknown(s.File().AudioChannels)
}

// Languages returns the parsed languages or [Unknown].
func (s *ParsedStream) Languages() []string {
	return listOrUnknown(s.File().Languages)
}

// ReleaseGroup returns the parsed release group, possibly empty.
func (s *ParsedStream) ReleaseGroup() string {
	return s.File().ReleaseGroup
}

// ResetAnnotations clears every precomputed field.
func (s *ParsedStream) ResetAnnotations() {
	s.RegexMatched = nil
	s.KeywordMatched = false
	s.StreamExpressionMatched = nil
}

func orUnknown(v string) string {
	if v == "" {
		return Unknown
	}
	return v
}

func listOrUnknown(v []string) []string {
	if len(v) == 0 {
		return []string{Unknown}
	}
	return v
}

// Statistic is an informational entry reported alongside results.
type Statistic struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}
