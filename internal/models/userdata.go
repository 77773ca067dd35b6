package models

import (
	"slices"
	"time"
)

// Addon describes one configured upstream addon instance.
type Addon struct {
	InstanceID        string `json:"instanceId" yaml:"instanceId"`
	PresetID          string `json:"presetId,omitempty" yaml:"presetId,omitempty"`
	Name              string `json:"name" yaml:"name"`
	ManifestURL       string `json:"manifestUrl" yaml:"manifestUrl"`
	Enabled           *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Timeout           int64  `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	ForceToTop        bool   `json:"forceToTop,omitempty" yaml:"forceToTop,omitempty"`
	ResultPassthrough bool   `json:"resultPassthrough,omitempty" yaml:"resultPassthrough,omitempty"`
}

// IsEnabled reports whether the addon should be queried. Addons are enabled
// unless explicitly disabled.
func (a Addon) IsEnabled() bool {
	return BoolVal(a.Enabled)
}

// TimeoutDuration returns the per-request timeout, or 0 when unset.
func (a Addon) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Millisecond
}

// Ref returns the reference stamped onto streams produced by this addon.
func (a Addon) Ref() AddonRef {
	return AddonRef{
		InstanceID:        a.InstanceID,
		PresetID:          a.PresetID,
		Name:              a.Name,
		ForceToTop:        a.ForceToTop,
		ResultPassthrough: a.ResultPassthrough,
	}
}

// Group is an ordered slice of addons queried together, gated by an optional
// condition evaluated against previously accumulated results.
type Group struct {
	Addons    []string `json:"addons" yaml:"addons"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ServiceConfig is one entry of the service priority list.
type ServiceConfig struct {
	ID      string `json:"id" yaml:"id"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// RegexRule is a named preferred pattern.
type RegexRule struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Negate  bool   `json:"negate,omitempty" yaml:"negate,omitempty"`
}

// SizeRanges holds per media type size bounds.
type SizeRanges struct {
	Movies *Range `json:"movies,omitempty" yaml:"movies,omitempty"`
	Series *Range `json:"series,omitempty" yaml:"series,omitempty"`
}

// ForMediaType returns the range for a request type. Anime uses series bounds.
func (s SizeRanges) ForMediaType(mediaType string) *Range {
	if mediaType == MediaTypeMovie {
		return s.Movies
	}
	return s.Series
}

// SizeFilters holds global and per-resolution size bounds.
type SizeFilters struct {
	Global             SizeRanges            `json:"global" yaml:"global"`
	ResolutionSpecific map[string]SizeRanges `json:"resolutionSpecific,omitempty" yaml:"resolutionSpecific,omitempty"`
}

// TitleMatching configures comparison of parsed titles to canonical metadata.
type TitleMatching struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	Mode          string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	MatchYear     bool     `json:"matchYear,omitempty" yaml:"matchYear,omitempty"`
	YearTolerance int      `json:"yearTolerance,omitempty" yaml:"yearTolerance,omitempty"`
	Similarity    float64  `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	RequestTypes  []string `json:"requestTypes,omitempty" yaml:"requestTypes,omitempty"`
	Addons        []string `json:"addons,omitempty" yaml:"addons,omitempty"`
}

// SeasonEpisodeMatching configures season/episode checks for series requests.
type SeasonEpisodeMatching struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	RequestTypes []string `json:"requestTypes,omitempty" yaml:"requestTypes,omitempty"`
	Addons       []string `json:"addons,omitempty" yaml:"addons,omitempty"`
}

// Deduplicator configures duplicate detection and resolution.
type Deduplicator struct {
	Enabled             bool                `json:"enabled" yaml:"enabled"`
	Keys                []string            `json:"keys,omitempty" yaml:"keys,omitempty"`
	MultiGroupBehaviour MultiGroupBehaviour `json:"multiGroupBehaviour,omitempty" yaml:"multiGroupBehaviour,omitempty"`
	Cached              DedupMode           `json:"cached,omitempty" yaml:"cached,omitempty"`
	Uncached            DedupMode           `json:"uncached,omitempty" yaml:"uncached,omitempty"`
	P2P                 DedupMode           `json:"p2p,omitempty" yaml:"p2p,omitempty"`
	HTTP                DedupMode           `json:"http,omitempty" yaml:"http,omitempty"`
	Live                DedupMode           `json:"live,omitempty" yaml:"live,omitempty"`
	YouTube             DedupMode           `json:"youtube,omitempty" yaml:"youtube,omitempty"`
	External            DedupMode           `json:"external,omitempty" yaml:"external,omitempty"`
}

// ModeFor returns the configured mode for a type-bucket, defaulting to single_result.
func (d *Deduplicator) ModeFor(bucket string) DedupMode {
	var mode DedupMode
	switch bucket {
	case "cached":
		mode = d.Cached
	case "uncached":
		mode = d.Uncached
	case string(StreamTypeP2P):
		mode = d.P2P
	case string(StreamTypeHTTP):
		mode = d.HTTP
	case string(StreamTypeLive):
		mode = d.Live
	case string(StreamTypeYouTube):
		mode = d.YouTube
	case string(StreamTypeExternal):
		mode = d.External
	}
	if mode == "" {
		return DedupModeSingleResult
	}
	return mode
}

// SortCriterion is one (key, direction) pair of a sort order.
type SortCriterion struct {
	Key       string        `json:"key" yaml:"key"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// SortCriteria holds the sort orders per media type and cache status.
type SortCriteria struct {
	Global         []SortCriterion `json:"global,omitempty" yaml:"global,omitempty"`
	Movies         []SortCriterion `json:"movies,omitempty" yaml:"movies,omitempty"`
	Series         []SortCriterion `json:"series,omitempty" yaml:"series,omitempty"`
	Anime          []SortCriterion `json:"anime,omitempty" yaml:"anime,omitempty"`
	Cached         []SortCriterion `json:"cached,omitempty" yaml:"cached,omitempty"`
	Uncached       []SortCriterion `json:"uncached,omitempty" yaml:"uncached,omitempty"`
	CachedMovies   []SortCriterion `json:"cachedMovies,omitempty" yaml:"cachedMovies,omitempty"`
	UncachedMovies []SortCriterion `json:"uncachedMovies,omitempty" yaml:"uncachedMovies,omitempty"`
	CachedSeries   []SortCriterion `json:"cachedSeries,omitempty" yaml:"cachedSeries,omitempty"`
	UncachedSeries []SortCriterion `json:"uncachedSeries,omitempty" yaml:"uncachedSeries,omitempty"`
	CachedAnime    []SortCriterion `json:"cachedAnime,omitempty" yaml:"cachedAnime,omitempty"`
	UncachedAnime  []SortCriterion `json:"uncachedAnime,omitempty" yaml:"uncachedAnime,omitempty"`
}

// All returns every configured criteria list, for validation.
func (s SortCriteria) All() [][]SortCriterion {
	return [][]SortCriterion{
		s.Global, s.Movies, s.Series, s.Anime, s.Cached, s.Uncached,
		s.CachedMovies, s.UncachedMovies, s.CachedSeries, s.UncachedSeries,
		s.CachedAnime, s.UncachedAnime,
	}
}

// UserData is the per-user configuration consumed read-only by the pipeline.
type UserData struct {
	Addons               []Addon         `json:"addons" yaml:"addons"`
	Groups               []Group         `json:"groups,omitempty" yaml:"groups,omitempty"`
	Services             []ServiceConfig `json:"services,omitempty" yaml:"services,omitempty"`
	PreferredStreamTypes []StreamType    `json:"preferredStreamTypes,omitempty" yaml:"preferredStreamTypes,omitempty"`

	ExcludedStreamTypes []StreamType `json:"excludedStreamTypes,omitempty" yaml:"excludedStreamTypes,omitempty"`
	RequiredStreamTypes []StreamType `json:"requiredStreamTypes,omitempty" yaml:"requiredStreamTypes,omitempty"`
	IncludedStreamTypes []StreamType `json:"includedStreamTypes,omitempty" yaml:"includedStreamTypes,omitempty"`

	ExcludedResolutions  []string `json:"excludedResolutions,omitempty" yaml:"excludedResolutions,omitempty"`
	RequiredResolutions  []string `json:"requiredResolutions,omitempty" yaml:"requiredResolutions,omitempty"`
	IncludedResolutions  []string `json:"includedResolutions,omitempty" yaml:"includedResolutions,omitempty"`
	PreferredResolutions []string `json:"preferredResolutions,omitempty" yaml:"preferredResolutions,omitempty"`

	ExcludedQualities  []string `json:"excludedQualities,omitempty" yaml:"excludedQualities,omitempty"`
	RequiredQualities  []string `json:"requiredQualities,omitempty" yaml:"requiredQualities,omitempty"`
	IncludedQualities  []string `json:"includedQualities,omitempty" yaml:"includedQualities,omitempty"`
	PreferredQualities []string `json:"preferredQualities,omitempty" yaml:"preferredQualities,omitempty"`

	ExcludedEncodes  []string `json:"excludedEncodes,omitempty" yaml:"excludedEncodes,omitempty"`
	RequiredEncodes  []string `json:"requiredEncodes,omitempty" yaml:"requiredEncodes,omitempty"`
	IncludedEncodes  []string `json:"includedEncodes,omitempty" yaml:"includedEncodes,omitempty"`
	PreferredEncodes []string `json:"preferredEncodes,omitempty" yaml:"preferredEncodes,omitempty"`

	ExcludedVisualTags  []string `json:"excludedVisualTags,omitempty" yaml:"excludedVisualTags,omitempty"`
	RequiredVisualTags  []string `json:"requiredVisualTags,omitempty" yaml:"requiredVisualTags,omitempty"`
	IncludedVisualTags  []string `json:"includedVisualTags,omitempty" yaml:"includedVisualTags,omitempty"`
	PreferredVisualTags []string `json:"preferredVisualTags,omitempty" yaml:"preferredVisualTags,omitempty"`

	ExcludedAudioTags  []string `json:"excludedAudioTags,omitempty" yaml:"excludedAudioTags,omitempty"`
	RequiredAudioTags  []string `json:"requiredAudioTags,omitempty" yaml:"requiredAudioTags,omitempty"`
	IncludedAudioTags  []string `json:"includedAudioTags,omitempty" yaml:"includedAudioTags,omitempty"`
	PreferredAudioTags []string `json:"preferredAudioTags,omitempty" yaml:"preferredAudioTags,omitempty"`

	ExcludedAudioChannels  []string `json:"excludedAudioChannels,omitempty" yaml:"excludedAudioChannels,omitempty"`
	RequiredAudioChannels  []string `json:"requiredAudioChannels,omitempty" yaml:"requiredAudioChannels,omitempty"`
	IncludedAudioChannels  []string `json:"includedAudioChannels,omitempty" yaml:"includedAudioChannels,omitempty"`
	PreferredAudioChannels []string `json:"preferredAudioChannels,omitempty" yaml:"preferredAudioChannels,omitempty"`

	ExcludedLanguages  []string `json:"excludedLanguages,omitempty" yaml:"excludedLanguages,omitempty"`
	RequiredLanguages  []string `json:"requiredLanguages,omitempty" yaml:"requiredLanguages,omitempty"`
	IncludedLanguages  []string `json:"includedLanguages,omitempty" yaml:"includedLanguages,omitempty"`
	PreferredLanguages []string `json:"preferredLanguages,omitempty" yaml:"preferredLanguages,omitempty"`

	ExcludedRegexPatterns  []string    `json:"excludedRegexPatterns,omitempty" yaml:"excludedRegexPatterns,omitempty"`
	RequiredRegexPatterns  []string    `json:"requiredRegexPatterns,omitempty" yaml:"requiredRegexPatterns,omitempty"`
	IncludedRegexPatterns  []string    `json:"includedRegexPatterns,omitempty" yaml:"includedRegexPatterns,omitempty"`
	PreferredRegexPatterns []RegexRule `json:"preferredRegexPatterns,omitempty" yaml:"preferredRegexPatterns,omitempty"`

	ExcludedKeywords  []string `json:"excludedKeywords,omitempty" yaml:"excludedKeywords,omitempty"`
	RequiredKeywords  []string `json:"requiredKeywords,omitempty" yaml:"requiredKeywords,omitempty"`
	IncludedKeywords  []string `json:"includedKeywords,omitempty" yaml:"includedKeywords,omitempty"`
	PreferredKeywords []string `json:"preferredKeywords,omitempty" yaml:"preferredKeywords,omitempty"`

	ExcludedStreamExpressions  []string `json:"excludedStreamExpressions,omitempty" yaml:"excludedStreamExpressions,omitempty"`
	RequiredStreamExpressions  []string `json:"requiredStreamExpressions,omitempty" yaml:"requiredStreamExpressions,omitempty"`
	IncludedStreamExpressions  []string `json:"includedStreamExpressions,omitempty" yaml:"includedStreamExpressions,omitempty"`
	PreferredStreamExpressions []string `json:"preferredStreamExpressions,omitempty" yaml:"preferredStreamExpressions,omitempty"`

	ExcludeCached                  bool         `json:"excludeCached,omitempty" yaml:"excludeCached,omitempty"`
	ExcludeCachedFromAddons        []string     `json:"excludeCachedFromAddons,omitempty" yaml:"excludeCachedFromAddons,omitempty"`
	ExcludeCachedFromServices      []string     `json:"excludeCachedFromServices,omitempty" yaml:"excludeCachedFromServices,omitempty"`
	ExcludeCachedFromStreamTypes   []StreamType `json:"excludeCachedFromStreamTypes,omitempty" yaml:"excludeCachedFromStreamTypes,omitempty"`
	ExcludeCachedMode              string       `json:"excludeCachedMode,omitempty" yaml:"excludeCachedMode,omitempty"`
	ExcludeUncached                bool         `json:"excludeUncached,omitempty" yaml:"excludeUncached,omitempty"`
	ExcludeUncachedFromAddons      []string     `json:"excludeUncachedFromAddons,omitempty" yaml:"excludeUncachedFromAddons,omitempty"`
	ExcludeUncachedFromServices    []string     `json:"excludeUncachedFromServices,omitempty" yaml:"excludeUncachedFromServices,omitempty"`
	ExcludeUncachedFromStreamTypes []StreamType `json:"excludeUncachedFromStreamTypes,omitempty" yaml:"excludeUncachedFromStreamTypes,omitempty"`
	ExcludeUncachedMode            string       `json:"excludeUncachedMode,omitempty" yaml:"excludeUncachedMode,omitempty"`

	IncludeSeederRange  *Range   `json:"includeSeederRange,omitempty" yaml:"includeSeederRange,omitempty"`
	ExcludeSeederRange  *Range   `json:"excludeSeederRange,omitempty" yaml:"excludeSeederRange,omitempty"`
	RequiredSeederRange *Range   `json:"requiredSeederRange,omitempty" yaml:"requiredSeederRange,omitempty"`
	SeederRangeTypes    []string `json:"seederRangeTypes,omitempty" yaml:"seederRangeTypes,omitempty"`

	Size *SizeFilters `json:"size,omitempty" yaml:"size,omitempty"`

	TitleMatching         *TitleMatching         `json:"titleMatching,omitempty" yaml:"titleMatching,omitempty"`
	SeasonEpisodeMatching *SeasonEpisodeMatching `json:"seasonEpisodeMatching,omitempty" yaml:"seasonEpisodeMatching,omitempty"`
	Deduplicator          *Deduplicator          `json:"deduplicator,omitempty" yaml:"deduplicator,omitempty"`
	SortCriteria          SortCriteria           `json:"sortCriteria" yaml:"sortCriteria"`
}

// EnabledAddons returns the addons that should be queried, in priority order.
func (u *UserData) EnabledAddons() []Addon {
	out := make([]Addon, 0, len(u.Addons))
	for _, a := range u.Addons {
		if a.IsEnabled() {
			out = append(out, a)
		}
	}
	return out
}

// AddonByID looks up an addon by instance id.
func (u *UserData) AddonByID(instanceID string) (Addon, bool) {
	for _, a := range u.Addons {
		if a.InstanceID == instanceID {
			return a, true
		}
	}
	return Addon{}, false
}

// AddonRank returns the priority index of an addon instance, or -1.
func (u *UserData) AddonRank(instanceID string) int {
	return slices.IndexFunc(u.Addons, func(a Addon) bool { return a.InstanceID == instanceID })
}

// ServiceRank returns the priority index of an enabled service, or -1.
func (u *UserData) ServiceRank(serviceID string) int {
	rank := 0
	for _, s := range u.Services {
		if !BoolVal(s.Enabled) {
			continue
		}
		if s.ID == serviceID {
			return rank
		}
		rank++
	}
	return -1
}

// StreamTypeRank returns the index of t in the preferred stream types, or -1.
func (u *UserData) StreamTypeRank(t StreamType) int {
	return slices.Index(u.PreferredStreamTypes, t)
}
