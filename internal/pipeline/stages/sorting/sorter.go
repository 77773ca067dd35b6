package sorting

import (
	"math"
	"slices"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

// projection maps a stream onto a number where larger is better.
type projection func(*models.ParsedStream) float64

// Sorter orders streams by one user's sort criteria.
type Sorter struct {
	userData    *models.UserData
	projections map[string]projection
}

// NewSorter returns a Sorter for userData.
func NewSorter(userData *models.UserData) *Sorter {
	s := &Sorter{userData: userData}
	s.projections = s.buildProjections()
	return s
}

func (s *Sorter) buildProjections() map[string]projection {
	u := s.userData
	preference := func(preferred []string, attr shared.Attribute) projection {
		return func(st *models.ParsedStream) float64 {
			return negRank(shared.Rank(preferred, attr.Values(st)))
		}
	}
	return map[string]projection{
		models.SortKeyCached:  func(st *models.ParsedStream) float64 { return boolValue(st.IsCached()) },
		models.SortKeyLibrary: func(st *models.ParsedStream) float64 { return boolValue(st.IsLibrary()) },
		models.SortKeySize:    func(st *models.ParsedStream) float64 { return float64(st.Size) },
		models.SortKeySeeders: func(st *models.ParsedStream) float64 {
			n, _ := st.Seeders()
			return float64(n)
		},
		models.SortKeyResolution:   preference(u.PreferredResolutions, shared.AttrResolution),
		models.SortKeyQuality:      preference(u.PreferredQualities, shared.AttrQuality),
		models.SortKeyEncode:       preference(u.PreferredEncodes, shared.AttrEncode),
		models.SortKeyVisualTag:    preference(u.PreferredVisualTags, shared.AttrVisualTag),
		models.SortKeyAudioTag:     preference(u.PreferredAudioTags, shared.AttrAudioTag),
		models.SortKeyAudioChannel: preference(u.PreferredAudioChannels, shared.AttrAudioChannels),
		models.SortKeyLanguage:     preference(u.PreferredLanguages, shared.AttrLanguage),
		models.SortKeyStreamType: func(st *models.ParsedStream) float64 {
			return negRank(u.StreamTypeRank(st.Type))
		},
		models.SortKeyAddon: func(st *models.ParsedStream) float64 {
			return negRank(u.AddonRank(st.Addon.InstanceID))
		},
		models.SortKeyService: func(st *models.ParsedStream) float64 {
			return negRank(u.ServiceRank(st.ServiceID()))
		},
		models.SortKeyRegexPatterns: func(st *models.ParsedStream) float64 {
			if st.RegexMatched == nil {
				return math.Inf(-1)
			}
			return -float64(st.RegexMatched.Index)
		},
		models.SortKeyKeyword: func(st *models.ParsedStream) float64 { return boolValue(st.KeywordMatched) },
		models.SortKeyStreamExpressionMatched: func(st *models.ParsedStream) float64 {
			if st.StreamExpressionMatched == nil {
				return math.Inf(-1)
			}
			return -float64(*st.StreamExpressionMatched)
		},
	}
}

// Sort returns a new slice with forceToTop streams first, in input order,
// followed by the rest ordered by the criteria for mediaType.
func (s *Sorter) Sort(streams []*models.ParsedStream, mediaType string) []*models.ParsedStream {
	out := make([]*models.ParsedStream, 0, len(streams))
	rest := make([]*models.ParsedStream, 0, len(streams))
	for _, st := range streams {
		if st.Addon.ForceToTop {
			out = append(out, st)
		} else {
			rest = append(rest, st)
		}
	}

	global := s.userData.SortCriteria.Global
	if len(global) == 0 || global[0].Key != models.SortKeyCached {
		return append(out, s.sortBy(rest, s.criteriaFor(mediaType))...)
	}

	// A leading global cached criterion sorts the cached and uncached blocks
	// independently, then orders the blocks by its direction.
	base := global[1:]
	if typed := s.typedCriteria(mediaType); len(typed) > 0 {
		base = typed
		if base[0].Key == models.SortKeyCached {
			base = base[1:]
		}
	}
	var cached, uncached []*models.ParsedStream
	for _, st := range rest {
		if st.IsCached() {
			cached = append(cached, st)
		} else {
			uncached = append(uncached, st)
		}
	}
	cachedCriteria, uncachedCriteria := s.splitCriteria(mediaType, base)
	cached = s.sortBy(cached, cachedCriteria)
	uncached = s.sortBy(uncached, uncachedCriteria)

	if global[0].Direction == models.SortAsc {
		return append(append(out, uncached...), cached...)
	}
	return append(append(out, cached...), uncached...)
}

// sortBy stable-sorts streams by the lexicographic criteria vector. It
// returns a new slice.
func (s *Sorter) sortBy(streams []*models.ParsedStream, criteria []models.SortCriterion) []*models.ParsedStream {
	type keyed struct {
		stream *models.ParsedStream
		keys   []float64
	}
	items := make([]keyed, len(streams))
	for i, st := range streams {
		items[i] = keyed{stream: st, keys: s.keys(st, criteria)}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		for i := range a.keys {
			switch {
			case a.keys[i] > b.keys[i]:
				return -1
			case a.keys[i] < b.keys[i]:
				return 1
			}
		}
		return 0
	})

	out := make([]*models.ParsedStream, len(items))
	for i, it := range items {
		out[i] = it.stream
	}
	return out
}

// keys projects a stream onto the criteria, flipping the sign for ascending
// criteria. Unknown keys project to zero.
func (s *Sorter) keys(st *models.ParsedStream, criteria []models.SortCriterion) []float64 {
	out := make([]float64, len(criteria))
	for i, c := range criteria {
		p, ok := s.projections[c.Key]
		if !ok {
			continue
		}
		v := p(st)
		if c.Direction == models.SortAsc {
			v = -v
		}
		out[i] = v
	}
	return out
}

// criteriaFor returns the media type's criteria, falling back to global.
func (s *Sorter) criteriaFor(mediaType string) []models.SortCriterion {
	if typed := s.typedCriteria(mediaType); len(typed) > 0 {
		return typed
	}
	return s.userData.SortCriteria.Global
}

// typedCriteria returns the media type's own list, which may be empty.
func (s *Sorter) typedCriteria(mediaType string) []models.SortCriterion {
	sc := s.userData.SortCriteria
	switch mediaType {
	case models.MediaTypeMovie:
		return sc.Movies
	case models.MediaTypeSeries:
		return sc.Series
	case models.MediaTypeAnime:
		return sc.Anime
	}
	return nil
}

// splitCriteria returns the criteria for the cached and uncached blocks. Each
// uses its dedicated media type list, then the generic cached or uncached
// list, then base.
func (s *Sorter) splitCriteria(mediaType string, base []models.SortCriterion) (cached, uncached []models.SortCriterion) {
	sc := s.userData.SortCriteria
	var typedCached, typedUncached []models.SortCriterion
	switch mediaType {
	case models.MediaTypeMovie:
		typedCached, typedUncached = sc.CachedMovies, sc.UncachedMovies
	case models.MediaTypeSeries:
		typedCached, typedUncached = sc.CachedSeries, sc.UncachedSeries
	case models.MediaTypeAnime:
		typedCached, typedUncached = sc.CachedAnime, sc.UncachedAnime
	}
	return firstNonEmpty(typedCached, sc.Cached, base), firstNonEmpty(typedUncached, sc.Uncached, base)
}

func firstNonEmpty(lists ...[]models.SortCriterion) []models.SortCriterion {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// negRank turns a preference index into a projection. Absent values sort last.
func negRank(rank int) float64 {
	if rank < 0 {
		return math.Inf(-1)
	}
	return -float64(rank)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
