package filtering

import (
	"context"
	"regexp"
	"slices"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

// attributeRule pairs an attribute with the excluded, required and included
// values configured for it.
type attributeRule struct {
	attr     shared.Attribute
	excluded []string
	required []string
	included []string
	// allExcluded drops a stream only when every value is excluded.
	allExcluded bool
}

func buildAttributeRules(u *models.UserData) []attributeRule {
	return []attributeRule{
		{attr: shared.AttrStreamType,
			excluded: shared.TypeStrings(u.ExcludedStreamTypes),
			required: shared.TypeStrings(u.RequiredStreamTypes),
			included: shared.TypeStrings(u.IncludedStreamTypes)},
		{attr: shared.AttrResolution, excluded: u.ExcludedResolutions, required: u.RequiredResolutions, included: u.IncludedResolutions},
		{attr: shared.AttrQuality, excluded: u.ExcludedQualities, required: u.RequiredQualities, included: u.IncludedQualities},
		{attr: shared.AttrEncode, excluded: u.ExcludedEncodes, required: u.RequiredEncodes, included: u.IncludedEncodes},
		{attr: shared.AttrVisualTag, excluded: u.ExcludedVisualTags, required: u.RequiredVisualTags, included: u.IncludedVisualTags},
		{attr: shared.AttrAudioTag, excluded: u.ExcludedAudioTags, required: u.RequiredAudioTags, included: u.IncludedAudioTags},
		{attr: shared.AttrAudioChannels, excluded: u.ExcludedAudioChannels, required: u.RequiredAudioChannels, included: u.IncludedAudioChannels},
		{attr: shared.AttrLanguage, excluded: u.ExcludedLanguages, required: u.RequiredLanguages, included: u.IncludedLanguages,
			allExcluded: true},
	}
}

// isIncluded reports whether any include override matches the stream.
func (f *Filterer) isIncluded(s *models.ParsedStream) bool {
	for _, r := range f.rules {
		if len(r.included) > 0 && shared.ContainsAny(r.included, r.attr.Values(s)) {
			return true
		}
	}
	if matchesAnyPattern(f.includedRegex, s) || shared.MatchesAny(f.includedKeywords, s) {
		return true
	}
	if seeders, ok := f.scopedSeeders(s); ok && f.userData.IncludeSeederRange.Contains(int64(seeders)) {
		return true
	}
	return false
}

// rejectReason returns why the stream is dropped, or "" when it survives.
func (f *Filterer) rejectReason(ctx context.Context, s *models.ParsedStream, rc *requestContext) string {
	if reason := f.excludeReason(s, rc); reason != "" {
		return reason
	}
	if reason := f.requireReason(s); reason != "" {
		return reason
	}
	if reason := f.titleReason(ctx, s, rc); reason != "" {
		return reason
	}
	return f.seasonEpisodeReason(s, rc)
}

func (f *Filterer) excludeReason(s *models.ParsedStream, rc *requestContext) string {
	u := f.userData

	for _, r := range f.rules {
		if len(r.excluded) == 0 {
			continue
		}
		values := r.attr.Values(s)
		if r.allExcluded {
			if shared.ContainsAll(r.excluded, values) {
				return r.attr.Name
			}
		} else if shared.ContainsAny(r.excluded, values) {
			return r.attr.Name
		}
	}

	if s.IsCached() && scopedExclusion(s, u.ExcludeCached, u.ExcludeCachedFromAddons,
		u.ExcludeCachedFromServices, u.ExcludeCachedFromStreamTypes, u.ExcludeCachedMode) {
		return "cached"
	}
	if s.IsUncached() && scopedExclusion(s, u.ExcludeUncached, u.ExcludeUncachedFromAddons,
		u.ExcludeUncachedFromServices, u.ExcludeUncachedFromStreamTypes, u.ExcludeUncachedMode) {
		return "uncached"
	}

	if matchesAnyPattern(f.excludedRegex, s) {
		return "regex"
	}
	if shared.MatchesAny(f.excludedKeywords, s) {
		return "keyword"
	}
	if seeders, ok := f.scopedSeeders(s); ok && u.ExcludeSeederRange.Contains(int64(seeders)) {
		return "seeders"
	}
	if r := f.sizeRange(s, rc.mediaType); r != nil && s.Size > 0 && !r.Contains(s.Size) {
		return "size"
	}
	return ""
}

func (f *Filterer) requireReason(s *models.ParsedStream) string {
	for _, r := range f.rules {
		if len(r.required) > 0 && !shared.ContainsAny(r.required, r.attr.Values(s)) {
			return "required " + r.attr.Name
		}
	}
	if len(f.requiredRegex) > 0 && !matchesAnyPattern(f.requiredRegex, s) {
		return "required regex"
	}
	if f.requiredKeywords != nil && !shared.MatchesAny(f.requiredKeywords, s) {
		return "required keyword"
	}
	if required := f.userData.RequiredSeederRange; required != nil {
		if seeders, ok := f.scopedSeeders(s); ok && !required.Contains(int64(seeders)) {
			return "required seeders"
		}
	}
	return ""
}

// scopedExclusion decides a cached or uncached exclusion. The global flag
// excludes outright. Otherwise each configured scope list is a condition, and
// mode combines them with AND or OR (the default). With no scope lists
// configured nothing is excluded.
func scopedExclusion(
	s *models.ParsedStream,
	global bool,
	addons, services []string,
	types []models.StreamType,
	mode string,
) bool {
	if global {
		return true
	}
	var conditions []bool
	if len(addons) > 0 {
		conditions = append(conditions, slices.Contains(addons, s.Addon.InstanceID))
	}
	if len(services) > 0 {
		conditions = append(conditions, slices.Contains(services, s.ServiceID()))
	}
	if len(types) > 0 {
		conditions = append(conditions, slices.Contains(types, s.Type))
	}
	if len(conditions) == 0 {
		return false
	}
	if mode == models.CombineAnd {
		return !slices.Contains(conditions, false)
	}
	return slices.Contains(conditions, true)
}

// scopedSeeders returns the stream's seeders when they are known and the
// stream falls in the configured seeder scope. The scope defaults to p2p and
// uncached streams.
func (f *Filterer) scopedSeeders(s *models.ParsedStream) (int, bool) {
	seeders, ok := s.Seeders()
	if !ok {
		return 0, false
	}
	scope := f.userData.SeederRangeTypes
	if len(scope) == 0 {
		scope = []string{models.SeederScopeP2P, models.SeederScopeUncached}
	}
	switch {
	case s.Type == models.StreamTypeP2P:
		ok = slices.Contains(scope, models.SeederScopeP2P)
	case s.IsCached():
		ok = slices.Contains(scope, models.SeederScopeCached)
	case s.IsUncached():
		ok = slices.Contains(scope, models.SeederScopeUncached)
	default:
		ok = false
	}
	return seeders, ok
}

// sizeRange returns the size bound for the stream, preferring a range keyed
// by its resolution over the global one.
func (f *Filterer) sizeRange(s *models.ParsedStream, mediaType string) *models.Range {
	size := f.userData.Size
	if size == nil {
		return nil
	}
	if specific, ok := size.ResolutionSpecific[s.Resolution()]; ok {
		if r := specific.ForMediaType(mediaType); r != nil {
			return r
		}
	}
	return size.Global.ForMediaType(mediaType)
}

func matchesAnyPattern(patterns []*regexp.Regexp, s *models.ParsedStream) bool {
	for _, re := range patterns {
		if shared.MatchesAny(re, s) {
			return true
		}
	}
	return false
}
