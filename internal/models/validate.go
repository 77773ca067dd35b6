package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ExpressionChecker compiles a stream expression and reports syntax errors.
type ExpressionChecker func(expr string) error

// ValidateMediaType checks that t is movie, series or anime.
func ValidateMediaType(t string) error {
	switch t {
	case MediaTypeMovie, MediaTypeSeries, MediaTypeAnime:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMediaType, t)
}

// Validate checks the user data for structural problems. Expressions are only
// checked when checkExpr is non-nil. All problems are reported together.
func (u *UserData) Validate(checkExpr ExpressionChecker) error {
	var errs []error

	if len(u.EnabledAddons()) == 0 {
		errs = append(errs, ErrNoAddons)
	}
	seen := make(map[string]bool, len(u.Addons))
	for i, a := range u.Addons {
		field := fmt.Sprintf("addons[%d]", i)
		if a.InstanceID == "" {
			errs = append(errs, fmt.Errorf("%s: %w", field, ErrAddonIDRequired))
			continue
		}
		if seen[a.InstanceID] {
			errs = append(errs, invalid(field, "duplicate instanceId %q", a.InstanceID))
		}
		seen[a.InstanceID] = true
		if a.ManifestURL == "" {
			errs = append(errs, fmt.Errorf("%s: %w", field, ErrManifestURLRequired))
		}
		if a.Timeout < 0 {
			errs = append(errs, invalid(field+".timeout", "must be non-negative"))
		}
	}

	for i, g := range u.Groups {
		for _, id := range g.Addons {
			if !seen[id] {
				errs = append(errs, invalid(fmt.Sprintf("groups[%d].addons", i), "unknown addon %q", id))
			}
		}
		if checkExpr != nil && g.Condition != "" {
			if err := checkExpr(g.Condition); err != nil {
				errs = append(errs, invalid(fmt.Sprintf("groups[%d].condition", i), "%v", err))
			}
		}
	}

	errs = append(errs, validateStreamTypes("excludedStreamTypes", u.ExcludedStreamTypes)...)
	errs = append(errs, validateStreamTypes("requiredStreamTypes", u.RequiredStreamTypes)...)
	errs = append(errs, validateStreamTypes("includedStreamTypes", u.IncludedStreamTypes)...)
	errs = append(errs, validateStreamTypes("preferredStreamTypes", u.PreferredStreamTypes)...)

	vocab := []struct {
		name    string
		allowed []string
		lists   [4][]string
	}{
		{"Resolutions", Resolutions, [4][]string{u.ExcludedResolutions, u.RequiredResolutions, u.IncludedResolutions, u.PreferredResolutions}},
		{"Qualities", Qualities, [4][]string{u.ExcludedQualities, u.RequiredQualities, u.IncludedQualities, u.PreferredQualities}},
		{"Encodes", Encodes, [4][]string{u.ExcludedEncodes, u.RequiredEncodes, u.IncludedEncodes, u.PreferredEncodes}},
		{"VisualTags", VisualTags, [4][]string{u.ExcludedVisualTags, u.RequiredVisualTags, u.IncludedVisualTags, u.PreferredVisualTags}},
		{"AudioTags", AudioTags, [4][]string{u.ExcludedAudioTags, u.RequiredAudioTags, u.IncludedAudioTags, u.PreferredAudioTags}},
		{"AudioChannels", AudioChannels, [4][]string{u.ExcludedAudioChannels, u.RequiredAudioChannels, u.IncludedAudioChannels, u.PreferredAudioChannels}},
		{"Languages", Languages, [4][]string{u.ExcludedLanguages, u.RequiredLanguages, u.IncludedLanguages, u.PreferredLanguages}},
	}
	prefixes := [4]string{"excluded", "required", "included", "preferred"}
	for _, v := range vocab {
		for i, list := range v.lists {
			for _, val := range list {
				if !slices.Contains(v.allowed, val) {
					errs = append(errs, invalid(prefixes[i]+v.name, "unknown value %q", val))
				}
			}
		}
	}

	for name, patterns := range map[string][]string{
		"excludedRegexPatterns": u.ExcludedRegexPatterns,
		"requiredRegexPatterns": u.RequiredRegexPatterns,
		"includedRegexPatterns": u.IncludedRegexPatterns,
	} {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, invalid(name, "%v", err))
			}
		}
	}
	for i, r := range u.PreferredRegexPatterns {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, invalid(fmt.Sprintf("preferredRegexPatterns[%d]", i), "%v", err))
		}
	}

	if checkExpr != nil {
		for name, exprs := range map[string][]string{
			"excludedStreamExpressions":  u.ExcludedStreamExpressions,
			"requiredStreamExpressions":  u.RequiredStreamExpressions,
			"includedStreamExpressions":  u.IncludedStreamExpressions,
			"preferredStreamExpressions": u.PreferredStreamExpressions,
		} {
			for i, e := range exprs {
				if err := checkExpr(e); err != nil {
					errs = append(errs, invalid(fmt.Sprintf("%s[%d]", name, i), "%v", err))
				}
			}
		}
	}

	for _, m := range []string{u.ExcludeCachedMode, u.ExcludeUncachedMode} {
		if m != "" && m != CombineAnd && m != CombineOr {
			errs = append(errs, invalid("excludeCachedMode", "must be 'and' or 'or', got %q", m))
		}
	}

	for name, r := range map[string]*Range{
		"includeSeederRange":  u.IncludeSeederRange,
		"excludeSeederRange":  u.ExcludeSeederRange,
		"requiredSeederRange": u.RequiredSeederRange,
	} {
		if err := r.Validate(); err != nil {
			errs = append(errs, invalid(name, "%v", err))
		}
	}
	for _, s := range u.SeederRangeTypes {
		if s != SeederScopeP2P && s != SeederScopeCached && s != SeederScopeUncached {
			errs = append(errs, invalid("seederRangeTypes", "unknown scope %q", s))
		}
	}

	if u.Size != nil {
		errs = append(errs, validateSizeRanges("size.global", u.Size.Global)...)
		for res, ranges := range u.Size.ResolutionSpecific {
			if !slices.Contains(Resolutions, res) {
				errs = append(errs, invalid("size.resolutionSpecific", "unknown resolution %q", res))
			}
			errs = append(errs, validateSizeRanges("size.resolutionSpecific."+res, ranges)...)
		}
	}

	if tm := u.TitleMatching; tm != nil && tm.Mode != "" {
		switch tm.Mode {
		case TitleMatchExact, TitleMatchContains, TitleMatchFuzzy:
		default:
			errs = append(errs, invalid("titleMatching.mode", "unknown mode %q", tm.Mode))
		}
		if tm.Similarity < 0 || tm.Similarity > 1 {
			errs = append(errs, invalid("titleMatching.similarity", "must be between 0 and 1"))
		}
	}

	if d := u.Deduplicator; d != nil {
		for _, k := range d.Keys {
			if !slices.Contains(DedupKeys, k) {
				errs = append(errs, invalid("deduplicator.keys", "unknown key %q", k))
			}
		}
		if d.MultiGroupBehaviour != "" && !slices.Contains(MultiGroupBehaviours, d.MultiGroupBehaviour) {
			errs = append(errs, invalid("deduplicator.multiGroupBehaviour", "unknown behaviour %q", d.MultiGroupBehaviour))
		}
		for _, m := range []DedupMode{d.Cached, d.Uncached, d.P2P, d.HTTP, d.Live, d.YouTube, d.External} {
			if m != "" && !slices.Contains(DedupModes, m) {
				errs = append(errs, invalid("deduplicator", "unknown mode %q", m))
			}
		}
	}

	for _, list := range u.SortCriteria.All() {
		for _, c := range list {
			if !slices.Contains(SortKeys, c.Key) {
				errs = append(errs, invalid("sortCriteria", "unknown key %q", c.Key))
			}
			if c.Direction != SortAsc && c.Direction != SortDesc {
				errs = append(errs, invalid("sortCriteria", "direction for %q must be 'asc' or 'desc'", c.Key))
			}
		}
	}

	return errors.Join(errs...)
}

func validateStreamTypes(field string, types []StreamType) []error {
	var errs []error
	for _, t := range types {
		if !t.IsValid() {
			errs = append(errs, invalid(field, "unknown stream type %q", t))
		}
	}
	return errs
}

func validateSizeRanges(field string, r SizeRanges) []error {
	var errs []error
	if err := r.Movies.Validate(); err != nil {
		errs = append(errs, invalid(field+".movies", "%v", err))
	}
	if err := r.Series.Validate(); err != nil {
		errs = append(errs, invalid(field+".series", "%v", err))
	}
	return errs
}
