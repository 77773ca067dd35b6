// Package shared provides utilities shared between pipeline stages.
package shared

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmylchreest/streamfold/internal/models"
)

// Attribute projects a list-of-enum category onto a stream. Absent values
// read as models.Unknown so that every rule is total.
type Attribute struct {
	Name   string
	Values func(*models.ParsedStream) []string
}

// Attribute categories shared by the filter and sort stages.
var (
	AttrStreamType = Attribute{"stream type", func(s *models.ParsedStream) []string {
		return []string{string(s.Type)}
	}}
	AttrResolution = Attribute{"resolution", func(s *models.ParsedStream) []string {
		return []string{s.Resolution()}
	}}
	AttrQuality = Attribute{"quality", func(s *models.ParsedStream) []string {
		return []string{s.Quality()}
	}}
	AttrEncode = Attribute{"encode", func(s *models.ParsedStream) []string {
		return []string{s.Encode()}
	}}
	AttrVisualTag     = Attribute{"visual tag", (*models.ParsedStream).VisualTags}
	AttrAudioTag      = Attribute{"audio tag", (*models.ParsedStream).AudioTags}
	AttrAudioChannels = Attribute{"audio channel", (*models.ParsedStream).AudioChannels}
	AttrLanguage      = Attribute{"language", (*models.ParsedStream).Languages}
)

// Rank returns the best (lowest) position in preferred of any of values, or -1.
func Rank(preferred, values []string) int {
	best := -1
	for _, v := range values {
		for i, p := range preferred {
			if best >= 0 && i >= best {
				break
			}
			if strings.EqualFold(p, v) {
				best = i
				break
			}
		}
	}
	return best
}

// ContainsAny reports whether any of values appears in list, ignoring case.
func ContainsAny(list, values []string) bool {
	return Rank(list, values) >= 0
}

// ContainsAll reports whether every one of values appears in list, ignoring case.
func ContainsAll(list, values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if Rank(list, []string{v}) < 0 {
			return false
		}
	}
	return true
}

// TypeStrings converts stream types to plain strings.
func TypeStrings(types []models.StreamType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// MatchTargets returns the stream fields that regexes and keywords run against.
func MatchTargets(s *models.ParsedStream) []string {
	out := make([]string, 0, 4)
	for _, v := range []string{s.Filename, s.FolderName, s.ReleaseGroup(), s.Indexer} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MatchesAny reports whether re matches any of the stream's match targets.
// A nil pattern never matches.
func MatchesAny(re *regexp.Regexp, s *models.ParsedStream) bool {
	if re == nil {
		return false
	}
	for _, t := range MatchTargets(s) {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// CompilePatterns compiles a list of regular expressions.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// CompileKeywords builds one case-insensitive alternation that matches any
// keyword as a whole word. Returns nil when there are no keywords.
func CompileKeywords(keywords []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return nil, nil
	}
	pattern := `(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling keywords: %w", err)
	}
	return re, nil
}
