package filtering

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jmylchreest/streamfold/internal/models"
)

// DefaultSimilarity is the fuzzy title threshold used when none is configured.
const DefaultSimilarity = 0.85

// requestContext holds per-call facts derived from the request.
type requestContext struct {
	mediaType string
	mediaID   string
	parsedID  models.MediaID
	idErr     error

	metaLoaded bool
	titles     []string // normalized canonical titles
	meta       *models.Metadata
}

func newRequestContext(req Request) *requestContext {
	rc := &requestContext{mediaType: req.MediaType, mediaID: req.MediaID}
	rc.parsedID, rc.idErr = models.ParseMediaID(req.MediaID)
	return rc
}

// loadMetadata resolves the canonical titles once per call. It returns nil when
// the lookup is unavailable or failed.
func (f *Filterer) loadMetadata(ctx context.Context, rc *requestContext) *models.Metadata {
	if rc.metaLoaded {
		return rc.meta
	}
	rc.metaLoaded = true

	if f.metadata == nil || rc.idErr != nil {
		return nil
	}
	meta, err := f.metadata.LookupMetadata(ctx, rc.parsedID.BaseID(), rc.mediaType)
	if err != nil {
		f.logger.DebugContext(ctx, "metadata lookup failed, skipping title matching",
			slog.String("media_id", rc.mediaID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if meta == nil || len(meta.Titles) == 0 {
		return nil
	}
	rc.meta = meta
	for _, t := range meta.Titles {
		if n := normalizeTitle(t); n != "" {
			rc.titles = append(rc.titles, n)
		}
	}
	return meta
}

// titleReason applies title and year matching.
func (f *Filterer) titleReason(ctx context.Context, s *models.ParsedStream, rc *requestContext) string {
	tm := f.userData.TitleMatching
	if tm == nil || !tm.Enabled || !inScope(tm.RequestTypes, tm.Addons, rc.mediaType, s) {
		return ""
	}
	meta := f.loadMetadata(ctx, rc)
	if meta == nil {
		return ""
	}

	file := s.File()
	if title := normalizeTitle(file.Title); title != "" && len(rc.titles) > 0 {
		if !matchTitle(title, rc.titles, tm.Mode, tm.Similarity) {
			return "title"
		}
	}

	if tm.MatchYear && meta.Year > 0 {
		if !matchYear(file.Year, meta, rc.mediaType, tm.YearTolerance) {
			return "year"
		}
	}
	return ""
}

// matchTitle compares a normalized title against the canonical titles.
func matchTitle(title string, canonical []string, mode string, similarity float64) bool {
	for _, c := range canonical {
		switch mode {
		case models.TitleMatchContains:
			if strings.Contains(title, c) {
				return true
			}
		case models.TitleMatchFuzzy:
			if similarity <= 0 {
				similarity = DefaultSimilarity
			}
			if titleSimilarity(title, c) >= similarity {
				return true
			}
		default:
			if title == c {
				return true
			}
		}
	}
	return false
}

// titleSimilarity returns 1 minus the edit distance over the longer length.
func titleSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// matchYear checks the parsed year against the canonical year, widened by
// tolerance. Series accept any year up to the end year. A movie with no
// parsed year fails; a series with no parsed year passes.
func matchYear(year int, meta *models.Metadata, mediaType string, tolerance int) bool {
	if year == 0 {
		return mediaType != models.MediaTypeMovie
	}
	lo, hi := meta.Year-tolerance, meta.Year+tolerance
	if mediaType != models.MediaTypeMovie && meta.EndYear > meta.Year {
		hi = meta.EndYear + tolerance
	}
	return year >= lo && year <= hi
}

// seasonEpisodeReason drops a stream whose parsed seasons or episodes are
// populated and disjoint from the request.
func (f *Filterer) seasonEpisodeReason(s *models.ParsedStream, rc *requestContext) string {
	sem := f.userData.SeasonEpisodeMatching
	if sem == nil || !sem.Enabled || rc.idErr != nil || rc.mediaType == models.MediaTypeMovie {
		return ""
	}
	if !inScope(sem.RequestTypes, sem.Addons, rc.mediaType, s) {
		return ""
	}

	file := s.File()
	if rc.parsedID.Season > 0 && len(file.Seasons) > 0 && !slices.Contains(file.Seasons, rc.parsedID.Season) {
		return "season"
	}
	if rc.parsedID.Episode > 0 && len(file.Episodes) > 0 && !slices.Contains(file.Episodes, rc.parsedID.Episode) {
		return "episode"
	}
	return ""
}

// inScope reports whether a rule restricted to request types and addons
// applies. Empty lists mean no restriction.
func inScope(requestTypes, addons []string, mediaType string, s *models.ParsedStream) bool {
	if len(requestTypes) > 0 && !slices.Contains(requestTypes, mediaType) {
		return false
	}
	if len(addons) > 0 && !slices.Contains(addons, s.Addon.InstanceID) {
		return false
	}
	return true
}

// normalizeTitle strips diacritics and anything that is not a letter or digit,
// then case-folds.
func normalizeTitle(title string) string {
	if title == "" {
		return ""
	}
	// Transformers and casers are stateful, so they are built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, title)
	if err != nil {
		stripped = title
	}
	stripped = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, stripped)
	return cases.Fold().String(stripped)
}
