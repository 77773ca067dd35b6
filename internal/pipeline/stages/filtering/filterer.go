package filtering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

// Request identifies what the streams were fetched for.
type Request struct {
	MediaType string
	MediaID   string
}

// Option configures a Filterer.
type Option func(*Filterer)

// WithMetadata sets the lookup used for title and year matching.
func WithMetadata(lookup core.MetadataLookup) Option {
	return func(f *Filterer) { f.metadata = lookup }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filterer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// compiledExpression is a user expression that parsed successfully.
type compiledExpression struct {
	index   int
	program *expression.Program
}

// Filterer applies the include, exclude and require rules of one user
// configuration. A Filterer keeps removal counts and is not safe for
// concurrent use.
type Filterer struct {
	userData *models.UserData
	engine   *expression.Engine
	metadata core.MetadataLookup
	logger   *slog.Logger

	excludedRegex []*regexp.Regexp
	requiredRegex []*regexp.Regexp
	includedRegex []*regexp.Regexp

	excludedKeywords *regexp.Regexp
	requiredKeywords *regexp.Regexp
	includedKeywords *regexp.Regexp

	excludedExpressions []compiledExpression
	requiredExpressions []compiledExpression
	includedExpressions []compiledExpression

	rules []attributeRule
	stats *statistics
}

// NewFilterer compiles the rules of userData. Invalid regexes are an error;
// expressions that fail to parse are logged and skipped.
func NewFilterer(userData *models.UserData, engine *expression.Engine, opts ...Option) (*Filterer, error) {
	f := &Filterer{
		userData: userData,
		engine:   engine,
		logger:   slog.Default(),
		rules:    buildAttributeRules(userData),
		stats:    newStatistics(),
	}
	for _, opt := range opts {
		opt(f)
	}

	var err error
	if f.excludedRegex, err = shared.CompilePatterns(userData.ExcludedRegexPatterns); err != nil {
		return nil, fmt.Errorf("excluded regex: %w", err)
	}
	if f.requiredRegex, err = shared.CompilePatterns(userData.RequiredRegexPatterns); err != nil {
		return nil, fmt.Errorf("required regex: %w", err)
	}
	if f.includedRegex, err = shared.CompilePatterns(userData.IncludedRegexPatterns); err != nil {
		return nil, fmt.Errorf("included regex: %w", err)
	}

	if f.excludedKeywords, err = shared.CompileKeywords(userData.ExcludedKeywords); err != nil {
		return nil, err
	}
	if f.requiredKeywords, err = shared.CompileKeywords(userData.RequiredKeywords); err != nil {
		return nil, err
	}
	if f.includedKeywords, err = shared.CompileKeywords(userData.IncludedKeywords); err != nil {
		return nil, err
	}

	f.excludedExpressions = f.compileExpressions("excluded", userData.ExcludedStreamExpressions)
	f.requiredExpressions = f.compileExpressions("required", userData.RequiredStreamExpressions)
	f.includedExpressions = f.compileExpressions("included", userData.IncludedStreamExpressions)

	return f, nil
}

func (f *Filterer) compileExpressions(kind string, sources []string) []compiledExpression {
	out := make([]compiledExpression, 0, len(sources))
	for i, src := range sources {
		prog, err := f.engine.Compile(src)
		if err != nil {
			f.logger.Warn("skipping stream expression",
				slog.String("kind", kind),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, compiledExpression{index: i, program: prog})
	}
	return out
}

// Filter returns the streams that survive every rule, in input order.
//
// Per stream, include overrides are checked first and bypass every other
// rule. Exclude rules, require rules, title matching and season/episode
// matching follow. Expression lists then run over the whole collection.
// An expression that returns streams not in its input fails the call with
// expression.ErrInvalidResult; any other expression failure skips the rule.
func (f *Filterer) Filter(ctx context.Context, streams []*models.ParsedStream, req Request) ([]*models.ParsedStream, error) {
	rc := newRequestContext(req)

	survivors := make([]*models.ParsedStream, 0, len(streams))
	protected := make(map[string]bool)
	for _, s := range streams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Addon.ResultPassthrough || f.isIncluded(s) {
			protected[s.ID] = true
			survivors = append(survivors, s)
			continue
		}
		if reason := f.rejectReason(ctx, s, rc); reason != "" {
			f.stats.add(reason)
			continue
		}
		survivors = append(survivors, s)
	}

	kept, err := f.applyExpressions(ctx, streams, survivors, protected)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ParsedStream, 0, len(kept))
	for _, s := range streams {
		if kept[s.ID] {
			out = append(out, s)
			delete(kept, s.ID)
		}
	}
	return out, nil
}

// applyExpressions runs the expression lists and returns the ids to keep:
// expression-included streams plus per-stream survivors that pass the
// excluded and required expressions. Protected survivors skip both lists.
func (f *Filterer) applyExpressions(
	ctx context.Context,
	all, survivors []*models.ParsedStream,
	protected map[string]bool,
) (map[string]bool, error) {
	kept := make(map[string]bool, len(survivors))

	for _, e := range f.includedExpressions {
		selected, err := f.selectStreams(ctx, "included", e, all)
		if err != nil {
			return nil, err
		}
		for _, s := range selected {
			kept[s.ID] = true
		}
	}

	candidates := make([]*models.ParsedStream, 0, len(survivors))
	for _, s := range survivors {
		if protected[s.ID] {
			kept[s.ID] = true
			continue
		}
		candidates = append(candidates, s)
	}

	for _, e := range f.excludedExpressions {
		if len(candidates) == 0 {
			break
		}
		selected, err := f.selectStreams(ctx, "excluded", e, candidates)
		if err != nil {
			return nil, err
		}
		if selected == nil {
			continue
		}
		drop := idSet(selected)
		candidates = f.retain(candidates, func(s *models.ParsedStream) bool { return !drop[s.ID] }, kept, "excluded stream expression")
	}

	// A stream survives when any evaluated required expression selects it.
	var required map[string]bool
	for _, e := range f.requiredExpressions {
		if len(candidates) == 0 {
			break
		}
		selected, err := f.selectStreams(ctx, "required", e, candidates)
		if err != nil {
			return nil, err
		}
		if selected == nil {
			continue
		}
		if required == nil {
			required = make(map[string]bool, len(selected))
		}
		for _, s := range selected {
			required[s.ID] = true
		}
	}
	if required != nil {
		candidates = f.retain(candidates, func(s *models.ParsedStream) bool { return required[s.ID] }, kept, "required stream expression")
	}

	for _, s := range candidates {
		kept[s.ID] = true
	}
	return kept, nil
}

// retain filters candidates, counting removals that an expression include
// did not rescue.
func (f *Filterer) retain(
	candidates []*models.ParsedStream,
	keep func(*models.ParsedStream) bool,
	rescued map[string]bool,
	reason string,
) []*models.ParsedStream {
	out := candidates[:0:0]
	for _, s := range candidates {
		if keep(s) {
			out = append(out, s)
		} else if !rescued[s.ID] {
			f.stats.add(reason)
		}
	}
	return out
}

// selectStreams evaluates one expression. A nil result with a nil error means
// the rule was skipped.
func (f *Filterer) selectStreams(
	ctx context.Context,
	kind string,
	e compiledExpression,
	streams []*models.ParsedStream,
) ([]*models.ParsedStream, error) {
	selected, err := f.engine.Select(ctx, e.program, streams)
	if err == nil {
		if selected == nil {
			selected = []*models.ParsedStream{}
		}
		return selected, nil
	}
	if errors.Is(err, expression.ErrInvalidResult) {
		return nil, fmt.Errorf("%s stream expression %d: %w", kind, e.index, err)
	}
	f.logger.WarnContext(ctx, "stream expression failed, skipping rule",
		slog.String("kind", kind),
		slog.Int("index", e.index),
		slog.String("expression", e.program.Source),
		slog.String("error", err.Error()),
	)
	return nil, nil
}

// Statistics returns one entry per removal reason, in first-seen order.
func (f *Filterer) Statistics() []models.Statistic {
	return f.stats.entries()
}

// Removed returns the total number of streams removed so far.
func (f *Filterer) Removed() int {
	return f.stats.total
}

func idSet(streams []*models.ParsedStream) map[string]bool {
	out := make(map[string]bool, len(streams))
	for _, s := range streams {
		out[s.ID] = true
	}
	return out
}

// statistics counts removals per reason.
type statistics struct {
	order  []string
	counts map[string]int
	total  int
}

func newStatistics() *statistics {
	return &statistics{counts: make(map[string]int)}
}

func (s *statistics) add(reason string) {
	if _, ok := s.counts[reason]; !ok {
		s.order = append(s.order, reason)
	}
	s.counts[reason]++
	s.total++
}

func (s *statistics) entries() []models.Statistic {
	out := make([]models.Statistic, 0, len(s.order))
	for _, reason := range s.order {
		n := s.counts[reason]
		noun := "streams"
		if n == 1 {
			noun = "stream"
		}
		out = append(out, models.Statistic{
			Title:       "Filtered",
			Description: fmt.Sprintf("Removed %d %s by %s", n, noun, reason),
		})
	}
	return out
}
