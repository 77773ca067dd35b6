// Package precompute annotates streams with the preferred rules they match
// so that sorting and expressions can read them without re-evaluating.
package precompute

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

type preferredRegex struct {
	rule models.RegexRule
	re   *regexp.Regexp
}

type preferredExpression struct {
	index   int
	program *expression.Program
}

// Precomputer writes the regex, keyword and expression annotations.
type Precomputer struct {
	engine      *expression.Engine
	logger      *slog.Logger
	regexes     []preferredRegex
	keywords    *regexp.Regexp
	expressions []preferredExpression
}

// NewPrecomputer compiles the preferred rules of userData. Expressions that do not
// compile are logged and skipped.
func NewPrecomputer(userData *models.UserData, engine *expression.Engine, logger *slog.Logger) (*Precomputer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Precomputer{engine: engine, logger: logger}

	for i, rule := range userData.PreferredRegexPatterns {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("preferred regex %d (%s): %w", i, rule.Name, err)
		}
		p.regexes = append(p.regexes, preferredRegex{rule: rule, re: re})
	}

	kw, err := shared.CompileKeywords(userData.PreferredKeywords)
	if err != nil {
		return nil, fmt.Errorf("preferred keywords: %w", err)
	}
	p.keywords = kw

	for i, src := range userData.PreferredStreamExpressions {
		prog, err := engine.Compile(src)
		if err != nil {
			logger.Warn("skipping preferred expression",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.expressions = append(p.expressions, preferredExpression{index: i, program: prog})
	}

	return p, nil
}

// Precompute resets and recomputes the annotations of every stream. It
// returns the number of streams that received at least one annotation.
func (p *Precomputer) Precompute(ctx context.Context, streams []*models.ParsedStream) int {
	for _, s := range streams {
		s.ResetAnnotations()
		p.applyRegex(s)
		s.KeywordMatched = shared.MatchesAny(p.keywords, s)
	}
	p.applyExpressions(ctx, streams)

	annotated := 0
	for _, s := range streams {
		if s.RegexMatched != nil || s.KeywordMatched || s.StreamExpressionMatched != nil {
			annotated++
		}
	}
	return annotated
}

// applyRegex records the first preferred rule that matches. A negated rule
// matches when the pattern matches none of the stream's fields.
func (p *Precomputer) applyRegex(s *models.ParsedStream) {
	for i, r := range p.regexes {
		matched := shared.MatchesAny(r.re, s)
		if r.rule.Negate {
			matched = !matched
		}
		if matched {
			s.RegexMatched = &models.RegexMatch{
				Name:    r.rule.Name,
				Pattern: r.rule.Pattern,
				Index:   i,
			}
			return
		}
	}
}

// applyExpressions lets each rule, in priority order, claim matching streams
// that no earlier rule claimed.
func (p *Precomputer) applyExpressions(ctx context.Context, streams []*models.ParsedStream) {
	if len(p.expressions) == 0 {
		return
	}
	unclaimed := make([]*models.ParsedStream, len(streams))
	copy(unclaimed, streams)

	for _, e := range p.expressions {
		if len(unclaimed) == 0 {
			return
		}
		selected, err := p.engine.Select(ctx, e.program, unclaimed)
		if err != nil {
			p.logger.WarnContext(ctx, "preferred expression failed",
				slog.Int("index", e.index),
				slog.String("expression", e.program.Source),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(selected) == 0 {
			continue
		}

		claimed := make(map[string]struct{}, len(selected))
		for _, s := range selected {
			claimed[s.ID] = struct{}{}
		}
		rest := unclaimed[:0]
		for _, s := range unclaimed {
			if _, ok := claimed[s.ID]; ok {
				s.StreamExpressionMatched = models.IntPtr(e.index)
				continue
			}
			rest = append(rest, s)
		}
		unclaimed = rest
	}
}
