package fetcher

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
)

// GroupState is the lifecycle of one group within a fetch.
type GroupState int

// Group states. A group only moves forward through them.
const (
	GroupPending GroupState = iota
	GroupRunning
	GroupCompleted
	GroupSkipped
)

// String returns the state name.
func (s GroupState) String() string {
	switch s {
	case GroupPending:
		return "pending"
	case GroupRunning:
		return "running"
	case GroupCompleted:
		return "completed"
	case GroupSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s GroupState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GroupReport describes what happened to one group.
type GroupReport struct {
	Index      int           `json:"index"`
	Addons     []string      `json:"addons"`
	State      GroupState    `json:"state"`
	Fetched    int           `json:"fetched"`
	Kept       int           `json:"kept"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
	SkipReason string        `json:"skipReason,omitempty"`
}

type group struct {
	index     int
	addons    []models.Addon
	condition string
	program   *expression.Program
	parseErr  error
	report    GroupReport
}

// plan holds the groups of one fetch and a single forward cursor.
type plan struct {
	groups []*group
	cursor int
}

// newPlan resolves the configured groups against the enabled addons. With no
// groups configured, one group holds every enabled addon. Unknown or
// disabled addon ids are dropped. Conditions of later groups are compiled
// here, once per fetch.
func newPlan(ud *models.UserData, engine *expression.Engine, logger *slog.Logger) *plan {
	p := &plan{cursor: -1}

	if len(ud.Groups) == 0 {
		p.add("", ud.EnabledAddons())
		return p
	}

	for i, cfg := range ud.Groups {
		addons := make([]models.Addon, 0, len(cfg.Addons))
		for _, id := range cfg.Addons {
			addon, ok := ud.AddonByID(id)
			if !ok || !addon.IsEnabled() {
				logger.Debug("dropping addon from group",
					slog.Int("group", i),
					slog.String("addon_id", id),
				)
				continue
			}
			addons = append(addons, addon)
		}
		g := p.add(cfg.Condition, addons)
		if i > 0 && g.condition != "" {
			g.program, g.parseErr = engine.Compile(g.condition)
		}
	}
	return p
}

func (p *plan) add(condition string, addons []models.Addon) *group {
	ids := make([]string, len(addons))
	for i, a := range addons {
		ids[i] = a.InstanceID
	}
	idx := len(p.groups)
	g := &group{
		index:     idx,
		addons:    addons,
		condition: condition,
		report:    GroupReport{Index: idx, Addons: ids, State: GroupPending},
	}
	p.groups = append(p.groups, g)
	return g
}

// next advances the cursor. It returns false past the last group.
func (p *plan) next() bool {
	if p.cursor+1 >= len(p.groups) {
		return false
	}
	p.cursor++
	return true
}

func (p *plan) current() *group {
	return p.groups[p.cursor]
}

func (p *plan) setState(s GroupState) {
	p.current().report.State = s
}

func (p *plan) complete(fetched, kept, errs int, d time.Duration) {
	r := &p.current().report
	r.State = GroupCompleted
	r.Fetched = fetched
	r.Kept = kept
	r.Errors = errs
	r.Duration = d
}

// skipRemaining marks the current group and every later one as skipped.
func (p *plan) skipRemaining(reason string) {
	for _, g := range p.groups[p.cursor:] {
		g.report.State = GroupSkipped
		g.report.SkipReason = reason
	}
	p.cursor = len(p.groups)
}

func (p *plan) reports() []GroupReport {
	out := make([]GroupReport, len(p.groups))
	for i, g := range p.groups {
		out[i] = g.report
	}
	return out
}
