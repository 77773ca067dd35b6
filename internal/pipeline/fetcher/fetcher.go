// Package fetcher queries addons group by group and runs the per-group
// pipeline over each group's results. Later groups are gated by an
// expression over what earlier groups produced.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
)

// DefaultMaxConcurrency bounds concurrent addon queries when no pool is given.
const DefaultMaxConcurrency = 16

// AddonClient fetches the streams one addon offers for a title.
type AddonClient interface {
	FetchStreams(ctx context.Context, addon models.Addon, mediaType, mediaID string) ([]*models.ParsedStream, error)
}

// Request is one fetch for a title.
type Request struct {
	MediaType string
	MediaID   string
	UserData  *models.UserData
}

// Result is the accumulated outcome of every executed group.
type Result struct {
	Streams    []*models.ParsedStream
	Errors     []models.StreamError
	Statistics []models.Statistic
	Groups     []GroupReport
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMetadata sets the lookup handed to the group pipeline for title
// matching. Each Fetch wraps it in a per-request memo.
func WithMetadata(lookup core.MetadataLookup) Option {
	return func(f *Fetcher) { f.metadata = lookup }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithPool runs addon queries on a caller-owned pool.
func WithPool(pool pond.Pool) Option {
	return func(f *Fetcher) {
		f.pool = pool
		f.ownsPool = false
	}
}

// WithMaxConcurrency sizes the pool the Fetcher creates for itself.
func WithMaxConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

// Fetcher drives the grouped fetch.
type Fetcher struct {
	client         AddonClient
	factory        core.OrchestratorFactory
	engine         *expression.Engine
	metadata       core.MetadataLookup
	logger         *slog.Logger
	pool           pond.Pool
	ownsPool       bool
	maxConcurrency int
}

// New creates a Fetcher. factory builds the per-group pipeline and engine
// evaluates group conditions.
func New(client AddonClient, factory core.OrchestratorFactory, engine *expression.Engine, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         client,
		factory:        factory,
		engine:         engine,
		logger:         slog.Default(),
		ownsPool:       true,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.engine == nil {
		f.engine = expression.NewEngine()
	}
	if f.pool == nil {
		f.pool = pond.NewPool(f.maxConcurrency)
		f.ownsPool = true
	}
	return f
}

// Close stops the pool if the Fetcher created it.
func (f *Fetcher) Close() {
	if f.ownsPool {
		f.pool.StopAndWait()
	}
}

// Fetch runs every group in order until one is gated off. A stage error
// fails the whole fetch; addon failures become error entries.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.UserData == nil {
		return nil, core.ErrNoUserData
	}

	plan := newPlan(req.UserData, f.engine, f.logger)
	var memo core.MetadataLookup
	if f.metadata != nil {
		memo = core.NewMetadataMemo(f.metadata)
	}

	result := &Result{
		Streams:    make([]*models.ParsedStream, 0),
		Errors:     make([]models.StreamError, 0),
		Statistics: make([]models.Statistic, 0),
	}
	start := time.Now()
	var (
		previous      []*models.ParsedStream
		previousTaken time.Duration
	)

	for plan.next() {
		g := plan.current()

		if g.index > 0 {
			ok, reason := f.gate(ctx, g, req.MediaType, previous, result.Streams, previousTaken, time.Since(start))
			if !ok {
				plan.skipRemaining(reason)
				f.logger.DebugContext(ctx, "group gated off",
					slog.Int("group", g.index),
					slog.String("reason", reason),
				)
				break
			}
		}

		plan.setState(GroupRunning)
		groupStart := time.Now()

		streams, addonErrors := f.fanOut(ctx, g.addons, req)
		result.Errors = append(result.Errors, addonErrors...)

		state := core.NewState(req.MediaType, req.MediaID, req.UserData, streams)
		if memo != nil {
			state.Metadata = memo
		}
		if _, err := f.factory.Create().Execute(ctx, state); err != nil {
			return nil, fmt.Errorf("group %d: %w", g.index, err)
		}

		previous = state.Streams
		previousTaken = time.Since(groupStart)
		result.Streams = append(result.Streams, state.Streams...)
		result.Statistics = append(result.Statistics, state.Statistics...)

		plan.complete(len(streams), len(state.Streams), len(addonErrors), previousTaken)
	}

	result.Groups = plan.reports()
	return result, nil
}

// gate decides whether a later group runs. Groups without a condition or
// without addons always run once reached.
func (f *Fetcher) gate(
	ctx context.Context,
	g *group,
	mediaType string,
	previous, total []*models.ParsedStream,
	previousTaken, totalTaken time.Duration,
) (bool, string) {
	if g.condition == "" || len(g.addons) == 0 {
		return true, ""
	}
	if g.parseErr != nil {
		f.logger.WarnContext(ctx, "group condition does not parse",
			slog.Int("group", g.index),
			slog.String("error", g.parseErr.Error()),
		)
		return false, "condition error: " + g.parseErr.Error()
	}
	ok, err := f.engine.Test(ctx, g.program, expression.Env{
		expression.BindPreviousStreams:        expression.Streams(previous),
		expression.BindTotalStreams:           expression.Streams(total),
		expression.BindPreviousGroupTimeTaken: expression.Number(float64(previousTaken.Milliseconds())),
		expression.BindTotalTimeTaken:         expression.Number(float64(totalTaken.Milliseconds())),
		expression.BindQueryType:              expression.String(mediaType),
	})
	if err != nil {
		f.logger.WarnContext(ctx, "group condition failed",
			slog.Int("group", g.index),
			slog.String("condition", g.condition),
			slog.String("error", err.Error()),
		)
		return false, "condition error: " + err.Error()
	}
	if !ok {
		return false, "condition not met"
	}
	return true, ""
}

// addonResult is the settled outcome of one addon query.
type addonResult struct {
	streams []*models.ParsedStream
	err     error
}

// fanOut queries every addon of a group concurrently and waits for all of
// them. Streams and errors are merged in addon order.
func (f *Fetcher) fanOut(ctx context.Context, addons []models.Addon, req Request) ([]*models.ParsedStream, []models.StreamError) {
	results := make([]addonResult, len(addons))
	tasks := f.pool.NewGroup()
	for i, addon := range addons {
		tasks.Submit(func() {
			results[i] = f.query(ctx, addon, req)
		})
	}
	// Tasks never return errors; failures are kept per addon.
	_ = tasks.Wait()

	var (
		streams []*models.ParsedStream
		errs    []models.StreamError
	)
	for i, r := range results {
		addon := addons[i]
		if r.err != nil {
			errs = append(errs, models.StreamError{Title: addon.Name, Description: r.err.Error()})
			continue
		}
		for _, s := range r.streams {
			if s == nil {
				continue
			}
			if s.IsError() {
				errs = append(errs, *s.Error)
				continue
			}
			streams = append(streams, s)
		}
	}
	return streams, errs
}

// query runs one addon request, bounded by the addon's own timeout.
func (f *Fetcher) query(ctx context.Context, addon models.Addon, req Request) (res addonResult) {
	defer func() {
		if r := recover(); r != nil {
			res = addonResult{err: fmt.Errorf("addon panicked: %v", r)}
		}
	}()

	if d := addon.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	streams, err := f.client.FetchStreams(ctx, addon, req.MediaType, req.MediaID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", time.Since(start).Round(time.Millisecond))
		}
		f.logger.WarnContext(ctx, "addon request failed",
			slog.String("addon", addon.Name),
			slog.String("addon_id", addon.InstanceID),
			slog.String("error", err.Error()),
		)
		return addonResult{err: err}
	}
	for _, s := range streams {
		if s != nil && s.Addon.InstanceID == "" {
			s.Addon = addon.Ref()
		}
	}
	f.logger.DebugContext(ctx, "addon request completed",
		slog.String("addon", addon.Name),
		slog.Int("streams", len(streams)),
		slog.Duration("duration", time.Since(start)),
	)
	return addonResult{streams: streams}
}
