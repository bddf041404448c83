// Package aggregate runs one refresh cycle across every registered
// source and merges the results into a single sorted envelope.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/normalize"
	"github.com/git-tkc/self-assistant/internal/source"
)

// ErrUnknownSource is returned when a request names a source that has no
// registered adapter. No adapter is invoked in that case.
var ErrUnknownSource = errors.New("unknown source")

// ErrDuplicateSource is returned by Register for a second adapter with
// the same name.
var ErrDuplicateSource = errors.New("source already registered")

// Credentials yields the capability handles for one request.
type Credentials interface {
	Resolve(ctx context.Context) credential.Set
}

// Emitter receives the summary of every cycle. Emit must not block.
type Emitter interface {
	Emit(summary model.Summary)
}

// StaticCredentials serves the same handles for every request.
type StaticCredentials credential.Set

// Resolve returns the fixed set.
func (s StaticCredentials) Resolve(context.Context) credential.Set {
	return credential.Set(s)
}

type discardEmitter struct{}

func (discardEmitter) Emit(model.Summary) {}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithEmitter routes cycle summaries to e.
func WithEmitter(e Emitter) Option {
	return func(a *Aggregator) {
		if e != nil {
			a.emitter = e
		}
	}
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator owns the adapter registry. It holds no per-cycle state, so
// one value may serve concurrent requests.
type Aggregator struct {
	creds    Credentials
	adapters []source.Adapter
	byName   map[model.SourceName]source.Adapter
	emitter  Emitter
	now      func() time.Time
}

// New creates an aggregator with no adapters registered.
func New(creds Credentials, opts ...Option) *Aggregator {
	a := &Aggregator{
		creds:   creds,
		byName:  make(map[model.SourceName]source.Adapter),
		emitter: discardEmitter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds an adapter. Registration order is the concatenation
// order used when tasks tie on every sort key.
func (a *Aggregator) Register(adapter source.Adapter) error {
	name := adapter.Name()
	if _, ok := a.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, name)
	}
	a.byName[name] = adapter
	a.adapters = append(a.adapters, adapter)
	return nil
}

// Sources lists registered source names in registration order.
func (a *Aggregator) Sources() []model.SourceName {
	names := make([]model.SourceName, 0, len(a.adapters))
	for _, ad := range a.adapters {
		names = append(names, ad.Name())
	}
	return names
}

func (a *Aggregator) lookup(name string) (source.Adapter, error) {
	adapter, ok := a.byName[model.SourceName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return adapter, nil
}

// Aggregate runs one cycle over every registered adapter.
func (a *Aggregator) Aggregate(ctx context.Context) model.AggregationResult {
	return a.run(ctx, a.adapters)
}

// AggregateSource runs one cycle restricted to the named source.
func (a *Aggregator) AggregateSource(ctx context.Context, name string) (model.AggregationResult, error) {
	adapter, err := a.lookup(name)
	if err != nil {
		return model.AggregationResult{}, err
	}
	return a.run(ctx, []source.Adapter{adapter}), nil
}

// Probe runs the connectivity check of the named source.
func (a *Aggregator) Probe(ctx context.Context, name string) (model.ProbeResult, error) {
	adapter, err := a.lookup(name)
	if err != nil {
		return model.ProbeResult{}, err
	}
	return adapter.Probe(ctx, a.creds.Resolve(ctx)), nil
}

// outcome is one adapter's contribution to a cycle.
type outcome struct {
	name  model.SourceName
	tasks []model.Task
	err   error
}

func (a *Aggregator) run(ctx context.Context, adapters []source.Adapter) model.AggregationResult {
	cycleID := uuid.NewString()
	log := logger.FromContext(ctx).With("cycle", cycleID)
	ctx = logger.ContextWithLogger(ctx, log)

	creds := a.creds.Resolve(ctx)
	log.Debug("aggregate: starting cycle", "sources", len(adapters))

	// Each goroutine writes only its own slot; the merge happens after Wait.
	slots := make([]outcome, len(adapters))
	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			slots[i] = collect(ctx, adapter, creds)
			return nil
		})
	}
	_ = g.Wait()

	result := model.AggregationResult{Tasks: []model.Task{}}
	summary := model.Summary{
		CycleID:        cycleID,
		PerSourceCount: make(map[model.SourceName]int, len(slots)),
		PerSourceError: make(map[model.SourceName]bool, len(slots)),
	}

	seen := make(map[string]struct{})
	for _, o := range slots {
		summary.PerSourceError[o.name] = o.err != nil
		if o.err != nil {
			log.Warn("aggregate: source failed", "source", o.name, "error", o.err)
			result.Errors = append(result.Errors, model.SourceError{
				SourceName:   o.name,
				ErrorMessage: o.err.Error(),
			})
			if summary.ErrorMessages == nil {
				summary.ErrorMessages = make(map[model.SourceName]string)
			}
			summary.ErrorMessages[o.name] = o.err.Error()
			continue
		}

		count := 0
		for _, task := range o.tasks {
			if _, dup := seen[task.ID]; dup {
				log.Warn("aggregate: dropping duplicate task id", "id", task.ID)
				continue
			}
			seen[task.ID] = struct{}{}
			result.Tasks = append(result.Tasks, task)
			count++
		}
		summary.PerSourceCount[o.name] = count
	}

	Sort(result.Tasks)
	result.TotalCount = len(result.Tasks)
	result.LastUpdated = a.now()

	summary.Total = result.TotalCount
	summary.CompletedAt = result.LastUpdated
	a.emitter.Emit(summary)

	log.Info("aggregate: cycle complete",
		"tasks", result.TotalCount,
		"failed_sources", len(result.Errors),
	)
	return result
}

// collect runs one adapter and normalizes its records. A panicking
// adapter is reported like any other failure.
func collect(ctx context.Context, adapter source.Adapter, creds credential.Set) (out outcome) {
	name := adapter.Name()
	out.name = name
	log := logger.FromContext(ctx).With("source", name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("aggregate: adapter panicked", "panic", r, "stack", string(debug.Stack()))
			out.tasks = nil
			out.err = source.Rejected(name, fmt.Sprintf("adapter panicked: %v", r), nil)
		}
	}()

	records, err := adapter.Fetch(ctx, creds)
	if err != nil {
		out.err = err
		return out
	}

	out.tasks = make([]model.Task, 0, len(records))
	for _, rec := range records {
		if origin := rec.Origin(); origin != "" && origin != name {
			log.Warn("aggregate: dropping record from foreign source", "origin", origin)
			continue
		}
		task := normalize.Task(rec)
		task.ID = fmt.Sprintf("%s_%s", name, rec.LocalID())
		task.SourceName = name
		out.tasks = append(out.tasks, task)
	}
	return out
}

// Sort orders tasks by descending priority, then by ascending due date
// with dated tasks ahead of undated ones. Ties keep their input order.
func Sort(tasks []model.Task) {
	slices.SortStableFunc(tasks, compare)
}

func compare(a, b model.Task) int {
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return -1
		}
		return 1
	}
	switch {
	case a.DueDate != nil && b.DueDate != nil:
		return a.DueDate.Compare(*b.DueDate)
	case a.DueDate != nil:
		return -1
	case b.DueDate != nil:
		return 1
	default:
		return 0
	}
}
