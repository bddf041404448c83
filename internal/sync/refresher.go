// Package sync runs aggregation cycles on a timer for watch mode.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
)

// State is the refresher's current activity.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultInterval applies when no positive interval is configured.
const DefaultInterval = 5 * time.Minute

// Runner performs one aggregation cycle.
type Runner interface {
	Aggregate(ctx context.Context) model.AggregationResult
}

// Status is a snapshot of the refresher.
type Status struct {
	State    State
	Runs     int
	LastRun  time.Time
	Failures int
}

// Refresher runs the aggregator once at start, then on every tick and
// on every manual trigger.
type Refresher struct {
	runner   Runner
	interval time.Duration
	onResult func(model.AggregationResult)

	triggerCh chan struct{}
	stopCh    chan struct{}
	done      chan struct{}

	mu      gosync.Mutex
	started bool
	status  Status
	last    *model.AggregationResult
}

// New creates a refresher. onResult, when non-nil, is called on the
// refresher goroutine after every cycle.
func New(runner Runner, interval time.Duration, onResult func(model.AggregationResult)) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		runner:    runner,
		interval:  interval,
		onResult:  onResult,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the refresh loop. Calling Start more than once has no
// effect.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go r.loop(ctx)
}

// Trigger requests an immediate cycle. It never blocks; a trigger
// arriving while one is already pending is coalesced with it.
func (r *Refresher) Trigger() bool {
	select {
	case r.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started || r.status.State == StateStopped {
		r.status.State = StateStopped
		r.mu.Unlock()
		return
	}
	r.status.State = StateStopped
	r.mu.Unlock()

	close(r.stopCh)
	<-r.done
}

// Status returns a snapshot of the refresher.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Last returns the most recent result, if any cycle has completed.
func (r *Refresher) Last() (model.AggregationResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return model.AggregationResult{}, false
	}
	return *r.last, true
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			r.mu.Lock()
			r.status.State = StateStopped
			r.mu.Unlock()
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.triggerCh:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	log := logger.FromContext(ctx)

	r.mu.Lock()
	if r.status.State == StateStopped {
		r.mu.Unlock()
		return
	}
	r.status.State = StateRunning
	r.mu.Unlock()

	result := r.runner.Aggregate(ctx)

	r.mu.Lock()
	r.status.Runs++
	r.status.LastRun = result.LastUpdated
	if len(result.Errors) > 0 {
		r.status.Failures++
	}
	if r.status.State == StateRunning {
		r.status.State = StateIdle
	}
	r.last = &result
	r.mu.Unlock()

	log.Debug("sync: refresh complete", "tasks", result.TotalCount, "errors", len(result.Errors))
	if r.onResult != nil {
		r.onResult(result)
	}
}
