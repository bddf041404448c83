// Package notify delivers cycle summaries to subscribers without ever
// holding up the aggregation that produced them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
)

// DefaultBuffer is the number of summaries queued before Emit drops.
const DefaultBuffer = 16

// Subscriber consumes summaries. Notify runs on the dispatcher goroutine,
// one summary at a time.
type Subscriber interface {
	Notify(ctx context.Context, summary model.Summary) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, summary model.Summary) error

// Notify calls f.
func (f SubscriberFunc) Notify(ctx context.Context, summary model.Summary) error {
	return f(ctx, summary)
}

// Dispatcher queues summaries on a buffered channel and fans them out to
// subscribers from a single goroutine.
type Dispatcher struct {
	ch   chan model.Summary
	subs []Subscriber
	log  logger.Logger
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewDispatcher starts a dispatcher. A non-positive buffer selects
// DefaultBuffer.
func NewDispatcher(ctx context.Context, buffer int, subs ...Subscriber) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{
		ch:   make(chan model.Summary, buffer),
		subs: subs,
		log:  logger.FromContext(ctx).With("component", "notify"),
		done: make(chan struct{}),
	}
	go d.loop(context.WithoutCancel(ctx))
	return d
}

// Emit queues summary for delivery. It never blocks: when the buffer is
// full or the dispatcher is closed, the summary is dropped.
func (d *Dispatcher) Emit(summary model.Summary) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- summary:
	default:
		d.log.Warn("notify: buffer full, dropping summary", "cycle", summary.CycleID)
		d.dropped.Add(1)
	}
}

// Dropped reports how many summaries were discarded because the buffer
// was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting summaries, delivers the ones already queued and
// waits for the dispatcher goroutine to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for summary := range d.ch {
		for _, sub := range d.subs {
			if err := deliver(ctx, sub, summary); err != nil {
				d.log.Warn("notify: subscriber failed", "cycle", summary.CycleID, "error", err)
			}
		}
	}
}

// deliver isolates one subscriber so a panic cannot stop the loop.
func deliver(ctx context.Context, sub Subscriber, summary model.Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return sub.Notify(ctx, summary)
}
