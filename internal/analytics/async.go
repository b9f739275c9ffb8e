package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	applog "dompet/internal/log"
)

const (
	DefaultBufferSize   = 256
	DefaultTrackTimeout = 5 * time.Second
)

var (
	ErrBufferFull    = errors.New("analytics buffer is full")
	ErrTrackerClosed = errors.New("analytics tracker is closed")
)

// Async queues events for a single background goroutine that forwards them
// to the wrapped tracker. Track never waits on the wrapped tracker; events
// arriving while the buffer is full are dropped.
type Async struct {
	next    Tracker
	timeout time.Duration
	logger  *applog.Logger

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewAsync(next Tracker, buffer int, timeout time.Duration, logger *applog.Logger) *Async {
	if buffer < 1 {
		buffer = DefaultBufferSize
	}
	if timeout <= 0 {
		timeout = DefaultTrackTimeout
	}
	if logger == nil {
		logger = applog.Discard()
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		logger:  logger.WithComponent(applog.ComponentAnalytics),
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Track(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrTrackerClosed
	}
	select {
	case a.events <- e:
		return nil
	default:
		a.dropped.Add(1)
		return ErrBufferFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Track(ctx, e)
		cancel()
		if err != nil {
			a.failed.Add(1)
			a.logger.Warn("Failed to forward analytics event",
				applog.FieldEventID, e.ID,
				applog.FieldEventName, e.Name,
				applog.FieldError, err)
		}
	}
}

// Close stops accepting events and waits for the queued ones to be
// forwarded or for ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued events.
func (a *Async) Pending() int {
	return len(a.events)
}

// Dropped returns the number of events rejected because the buffer was full.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Failed returns the number of events the wrapped tracker rejected.
func (a *Async) Failed() int64 {
	return a.failed.Load()
}
