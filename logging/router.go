package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies event timestamps; swapped out in tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sink receives routed events. Write is called from the router's dispatch
// goroutine only; Close flushes any buffered output.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router fans events out to named sinks from a single dispatch goroutine.
// Publish never blocks; events are dropped when the queue is full, with a
// throttled warning on the fallback logger.
type Router struct {
	cfg      Config
	queue    chan Event
	sinks    map[string]Sink
	clock    Clock
	fallback *log.Logger
	fields   map[string]any
	cancel   context.CancelFunc
	closed   atomic.Bool
	wg       sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

// RouterStats reports routing counters for diagnostics.
type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

// NewRouter constructs and starts a router over the provided sinks.
func NewRouter(clock Clock, cfg Config, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	ctx, cancel := context.WithCancel(context.Background())

	r := &Router{
		cfg:      cfg,
		queue:    make(chan Event, bufferSize),
		sinks:    make(map[string]Sink, len(sinks)),
		clock:    clock,
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		fields:   cfg.CloneFields(),
		cancel:   cancel,
	}
	for name, sink := range sinks {
		if sink == nil {
			continue
		}
		r.sinks[name] = sink
	}

	r.wg.Add(1)
	go r.dispatch(ctx)
	return r, nil
}

func (r *Router) dispatch(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Flush whatever is still queued before shutting down.
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	r.eventsTotal.Add(1)
	for name, sink := range r.sinks {
		if err := sink.Write(event); err != nil {
			r.fallback.Printf("sink %s rejected event type=%s: %v", name, event.Type, err)
		}
	}
}

// Publish implements Publisher.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.recordDrop(event)
	}
}

func (r *Router) recordDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	last := r.lastDropLog.Load()
	if last == 0 || now >= last {
		if r.lastDropLog.CompareAndSwap(last, now+interval.Nanoseconds()) {
			r.fallback.Printf("dropping event type=%s tick=%d queue full", event.Type, event.Tick)
		}
	}
}

// Close stops dispatch, flushes the queue, and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports the router's counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// Sink returns the named sink, or nil when absent.
func (r *Router) Sink(name string) Sink {
	return r.sinks[name]
}
