// Package debounce implements the client-side push queue: pushes arriving
// within a quiet period of each other are coalesced and dispatched together
// once the queue has been idle for that period, with an absolute max-wait
// bound so a steady stream of pushes cannot delay dispatch forever.
package debounce

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

// Dispatch sends one pulse to the remote service and returns its response.
type Dispatch func(ctx context.Context, p *domain.Pulse) (json.RawMessage, error)

const (
	DefaultQuiet   = 360 * time.Millisecond
	DefaultMaxWait = time.Second
)

// Options configure a Queue. Zero durations fall back to the defaults above.
type Options struct {
	Quiet           time.Duration
	MaxWait         time.Duration
	DispatchTimeout time.Duration
}

// Queue accumulates pulses and flushes them when either the quiet-period
// timer or the max-wait timer fires, whichever comes first. One live timer of
// each kind exists at any time; both are cancelled on flush.
type Queue struct {
	dispatch Dispatch
	obs      ports.Observability

	quiet   time.Duration
	maxWait time.Duration
	timeout time.Duration

	mu         sync.Mutex
	items      []*item
	quietTimer *time.Timer
	maxTimer   *time.Timer

	// dispatchMu serializes flush cycles so a later batch never starts
	// dispatching before an earlier batch has finished initiating its sends.
	dispatchMu sync.Mutex
	inflight   sync.WaitGroup
}

type item struct {
	pulse *domain.Pulse
	done  chan struct{}
	resp  json.RawMessage
	err   error
}

// Pending is the caller's handle on a queued pulse. Each Pending settles
// exactly once, with that pulse's own outcome.
type Pending struct {
	it *item
}

// Wait blocks until the pulse settles or the context ends. A context error
// does not consume the settlement; Wait can be called again.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-p.it.done:
		return p.it.resp, p.it.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done exposes the settlement channel for select loops.
func (p *Pending) Done() <-chan struct{} { return p.it.done }

// Settled wraps an outcome that is already known, for pushes that bypassed
// the queue.
func Settled(resp json.RawMessage, err error) *Pending {
	it := &item{done: make(chan struct{}), resp: resp, err: err}
	close(it.done)
	return &Pending{it: it}
}

func NewQueue(dispatch Dispatch, obs ports.Observability, opts Options) *Queue {
	if obs == nil {
		obs = nopObs{}
	}
	q := &Queue{
		dispatch: dispatch,
		obs:      obs,
		quiet:    opts.Quiet,
		maxWait:  opts.MaxWait,
		timeout:  opts.DispatchTimeout,
	}
	if q.quiet <= 0 {
		q.quiet = DefaultQuiet
	}
	if q.maxWait <= 0 {
		q.maxWait = DefaultMaxWait
	}
	return q
}

// Enqueue appends the pulse and returns immediately; the caller waits on the
// returned Pending, never on Enqueue itself. Every call restarts the quiet
// timer. Only the first item of a fresh batch arms the max-wait timer, which
// then runs out regardless of further traffic; an explicit MaxWait of zero
// still schedules a flush (AfterFunc fires it at once).
func (q *Queue) Enqueue(p *domain.Pulse, opt domain.PushOptions) *Pending {
	it := &item{pulse: p, done: make(chan struct{})}

	q.mu.Lock()
	first := len(q.items) == 0
	q.items = append(q.items, it)
	n := len(q.items)

	quiet := q.quiet
	if opt.Debounce != nil {
		quiet = *opt.Debounce
	}
	if q.quietTimer != nil {
		q.quietTimer.Stop()
	}
	q.quietTimer = time.AfterFunc(quiet, q.flush)

	if first {
		maxWait := q.maxWait
		if opt.MaxWait != nil {
			maxWait = *opt.MaxWait
		}
		q.maxTimer = time.AfterFunc(maxWait, q.flush)
	}
	q.mu.Unlock()

	q.obs.IncCounter("maxflow_pulses_queued_total", 1)
	q.obs.SetGauge("maxflow_queue_length", float64(n))
	return &Pending{it: it}
}

// Len reports the number of pulses waiting on the next flush.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush dispatches everything queued right now and waits for those sends to
// finish. Flushing an empty queue is a silent no-op, which also makes the
// quiet/max-wait timer race harmless.
func (q *Queue) Flush() {
	q.flush()
}

// Drain flushes and then waits for every in-flight dispatch, bounded by ctx.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.flush()
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) flush() {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	batch := q.items
	q.items = nil
	if q.quietTimer != nil {
		q.quietTimer.Stop()
		q.quietTimer = nil
	}
	if q.maxTimer != nil {
		q.maxTimer.Stop()
		q.maxTimer = nil
	}
	q.inflight.Add(len(batch))
	q.mu.Unlock()

	// Pushes arriving from here on belong to a fresh batch with its own
	// timers; this snapshot is the unit of dispatch.
	q.obs.IncCounter("maxflow_flushes_total", 1)

	// Re-read the length: a push may already have opened the next batch.
	q.mu.Lock()
	n := len(q.items)
	q.mu.Unlock()
	q.obs.SetGauge("maxflow_queue_length", float64(n))

	q.dispatchMu.Lock()
	start := time.Now()
	for _, it := range batch {
		q.dispatchOne(it)
		q.inflight.Done()
	}
	q.dispatchMu.Unlock()
	q.obs.ObserveLatency("maxflow_flush_latency_seconds", time.Since(start).Seconds())
}

// dispatchOne sends a single pulse and settles its Pending with that pulse's
// own outcome; a failure here is confined to this item.
func (q *Queue) dispatchOne(it *item) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	resp, err := q.dispatch(ctx, it.pulse)
	it.resp, it.err = resp, err
	close(it.done)

	if err != nil {
		q.obs.IncCounter("maxflow_dispatch_errors_total", 1)
		q.obs.LogError("pulse_dispatch_failed", err, ports.Field{Key: "pulse_id", Value: it.pulse.ID})
		return
	}
	q.obs.IncCounter("maxflow_pulses_dispatched_total", 1)
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}
