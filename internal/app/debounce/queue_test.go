package debounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

func TestBurstCoalescesIntoSingleFlush(t *testing.T) {
	rec := &recorder{}
	obs := &countingObs{}
	q := NewQueue(rec.dispatch, obs, Options{Quiet: 40 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var pendings []*Pending
	for i := 0; i < 3; i++ {
		p := &domain.Pulse{ID: fmt.Sprintf("p%d", i), EnqueuedAt: time.Now()}
		pendings = append(pendings, q.Enqueue(p, domain.PushOptions{}))
	}

	for i, p := range pendings {
		if _, err := p.Wait(ctx); err != nil {
			t.Fatalf("pulse %d: unexpected error: %v", i, err)
		}
	}

	if got := rec.ids(); len(got) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(got))
	}
	for i, id := range rec.ids() {
		if want := fmt.Sprintf("p%d", i); id != want {
			t.Fatalf("dispatch order broken at %d: got %s want %s", i, id, want)
		}
	}
	if got := obs.counter("maxflow_flushes_total"); got != 1 {
		t.Fatalf("expected exactly one flush, got %v", got)
	}
}

func TestMaxWaitBoundsContinuousTraffic(t *testing.T) {
	rec := &recorder{}
	obs := &countingObs{}
	// Quiet never elapses between pushes; only max-wait can trigger.
	q := NewQueue(rec.dispatch, obs, Options{
		Quiet:   10 * time.Second,
		MaxWait: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var pendings []*Pending
	for i := 0; i < 6; i++ {
		p := &domain.Pulse{ID: fmt.Sprintf("p%d", i)}
		pendings = append(pendings, q.Enqueue(p, domain.PushOptions{}))
		time.Sleep(40 * time.Millisecond)
	}

	for i, p := range pendings {
		if _, err := p.Wait(ctx); err != nil {
			t.Fatalf("pulse %d: unexpected error: %v", i, err)
		}
	}

	if got := len(rec.ids()); got != 6 {
		t.Fatalf("expected 6 dispatches, got %d", got)
	}
	if flushes := obs.counter("maxflow_flushes_total"); flushes < 2 {
		t.Fatalf("expected max-wait to split traffic into several flushes, got %v", flushes)
	}
}

func TestPerItemFailureIsolated(t *testing.T) {
	wantErr := errors.New("rejected")
	dispatch := func(ctx context.Context, p *domain.Pulse) (json.RawMessage, error) {
		if p.ID == "bad" {
			return nil, wantErr
		}
		return json.RawMessage(`{"ok":true}`), nil
	}
	q := NewQueue(dispatch, nil, Options{Quiet: 20 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	good1 := q.Enqueue(&domain.Pulse{ID: "a"}, domain.PushOptions{})
	bad := q.Enqueue(&domain.Pulse{ID: "bad"}, domain.PushOptions{})
	good2 := q.Enqueue(&domain.Pulse{ID: "c"}, domain.PushOptions{})

	if _, err := good1.Wait(ctx); err != nil {
		t.Fatalf("sibling a should resolve, got %v", err)
	}
	if _, err := bad.Wait(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("expected rejection for bad pulse, got %v", err)
	}
	if resp, err := good2.Wait(ctx); err != nil || string(resp) != `{"ok":true}` {
		t.Fatalf("sibling c should resolve, got %s err=%v", resp, err)
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	rec := &recorder{}
	obs := &countingObs{}
	q := NewQueue(rec.dispatch, obs, Options{})

	q.Flush()
	q.Flush()

	if got := len(rec.ids()); got != 0 {
		t.Fatalf("expected no dispatches, got %d", got)
	}
	if got := obs.counter("maxflow_flushes_total"); got != 0 {
		t.Fatalf("empty flush should not count, got %v", got)
	}
}

func TestDuplicateFlushAfterSettlementIsNoop(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.dispatch, nil, Options{Quiet: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := q.Enqueue(&domain.Pulse{ID: "only"}, domain.PushOptions{})
	if _, err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Simulates the second timer losing the race: the queue is already
	// empty, so nothing may dispatch or settle again.
	q.Flush()

	if got := len(rec.ids()); got != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", got)
	}
	if resp, err := p.Wait(ctx); err != nil || resp != nil {
		t.Fatalf("settlement must be stable across duplicate flushes, got %s err=%v", resp, err)
	}
}

func TestExplicitZeroMaxWaitFlushesImmediately(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.dispatch, nil, Options{Quiet: 10 * time.Second, MaxWait: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	zero := time.Duration(0)
	p := q.Enqueue(&domain.Pulse{ID: "now"}, domain.PushOptions{MaxWait: &zero})
	if _, err := p.Wait(ctx); err != nil {
		t.Fatalf("zero max-wait must still flush: %v", err)
	}
}

func TestDebounceOverridePerItem(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.dispatch, nil, Options{Quiet: 10 * time.Second, MaxWait: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	short := 20 * time.Millisecond
	p := q.Enqueue(&domain.Pulse{ID: "fast"}, domain.PushOptions{Debounce: &short})
	if _, err := p.Wait(ctx); err != nil {
		t.Fatalf("per-item debounce override not honored: %v", err)
	}
}

func TestDrainFlushesPending(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.dispatch, nil, Options{Quiet: 10 * time.Second, MaxWait: 10 * time.Second})

	a := q.Enqueue(&domain.Pulse{ID: "a"}, domain.PushOptions{})
	b := q.Enqueue(&domain.Pulse{ID: "b"}, domain.PushOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	for _, p := range []*Pending{a, b} {
		select {
		case <-p.Done():
		default:
			t.Fatalf("expected all pendings settled after drain")
		}
	}
	if got := rec.ids(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected dispatch order: %v", got)
	}
}

func TestWaitContextCancelDoesNotConsumeSettlement(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.dispatch, nil, Options{Quiet: 10 * time.Second, MaxWait: 10 * time.Second})

	p := q.Enqueue(&domain.Pulse{ID: "slow"}, domain.PushOptions{})

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Wait(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	ctx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if _, err := p.Wait(ctx); err != nil {
		t.Fatalf("settlement should still be readable after a timed-out wait: %v", err)
	}
}

func TestSettledIsImmediatelyReady(t *testing.T) {
	wantErr := errors.New("boom")
	p := Settled(nil, wantErr)
	select {
	case <-p.Done():
	default:
		t.Fatalf("Settled pending must be ready at once")
	}
	if _, err := p.Wait(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestQuietTimerSlidesOnEveryEnqueue(t *testing.T) {
	rec := &recorder{}
	obs := &countingObs{}
	q := NewQueue(rec.dispatch, obs, Options{Quiet: 60 * time.Millisecond, MaxWait: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Each push lands inside the previous quiet window, so the trailing
	// edge keeps moving and all three ride one flush.
	var pendings []*Pending
	for i := 0; i < 3; i++ {
		pendings = append(pendings, q.Enqueue(&domain.Pulse{ID: fmt.Sprintf("p%d", i)}, domain.PushOptions{}))
		time.Sleep(15 * time.Millisecond)
	}
	for _, p := range pendings {
		if _, err := p.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := obs.counter("maxflow_flushes_total"); got != 1 {
		t.Fatalf("expected one sliding-window flush, got %v", got)
	}
}

func TestFlushGaugeCountsLateArrivals(t *testing.T) {
	rec := &recorder{}
	obs := &gaugeObs{}
	q := NewQueue(rec.dispatch, obs, Options{Quiet: 10 * time.Second, MaxWait: 10 * time.Second})

	// The flush counter increments right after the snapshot swap; a push
	// landing at that moment belongs to the next batch and must survive in
	// the queue-length gauge, not be zeroed by the flushing goroutine.
	obs.onCounter = func(name string) {
		if name == "maxflow_flushes_total" {
			q.Enqueue(&domain.Pulse{ID: "late"}, domain.PushOptions{})
		}
	}

	q.Enqueue(&domain.Pulse{ID: "a"}, domain.PushOptions{})
	q.Flush()

	if got := obs.gauge("maxflow_queue_length"); got != 1 {
		t.Fatalf("expected gauge to count the late arrival, got %v", got)
	}
	if got := rec.ids(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("late arrival must not join the flushed batch: %v", got)
	}
}

// recorder captures dispatched pulse IDs in call order.
type recorder struct {
	mu  sync.Mutex
	seq []string
}

func (r *recorder) dispatch(ctx context.Context, p *domain.Pulse) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = append(r.seq, p.ID)
	return nil, nil
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seq))
	copy(out, r.seq)
	return out
}

// countingObs tallies counters and is otherwise inert.
type countingObs struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (o *countingObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counters == nil {
		o.counters = make(map[string]float64)
	}
	o.counters[name] += v
}

func (o *countingObs) counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func (o *countingObs) LogInfo(string, ...ports.Field)         {}
func (o *countingObs) LogError(string, error, ...ports.Field) {}
func (o *countingObs) ObserveLatency(string, float64)         {}
func (o *countingObs) SetGauge(string, float64)               {}

// gaugeObs records gauge values and fires a hook on counter increments.
type gaugeObs struct {
	mu        sync.Mutex
	gauges    map[string]float64
	onCounter func(name string)
}

func (o *gaugeObs) IncCounter(name string, v float64) {
	if o.onCounter != nil {
		o.onCounter(name)
	}
}

func (o *gaugeObs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gauges == nil {
		o.gauges = make(map[string]float64)
	}
	o.gauges[name] = v
}

func (o *gaugeObs) gauge(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gauges[name]
}

func (o *gaugeObs) LogInfo(string, ...ports.Field)         {}
func (o *gaugeObs) LogError(string, error, ...ports.Field) {}
func (o *gaugeObs) ObserveLatency(string, float64)         {}
