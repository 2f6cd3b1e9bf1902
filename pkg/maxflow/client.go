// Package maxflow is the Go client for the Maxflow ingestion API. Pushes are
// coalesced through a debounced queue so bursts of events cost few requests;
// reads go through a filter/sort/pagination query builder.
package maxflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxflow-ai/maxflow-go/internal/adapters/httpapi"
	"github.com/maxflow-ai/maxflow-go/internal/adapters/journal"
	"github.com/maxflow-ai/maxflow-go/internal/adapters/observability"
	"github.com/maxflow-ai/maxflow-go/internal/app/debounce"
	"github.com/maxflow-ai/maxflow-go/internal/app/query"
	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

// ErrMissingCredentials is returned by New before any timer or network
// activity when the endpoint or key material is absent.
var ErrMissingCredentials = errors.New("maxflow: endpoint, app id, and api key are required")

// Client owns one debounce queue, one transport, and at most one live timer
// of each kind; multiple Clients in a process are fully isolated.
type Client struct {
	cfg       *Config
	transport ports.Transport
	obs       ports.Observability
	journal   ports.Journal
	queue     *debounce.Queue

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// New builds a client. Credentials are validated here, synchronously, unless
// a custom transport is injected.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}
	cfg.ApplyDefaults()

	obs := ov.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	tr := ov.transport
	if tr == nil {
		if cfg.API.Endpoint == "" || cfg.API.AppID == "" || cfg.API.APIKey == "" {
			return nil, ErrMissingCredentials
		}
		var err error
		tr, err = httpapi.New(httpapi.Config{
			BaseURL:    cfg.API.Endpoint,
			AppID:      cfg.API.AppID,
			APIKey:     cfg.API.APIKey,
			UserAgent:  cfg.API.UserAgent,
			Timeout:    cfg.API.Timeout.Duration(),
			RateLimit:  cfg.API.RateLimit,
			RateBurst:  cfg.API.RateBurst,
			HTTPClient: ov.httpClient,
		})
		if err != nil {
			return nil, err
		}
	}

	jr := ov.journal
	if jr == nil && cfg.Journal.Dir != "" {
		var err error
		jr, err = journal.New(cfg.Journal.Dir)
		if err != nil {
			return nil, err
		}
	}

	c := &Client{
		cfg:       cfg,
		transport: tr,
		obs:       obs,
		journal:   jr,
	}
	c.queue = debounce.NewQueue(c.dispatch, obs, debounce.Options{
		Quiet:           cfg.Push.Quiet.Duration(),
		MaxWait:         cfg.Push.MaxWait.Duration(),
		DispatchTimeout: cfg.Push.DispatchTimeout.Duration(),
	})

	if c.journal != nil {
		if err := c.replayJournal(); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Addr != "" {
		c.startMetrics()
	}
	return c, nil
}

// Push submits one pulse. By default it lands on the debounce queue and the
// returned Pending settles when the batch containing it is dispatched. With
// Immediately() the queue and its timers are untouched: the request is sent
// before Push returns and the Pending is already settled.
func (c *Client) Push(ctx context.Context, payload any, opts ...PushOption) *Pending {
	var po domain.PushOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&po)
		}
	}

	if po.Immediate {
		resp, err := c.transport.CreatePulse(ctx, payload)
		if err != nil {
			c.obs.IncCounter("maxflow_dispatch_errors_total", 1)
			c.obs.LogError("pulse_dispatch_failed", err)
		} else {
			c.obs.IncCounter("maxflow_pulses_dispatched_total", 1)
		}
		return debounce.Settled(resp, err)
	}

	p := &domain.Pulse{
		ID:         uuid.NewString(),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	if c.journal != nil {
		id, err := c.journal.Append(p)
		if err != nil {
			c.obs.LogError("journal_append_failed", err)
		} else {
			p.JournalID = uint64(id)
			c.obs.SetGauge("maxflow_journal_size_bytes", float64(c.journal.Stats().SizeBytes))
		}
	}
	return c.queue.Enqueue(p, po)
}

// PushNow sends a single pulse synchronously, bypassing the queue.
func (c *Client) PushNow(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.Push(ctx, payload, Immediately()).Wait(ctx)
}

// Find runs a filtered read. The query descriptor is serialized into the
// single `o` parameter; no client-side validation is applied to it.
func (c *Client) Find(ctx context.Context, q FindQuery) (json.RawMessage, error) {
	encoded, err := query.Build(q)
	if err != nil {
		return nil, err
	}
	return c.transport.FindPulses(ctx, encoded)
}

func (c *Client) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return c.transport.GetPulse(ctx, id)
}

func (c *Client) Update(ctx context.Context, id string, payload any) (json.RawMessage, error) {
	return c.transport.UpdatePulse(ctx, id, payload)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.transport.DeletePulse(ctx, id)
}

// Flush forces a flush of whatever is queued right now.
func (c *Client) Flush() {
	c.queue.Flush()
}

// QueueLen reports the pulses waiting on the next flush.
func (c *Client) QueueLen() int {
	return c.queue.Len()
}

// Close drains the queue and stops the metrics server. Callers that never
// Close simply abandon unsettled pendings at process exit.
func (c *Client) Close(ctx context.Context) error {
	var errs []error

	if err := c.queue.Drain(ctx); err != nil {
		errs = append(errs, err)
	}

	if c.gaugeStopCh != nil {
		close(c.gaugeStopCh)
		c.gaugeStopCh = nil
	}
	if c.metricsSrv != nil {
		if err := c.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if closer, ok := c.journal.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dispatch is the queue's send function: one request per pulse, the pulse's
// own outcome only. The journal entry is committed once the caller has that
// outcome; rejections are the caller's to handle, the journal only guards
// against crashes before dispatch.
func (c *Client) dispatch(ctx context.Context, p *domain.Pulse) (json.RawMessage, error) {
	resp, err := c.transport.CreatePulse(ctx, p.Payload)
	if c.journal != nil && p.JournalID != 0 {
		if cerr := c.journal.Commit(ports.EntryID(p.JournalID)); cerr != nil {
			c.obs.LogError("journal_commit_failed", cerr)
		}
	}
	return resp, err
}

func (c *Client) replayJournal() error {
	stats := c.journal.Stats()
	if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
		return nil
	}

	var replayed int
	err := c.journal.Replay(stats.OldestUncommitted, func(id ports.EntryID, p *domain.Pulse) error {
		p.JournalID = uint64(id)
		c.queue.Enqueue(p, domain.PushOptions{})
		replayed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("maxflow: journal replay: %w", err)
	}
	if replayed > 0 {
		c.obs.LogInfo("journal_replay_complete",
			ports.Field{Key: "pulses", Value: replayed},
			ports.Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return nil
}

func (c *Client) startMetrics() {
	handler := promhttp.Handler()
	if po, ok := c.obs.(*observability.PromObs); ok {
		handler = promhttp.HandlerFor(po.Registry(), promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c.metricsSrv = &http.Server{
		Addr:    c.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := c.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.obs.LogError("metrics_server_exited", err)
		}
	}()

	c.gaugeStopCh = make(chan struct{})
	go c.recordGauges(c.gaugeStopCh, time.Second)
}

func (c *Client) recordGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.obs.SetGauge("maxflow_queue_length", float64(c.queue.Len()))
			if c.journal != nil {
				c.obs.SetGauge("maxflow_journal_size_bytes", float64(c.journal.Stats().SizeBytes))
			}
		}
	}
}
