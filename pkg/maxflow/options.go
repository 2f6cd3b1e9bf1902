package maxflow

import (
	"net/http"
	"time"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

// Option customizes the dependencies used by Client.
type Option func(*overrides)

type overrides struct {
	transport  ports.Transport
	obs        ports.Observability
	journal    ports.Journal
	httpClient *http.Client
}

// WithTransport injects a custom transport so pulses can be sent anywhere a
// Transport can reach (test doubles included). Credential validation is
// skipped; the transport owns its own auth.
func WithTransport(tr ports.Transport) Option {
	return func(o *overrides) {
		o.transport = tr
	}
}

// WithObservability plugs in a custom observability backend instead of the
// default Prometheus one.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) {
		o.obs = obs
	}
}

// WithJournal lets callers bring their own journal implementation or reuse an
// existing instance.
func WithJournal(j ports.Journal) Option {
	return func(o *overrides) {
		o.journal = j
	}
}

// WithHTTPClient overrides the http.Client the default transport uses.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *overrides) {
		o.httpClient = hc
	}
}

// PushOption overrides debounce timing for a single push.
type PushOption func(*domain.PushOptions)

// WithDebounce restarts the quiet-period timer with d instead of the
// configured quiet period.
func WithDebounce(d time.Duration) PushOption {
	return func(o *domain.PushOptions) {
		o.Debounce = &d
	}
}

// WithMaxWait sets the max-wait bound for the batch this push opens. It only
// takes effect when the push is the first item of a fresh batch; zero means
// flush as soon as possible.
func WithMaxWait(d time.Duration) PushOption {
	return func(o *domain.PushOptions) {
		o.MaxWait = &d
	}
}

// Immediately bypasses the queue entirely: no timers are touched and a
// pending batch is unaffected by this push's success or failure.
func Immediately() PushOption {
	return func(o *domain.PushOptions) {
		o.Immediate = true
	}
}
