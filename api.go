package maxflow

import (
	"net/http"
	"time"

	base "github.com/maxflow-ai/maxflow-go/pkg/maxflow"
)

// Re-exported errors for convenience.
var (
	ErrMissingCredentials = base.ErrMissingCredentials
)

// Type aliases so consumers can import github.com/maxflow-ai/maxflow-go directly.
type (
	Client        = base.Client
	Config        = base.Config
	APIConfig     = base.APIConfig
	PushConfig    = base.PushConfig
	JournalConfig = base.JournalConfig
	MetricsConfig = base.MetricsConfig
	Duration      = base.Duration
	Option        = base.Option
	PushOption    = base.PushOption
	Pulse         = base.Pulse
	PushOptions   = base.PushOptions
	Pending       = base.Pending
	FindQuery     = base.FindQuery
	Condition     = base.Condition
	Order         = base.Order
	Search        = base.Search
	Transport     = base.Transport
	Journal       = base.Journal
	JournalStats  = base.JournalStats
	Observability = base.Observability
	Field         = base.Field
	APIError      = base.APIError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func Conf(path string, opts ...Option) (*Client, error) {
	return base.Conf(path, opts...)
}

// Client construction and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	return base.New(cfg, opts...)
}

func WithTransport(tr Transport) Option {
	return base.WithTransport(tr)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithJournal(j Journal) Option {
	return base.WithJournal(j)
}

func WithHTTPClient(hc *http.Client) Option {
	return base.WithHTTPClient(hc)
}

// Per-push options.
func WithDebounce(d time.Duration) PushOption {
	return base.WithDebounce(d)
}

func WithMaxWait(d time.Duration) PushOption {
	return base.WithMaxWait(d)
}

func Immediately() PushOption {
	return base.Immediately()
}
