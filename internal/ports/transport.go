package ports

import (
	"context"
	"encoding/json"
)

// Transport is the boundary to the remote Maxflow service. Implementations
// own auth header injection, connection reuse, and error mapping; the core
// never retries on their behalf.
type Transport interface {
	CreatePulse(ctx context.Context, payload any) (json.RawMessage, error)
	FindPulses(ctx context.Context, query string) (json.RawMessage, error)
	GetPulse(ctx context.Context, id string) (json.RawMessage, error)
	UpdatePulse(ctx context.Context, id string, payload any) (json.RawMessage, error)
	DeletePulse(ctx context.Context, id string) error
	Name() string
}
