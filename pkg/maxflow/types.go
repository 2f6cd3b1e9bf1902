package maxflow

import (
	"github.com/maxflow-ai/maxflow-go/internal/adapters/httpapi"
	"github.com/maxflow-ai/maxflow-go/internal/app/debounce"
	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

// Pulse is the unit of data pushed to the API.
type Pulse = domain.Pulse

// PushOptions carries per-push debounce overrides; usually built via PushOption values.
type PushOptions = domain.PushOptions

// Pending is the caller's handle on a queued pulse; it settles exactly once.
type Pending = debounce.Pending

// FindQuery describes match/sort/page/search intent for Find.
type FindQuery = domain.FindQuery

// Condition is one match clause of a FindQuery.
type Condition = domain.Condition

// Order is one sort key of a FindQuery.
type Order = domain.Order

// Search is the free-text part of a FindQuery.
type Search = domain.Search

// Transport is the boundary to the remote service.
type Transport = ports.Transport

// Journal persists queued pulses across crashes.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// Observability emits metrics/logs about queue depth, flushes, and failures.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// APIError is a rejection from the remote service; transport failures are
// plain wrapped errors instead.
type APIError = httpapi.APIError
