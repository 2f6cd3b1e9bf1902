package domain

import "time"

// Pulse is the unit of data pushed to the Maxflow API: an opaque payload plus
// the bookkeeping the client needs to batch and settle it.
type Pulse struct {
	ID         string    `json:"id"`
	Payload    any       `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	// JournalID is non-zero when the pulse was journaled before enqueue.
	JournalID uint64 `json:"-"`
}

// PushOptions override the client-wide debounce timing for a single push.
// Pointer fields distinguish "not set" from an explicit zero: a MaxWait of 0
// means flush as soon as possible, not never.
type PushOptions struct {
	Debounce  *time.Duration
	MaxWait   *time.Duration
	Immediate bool
}
