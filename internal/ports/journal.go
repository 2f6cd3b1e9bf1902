package ports

import "github.com/maxflow-ai/maxflow-go/internal/domain"

type EntryID uint64

// Journal persists queued pulses so a crash between push and dispatch does
// not lose them. Commit advances a high-water mark: entries at or below it
// are considered handled and are skipped on replay.
type Journal interface {
	Append(p *domain.Pulse) (EntryID, error)
	Replay(from EntryID, fn func(id EntryID, p *domain.Pulse) error) error
	Commit(upto EntryID) error
	Stats() JournalStats
}

type JournalStats struct {
	OldestUncommitted EntryID
	LatestAppended    EntryID
	SizeBytes         int64
}
