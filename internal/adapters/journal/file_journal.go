// Package journal persists queued pulses to disk so a crash between push and
// dispatch does not lose them. Records are JSON lines; a separate meta file
// tracks the committed high-water mark.
package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

type record struct {
	ID    ports.EntryID `json:"id"`
	Pulse *domain.Pulse `json:"pulse"`
}

type FileJournal struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	nextID    ports.EntryID
	committed ports.EntryID
	sizeBytes int64
}

func New(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "journal.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:     path,
		metaPath: filepath.Join(dir, "journal.meta"),
		file:     f,
	}
	if err := j.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	if err := j.scanExisting(); err != nil {
		return err
	}
	if err := j.loadCommitted(); err != nil {
		return err
	}
	if j.nextID < j.committed {
		j.nextID = j.committed
	}
	return nil
}

// scanExisting walks the journal to recover the last assigned ID. Only lines
// terminated by a newline count; a torn or garbled trailing line from a
// crashed writer is truncated away.
func (j *FileJournal) scanExisting() error {
	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReaderSize(rf, 64*1024)

	var (
		offset int64
		lastID ports.EntryID
	)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// io.EOF with a partial line means a torn write; drop it.
			break
		}
		var rec record
		if uerr := json.Unmarshal(line, &rec); uerr != nil || rec.ID == 0 {
			break
		}
		offset += int64(len(line))
		lastID = rec.ID
	}

	if err := j.file.Truncate(offset); err != nil {
		return err
	}
	j.sizeBytes = offset
	j.nextID = lastID
	return nil
}

func (j *FileJournal) loadCommitted() error {
	data, err := os.ReadFile(j.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("journal meta parse: %w", err)
	}
	j.committed = ports.EntryID(u)
	return nil
}

func (j *FileJournal) Append(p *domain.Pulse) (ports.EntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextID + 1
	line, err := json.Marshal(record{ID: id, Pulse: p})
	if err != nil {
		return 0, err
	}
	line = append(line, '\n')

	if _, err := j.file.Write(line); err != nil {
		return 0, err
	}
	j.nextID = id
	j.sizeBytes += int64(len(line))
	return id, nil
}

func (j *FileJournal) Replay(from ports.EntryID, fn func(id ports.EntryID, p *domain.Pulse) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if err != nil {
		return err
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == 0 {
			// Anything past a bad line was truncated at open; stop here.
			break
		}
		if rec.ID < from {
			continue
		}
		if err := fn(rec.ID, rec.Pulse); err != nil {
			return err
		}
	}
	return nil
}

// Commit advances the high-water mark monotonically; commits below the mark
// are no-ops.
func (j *FileJournal) Commit(upto ports.EntryID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if upto > j.committed {
		j.committed = upto
	}
	return os.WriteFile(j.metaPath, []byte(strconv.FormatUint(uint64(j.committed), 10)), 0o644)
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		OldestUncommitted: j.committed + 1,
		LatestAppended:    j.nextID,
		SizeBytes:         j.sizeBytes,
	}
}

// Close releases the underlying file handle.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

var _ ports.Journal = (*FileJournal)(nil)
