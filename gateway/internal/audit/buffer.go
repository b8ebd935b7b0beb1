package audit

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/numo-systems/numo-admin/common/fsutil"
	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// DefaultCapacity is the number of events the fallback buffer retains.
const DefaultCapacity = 500

// Buffer is the fallback sink: a bounded, most-recent-first list of events
// mirrored to a JSON file. All mutations are serialized; file writes carry
// a sequence number so an older snapshot never replaces a newer one.
type Buffer struct {
	path     string
	capacity int

	mu      sync.Mutex
	entries []models.AuditEvent
	seq     uint64

	writeMu sync.Mutex
	written uint64
}

// NewBuffer returns an empty buffer. An empty path keeps it in memory only.
func NewBuffer(path string, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{path: path, capacity: capacity}
}

// Load replaces the buffer contents with the mirrored file, capped to the
// buffer capacity. A missing file is not an error.
func (b *Buffer) Load() error {
	if b.path == "" {
		return nil
	}

	var events []models.AuditEvent
	if err := fsutil.ReadJSON(b.path, &events); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load audit fallback: %w", err)
	}
	if len(events) > b.capacity {
		events = events[:b.capacity]
	}

	b.mu.Lock()
	b.entries = events
	n := len(b.entries)
	b.mu.Unlock()

	metrics.AuditFallbackEntries.Set(float64(n))
	return nil
}

// Add puts event at the front, dropping the oldest entry beyond capacity,
// then mirrors the buffer to disk. The in-memory insert always succeeds;
// the returned error only concerns the file.
func (b *Buffer) Add(event models.AuditEvent) error {
	b.mu.Lock()
	next := make([]models.AuditEvent, 0, min(len(b.entries)+1, b.capacity))
	next = append(next, event)
	next = append(next, b.entries[:min(len(b.entries), b.capacity-1)]...)
	b.entries = next
	b.seq++
	seq, snapshot := b.seq, b.entries
	b.mu.Unlock()

	metrics.AuditFallbackEntries.Set(float64(len(snapshot)))
	return b.persist(seq, snapshot)
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (b *Buffer) List(limit int) []models.AuditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AuditEvent, n)
	copy(out, b.entries[:n])
	return out
}

// Clear empties the buffer and its file.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	b.entries = nil
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	metrics.AuditFallbackEntries.Set(0)
	return b.persist(seq, []models.AuditEvent{})
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// persist writes snapshot unless a newer one has already been written.
// Snapshots are never mutated after being published, so no copy is needed.
func (b *Buffer) persist(seq uint64, snapshot []models.AuditEvent) error {
	if b.path == "" {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if seq <= b.written {
		return nil
	}
	if err := fsutil.WriteJSONAtomic(b.path, snapshot, 0o600); err != nil {
		return err
	}
	b.written = seq
	return nil
}
