package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

// presenceTracker aggregates presence rows seen on a channel and expires the
// ones that stop heartbeating. A row with status offline is an explicit
// leave and is removed immediately.
type presenceTracker struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu       sync.Mutex
	rows     map[string]models.PresenceRow
	handlers []PresenceHandler
}

func newPresenceTracker(clock clockwork.Clock, ttl time.Duration) *presenceTracker {
	return &presenceTracker{
		clock: clock,
		ttl:   ttl,
		rows:  make(map[string]models.PresenceRow),
	}
}

func (t *presenceTracker) onSync(h PresenceHandler) {
	t.mu.Lock()
	t.handlers = append(t.handlers, h)
	t.mu.Unlock()
}

// upsert folds one broadcast row in and notifies subscribers.
func (t *presenceTracker) upsert(row models.PresenceRow) {
	if row.UserID == "" {
		return
	}
	t.mu.Lock()
	if row.Status == models.PresenceOffline {
		delete(t.rows, row.UserID)
	} else {
		if row.LastSeenMs == 0 {
			row.LastSeenMs = t.clock.Now().UnixMilli()
		}
		t.rows[row.UserID] = row
	}
	t.mu.Unlock()
	t.notify()
}

// sweep drops rows past the TTL and notifies if anything changed.
func (t *presenceTracker) sweep() {
	cutoff := t.clock.Now().UnixMilli() - t.ttl.Milliseconds()
	t.mu.Lock()
	changed := false
	for id, row := range t.rows {
		if row.LastSeenMs < cutoff {
			delete(t.rows, id)
			changed = true
		}
	}
	t.mu.Unlock()
	if changed {
		t.notify()
	}
}

// snapshot returns the live rows sorted by user id.
func (t *presenceTracker) snapshot() []models.PresenceRow {
	t.mu.Lock()
	rows := make([]models.PresenceRow, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, row)
	}
	t.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows
}

func (t *presenceTracker) notify() {
	t.mu.Lock()
	handlers := append([]PresenceHandler(nil), t.handlers...)
	t.mu.Unlock()
	rows := t.snapshot()
	for _, h := range handlers {
		h(rows)
	}
}
