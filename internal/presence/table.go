// Package presence tracks which users are currently online in each room.
// The table is a pure liveness signal: it lives in process memory, is rebuilt
// as clients reconnect, and is never persisted.
package presence

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is the liveness record for one user in one room, independent of
// socket identity.
type Entry struct {
	UserID   uint
	UserName string
	LastSeen time.Time
}

// roomRoster keeps entries in insertion order so snapshots are deterministic.
type roomRoster struct {
	order   []uint
	entries map[uint]*Entry
}

// Table maps (room, user) to a presence entry. All mutating operations are
// atomic with respect to each other; a snapshot taken between a mutation and
// its broadcast may be slightly stale, which callers tolerate.
type Table struct {
	mu    sync.Mutex
	rooms map[string]*roomRoster
	now   func() time.Time
	log   *slog.Logger
}

// NewTable creates an empty presence table.
func NewTable(log *slog.Logger) *Table {
	return &Table{
		rooms: make(map[string]*roomRoster),
		now:   time.Now,
		log:   log,
	}
}

// MarkPresent upserts the entry for (roomID, userID), refreshing its
// last-seen time and display name, and returns the room's online snapshot.
// Concurrent sessions for the same user collapse to one entry; the last
// writer wins.
func (t *Table) MarkPresent(roomID string, userID uint, userName string) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	roster := t.rooms[roomID]
	if roster == nil {
		roster = &roomRoster{entries: make(map[uint]*Entry)}
		t.rooms[roomID] = roster
	}

	if entry, ok := roster.entries[userID]; ok {
		entry.UserName = userName
		entry.LastSeen = t.now()
	} else {
		roster.entries[userID] = &Entry{UserID: userID, UserName: userName, LastSeen: t.now()}
		roster.order = append(roster.order, userID)
	}
	return roster.snapshot()
}

// Heartbeat refreshes the entry's last-seen time. A heartbeat for a user
// with no entry is ignored; identification must come first.
func (t *Table) Heartbeat(roomID string, userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	roster := t.rooms[roomID]
	if roster == nil {
		return false
	}
	entry, ok := roster.entries[userID]
	if !ok {
		return false
	}
	entry.LastSeen = t.now()
	return true
}

// MarkAbsent removes the entry unconditionally and returns the updated
// snapshot. An empty room is dropped entirely to bound memory.
func (t *Table) MarkAbsent(roomID string, userID uint) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.markAbsentLocked(roomID, userID)
}

func (t *Table) markAbsentLocked(roomID string, userID uint) []uint {
	roster := t.rooms[roomID]
	if roster == nil {
		return []uint{}
	}
	if _, ok := roster.entries[userID]; ok {
		delete(roster.entries, userID)
		for i, id := range roster.order {
			if id == userID {
				roster.order = append(roster.order[:i], roster.order[i+1:]...)
				break
			}
		}
	}
	if len(roster.entries) == 0 {
		delete(t.rooms, roomID)
		return []uint{}
	}
	return roster.snapshot()
}

// Snapshot returns the room's online user ids in insertion order.
func (t *Table) Snapshot(roomID string) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	roster := t.rooms[roomID]
	if roster == nil {
		return []uint{}
	}
	return roster.snapshot()
}

// Entries returns copies of the room's presence entries in insertion order.
func (t *Table) Entries(roomID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	roster := t.rooms[roomID]
	if roster == nil {
		return []Entry{}
	}
	out := make([]Entry, 0, len(roster.order))
	for _, id := range roster.order {
		out = append(out, *roster.entries[id])
	}
	return out
}

func (r *roomRoster) snapshot() []uint {
	out := make([]uint, len(r.order))
	copy(out, r.order)
	return out
}
