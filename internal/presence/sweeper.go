package presence

import (
	"log/slog"
	"time"
)

// Eviction describes one entry removed by a staleness sweep, together with
// the room snapshot after removal so callers can broadcast a user_left
// update.
type Eviction struct {
	RoomID   string
	UserID   uint
	UserName string
	Online   []uint
}

// Sweep removes every entry whose last-seen time is older than ttl and
// returns the evictions. A ttl of zero or less sweeps nothing.
func (t *Table) Sweep(ttl time.Duration) []Eviction {
	if ttl <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-ttl)
	var evicted []Eviction
	for roomID, roster := range t.rooms {
		// Collect first; markAbsentLocked mutates the roster order.
		var stale []*Entry
		for _, entry := range roster.entries {
			if entry.LastSeen.Before(cutoff) {
				stale = append(stale, entry)
			}
		}
		for _, entry := range stale {
			online := t.markAbsentLocked(roomID, entry.UserID)
			evicted = append(evicted, Eviction{
				RoomID:   roomID,
				UserID:   entry.UserID,
				UserName: entry.UserName,
				Online:   online,
			})
		}
	}
	return evicted
}

// Sweeper periodically evicts presence entries whose heartbeats have gone
// silent, covering sockets that die without a clean close.
type Sweeper struct {
	table    *Table
	ttl      time.Duration
	interval time.Duration
	onEvict  func(Eviction)
	log      *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a sweeper over the table. onEvict runs once per evicted
// entry, outside the table lock.
func NewSweeper(table *Table, ttl, interval time.Duration, onEvict func(Eviction), log *slog.Logger) *Sweeper {
	return &Sweeper{
		table:    table,
		ttl:      ttl,
		interval: interval,
		onEvict:  onEvict,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; with a TTL of zero
// or less the sweeper is disabled and never runs.
func (s *Sweeper) Start() {
	if s.ttl <= 0 {
		close(s.done)
		return
	}
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for _, ev := range s.table.Sweep(s.ttl) {
				s.log.Info("presence entry expired",
					"room_id", ev.RoomID, "user_id", ev.UserID, "user_name", ev.UserName)
				if s.onEvict != nil {
					s.onEvict(ev)
				}
			}
		}
	}
}

// Stop halts the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}
