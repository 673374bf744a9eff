// CLAUDE:SUMMARY In-memory fold-state model — threshold map, append-only write log, per-key modification stamps.
// Package foldstate holds the read-state ("fold") cache for one storage namespace.
//
// State tracks, for each day-group key, the highest entry timestamp at or
// below which everything counts as read. Every write is also appended to a
// recency log (duplicates allowed, superseded entries kept in place) and
// stamped with the wall-clock time of the write. The log drives compaction,
// the stamps drive last-writer-wins reconciliation; neither ever influences
// fold computation itself.
//
// State is not safe for concurrent use. All mutations happen on discrete
// UI-triggered events or on completion of a sync, which the tracker layer
// serialises.
package foldstate

import "time"

// Clock supplies the current time as unix epoch seconds. Injected so tests
// and reconciliation can run against a fixed time source.
type Clock func() int64

// SystemClock is the default Clock.
func SystemClock() int64 { return time.Now().Unix() }

// LogEntry is one write in the recency log.
type LogEntry struct {
	Key       string `json:"key"`
	Threshold int64  `json:"threshold"`
}

// State is the fold cache for a single namespace.
type State struct {
	values       map[string]int64
	log          []LogEntry
	lastModified map[string]int64
	clock        Clock
}

// New creates an empty State. A nil clock defaults to SystemClock.
func New(clock Clock) *State {
	if clock == nil {
		clock = SystemClock
	}
	return &State{
		values:       make(map[string]int64),
		lastModified: make(map[string]int64),
		clock:        clock,
	}
}

// Update sets the fold threshold for key, appends the write to the recency
// log and stamps lastModified with the current clock time. Updating with an
// unchanged threshold still re-stamps the key and re-logs the write.
func (s *State) Update(key string, threshold int64) {
	s.values[key] = threshold
	s.log = append(s.log, LogEntry{Key: key, Threshold: threshold})
	s.lastModified[key] = s.clock()
}

// Get returns the stored threshold for key.
func (s *State) Get(key string) (int64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// LastModified returns the wall-clock stamp of the most recent write to key.
func (s *State) LastModified(key string) (int64, bool) {
	v, ok := s.lastModified[key]
	return v, ok
}

// Len returns the number of tracked keys.
func (s *State) Len() int { return len(s.values) }

// LogLen returns the current recency log length.
func (s *State) LogLen() int { return len(s.log) }

// Values returns a copy of the threshold map.
func (s *State) Values() map[string]int64 {
	out := make(map[string]int64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Stamps returns a copy of the lastModified map.
func (s *State) Stamps() map[string]int64 {
	out := make(map[string]int64, len(s.lastModified))
	for k, v := range s.lastModified {
		out[k] = v
	}
	return out
}

// Log returns a copy of the recency log in write order.
func (s *State) Log() []LogEntry {
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Persisted is the durable shape of a State: the threshold map, the
// modification stamps, and (optionally) the recency log. The log is not
// required for correctness — reloading with an empty log only changes
// compaction pacing — but persisting it keeps eviction behaviour identical
// across restarts.
type Persisted struct {
	Values       map[string]int64 `json:"values"`
	LastModified map[string]int64 `json:"last_modified"`
	Log          []LogEntry       `json:"log,omitempty"`
}

// Export snapshots the State into its durable shape.
func (s *State) Export() *Persisted {
	return &Persisted{
		Values:       s.Values(),
		LastModified: s.Stamps(),
		Log:          s.Log(),
	}
}

// Restore builds a State from persisted data. Nil maps and a nil log are
// treated as empty; a key present in Values but missing from LastModified is
// stamped zero so the lastModified invariant holds (a zero stamp loses every
// reconciliation tie-break, which is the safe direction for recovered data).
func Restore(p *Persisted, clock Clock) *State {
	s := New(clock)
	if p == nil {
		return s
	}
	for k, v := range p.Values {
		s.values[k] = v
		if lm, ok := p.LastModified[k]; ok {
			s.lastModified[k] = lm
		} else {
			s.lastModified[k] = 0
		}
	}
	s.log = append(s.log, p.Log...)
	return s
}
