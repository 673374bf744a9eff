// CLAUDE:SUMMARY Log-driven compaction — bounds the recency log and evicts least-recently-touched keys.
package foldstate

// Compactor bounds State growth. It approximates LRU eviction of the value
// map using only the append-only write log: an old log entry whose threshold
// still equals the live value has had no newer write, so its key is the
// least-recently-touched and can be evicted. Entries already superseded by a
// newer write are skipped — they no longer represent live state.
//
// Eviction removes the key from the value map but keeps its lastModified
// stamp, re-stamped at eviction time. An evicted key therefore reads as
// "no threshold stored" (everything unfolded), while reconciliation still
// sees a fresh local write and will not resurrect the old threshold from
// a stale remote snapshot.
type Compactor struct {
	// GCThreshold is the log length that triggers a compaction pass.
	GCThreshold int
	// RetainWindow is how many of the most recent log entries survive.
	RetainWindow int
	// ValueLimit is the target ceiling on tracked keys after compaction.
	ValueLimit int
}

// Default compaction parameters, matching observed production pacing.
const (
	DefaultGCThreshold  = 300
	DefaultRetainWindow = 200
	DefaultValueLimit   = 100
)

// NewCompactor returns a Compactor with default parameters.
func NewCompactor() Compactor {
	return Compactor{
		GCThreshold:  DefaultGCThreshold,
		RetainWindow: DefaultRetainWindow,
		ValueLimit:   DefaultValueLimit,
	}
}

func (c *Compactor) defaults() {
	if c.GCThreshold <= 0 {
		c.GCThreshold = DefaultGCThreshold
	}
	if c.RetainWindow <= 0 {
		c.RetainWindow = DefaultRetainWindow
	}
	if c.ValueLimit <= 0 {
		c.ValueLimit = DefaultValueLimit
	}
}

// Compact runs one compaction pass over st. It does nothing while the log is
// at or below GCThreshold. Otherwise it walks the log entries older than the
// retain window in write order, evicts up to len(values)-ValueLimit
// un-superseded keys, and truncates the log to the retain window.
//
// A key whose only log entry sits inside the retain window is never evicted,
// so the value count can stay above ValueLimit until enough writes age out.
// Stale duplicate entries are skipped without replacement; repeated passes
// converge (see DESIGN.md).
//
// Reports whether a pass ran.
func (c Compactor) Compact(st *State) bool {
	c.defaults()
	if len(st.log) <= c.GCThreshold {
		return false
	}

	cut := len(st.log) - c.RetainWindow
	if cut < 0 {
		cut = 0
	}
	candidates := st.log[:cut]
	kept := make([]LogEntry, len(st.log)-cut)
	copy(kept, st.log[cut:])

	excess := len(st.values) - c.ValueLimit
	for _, e := range candidates {
		if excess <= 0 {
			break
		}
		if live, ok := st.values[e.Key]; ok && live == e.Threshold {
			st.evict(e.Key)
			excess--
		}
	}

	st.log = kept
	return true
}

// evict drops key from the value map and re-stamps lastModified so
// reconciliation treats the eviction as the most recent write to the key.
// Eviction is not logged: the pass replaces the log with the retain window
// right after the walk, which bounds it at RetainWindow entries.
func (s *State) evict(key string) {
	delete(s.values, key)
	s.lastModified[key] = s.clock()
}
