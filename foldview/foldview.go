// CLAUDE:SUMMARY Pure fold derivation over the day→channel→entry tree, plus day and page toggle semantics.
// Package foldview derives the visual fold state of a rendered page from a
// stored threshold and a content tree, and computes the write-back value
// when the user toggles a day or the whole page.
//
// Everything here is pure: the rendering layer supplies the tree, the
// tracker supplies thresholds, and the returned Result/Delta values tell
// each side what to apply. No DOM, no storage, no clock.
package foldview

// IndeterminateTS is the sentinel MaxUnfolded value reported when a channel
// or entry cannot prove it is fully read (missing entry timestamp, empty
// channel). Any value >= 1 keeps the day from auto-folding; 1 is used so a
// fold commit from such a day never exceeds real entry timestamps.
const IndeterminateTS = 1

// Day is a day-level content group supplied by the rendering layer.
type Day struct {
	Key      string
	Channels []Channel
}

// Channel groups the entries of one feed within a day.
type Channel struct {
	Name    string
	Entries []Entry
}

// Entry is a single post. A Timestamp <= 0 means the entry's read state
// cannot be determined and its channel and day must stay unfolded.
type Entry struct {
	Timestamp int64
}

// Force is the tri-state fold override carried by a toggle.
type Force int

const (
	// ForceNone applies the stored threshold as-is.
	ForceNone Force = iota
	// ForceFold folds the day even when entries remain unfolded.
	ForceFold
	// ForceShow displays below-threshold entries unfolded while still
	// counting them as foldable.
	ForceShow
)

// Mode carries the toggle intent for one evaluation.
type Mode struct {
	Force  Force
	Unfold bool // unfold everything regardless of threshold
}

// ChannelState is the derived render state of one channel.
type ChannelState struct {
	Folded bool
	// Entries holds the folded flag per entry, in input order.
	Entries []bool
}

// Result is the derived render state of one day. The rendering layer applies
// it; the tracker commits MaxUnfolded through a Delta when the user toggles.
type Result struct {
	DayKey string
	// MaxUnfolded is the highest timestamp among entries left unfolded, 0
	// when everything folded, or IndeterminateTS when the day contains an
	// entry or channel whose state cannot be determined.
	MaxUnfolded int64
	Folded      bool
	Channels    []ChannelState
}

// Delta is a fold-state write the tracker must commit.
type Delta struct {
	Key       string
	Threshold int64
}

// Evaluate derives the fold state of day. threshold/ok are the stored fold
// timestamp for the day key (ok false when nothing is stored). mode carries
// the toggle intent; use the zero Mode for plain rendering.
func Evaluate(day Day, threshold int64, ok bool, mode Mode) Result {
	res := Result{
		DayKey:   day.Key,
		Channels: make([]ChannelState, len(day.Channels)),
	}

	for ci, ch := range day.Channels {
		cs := ChannelState{Entries: make([]bool, len(ch.Entries))}
		allFolded := true

		for ei, e := range ch.Entries {
			if e.Timestamp <= 0 {
				// Unknown read state: keep visible, poison the day.
				allFolded = false
				if res.MaxUnfolded < IndeterminateTS {
					res.MaxUnfolded = IndeterminateTS
				}
				continue
			}
			foldable := !mode.Unfold && ok && threshold >= e.Timestamp
			if foldable && mode.Force != ForceShow {
				cs.Entries[ei] = true
				continue
			}
			allFolded = false
			if !foldable && e.Timestamp > res.MaxUnfolded {
				res.MaxUnfolded = e.Timestamp
			}
		}

		// An empty channel must not hide itself, and blocks day folding.
		if len(ch.Entries) == 0 {
			allFolded = false
			if res.MaxUnfolded < IndeterminateTS {
				res.MaxUnfolded = IndeterminateTS
			}
		}
		cs.Folded = allFolded
		res.Channels[ci] = cs
	}

	res.Folded = !mode.Unfold && mode.Force != ForceShow &&
		(mode.Force == ForceFold || res.MaxUnfolded == 0)
	return res
}

// ToggleDay computes the render state and fold-state write for a "fold one
// day" toggle. If anything is still unfolded, the day folds and the
// threshold advances to cover it (never regressing below the previous
// threshold). If the day is already fully folded, it unfolds completely and
// the threshold resets to zero.
func ToggleDay(day Day, threshold int64, ok bool) (Result, Delta) {
	probe := Evaluate(day, threshold, ok, Mode{})
	if probe.MaxUnfolded > 0 {
		commit := probe.MaxUnfolded
		if ok && threshold > commit {
			commit = threshold
		}
		res := Evaluate(day, commit, true, Mode{Force: ForceFold})
		return res, Delta{Key: day.Key, Threshold: commit}
	}
	res := Evaluate(day, threshold, ok, Mode{Unfold: true})
	return res, Delta{Key: day.Key, Threshold: 0}
}

// Lookup resolves a stored threshold for a day key. *foldstate.State
// satisfies it.
type Lookup interface {
	Get(key string) (int64, bool)
}

// ToggleAll computes the render state and writes for the page-wide "fold
// all" control. The direction is decided once for the whole page: if any
// day still has unfolded content everything folds, otherwise everything
// unfolds. Results and deltas are returned in input order.
func ToggleAll(days []Day, lookup Lookup) ([]Result, []Delta) {
	var pageMax int64
	probes := make([]Result, len(days))
	for i, d := range days {
		thr, ok := lookup.Get(d.Key)
		probes[i] = Evaluate(d, thr, ok, Mode{})
		if probes[i].MaxUnfolded > pageMax {
			pageMax = probes[i].MaxUnfolded
		}
	}

	results := make([]Result, len(days))
	deltas := make([]Delta, len(days))
	for i, d := range days {
		thr, ok := lookup.Get(d.Key)
		if pageMax > 0 {
			commit := probes[i].MaxUnfolded
			if ok && thr > commit {
				commit = thr
			}
			results[i] = Evaluate(d, commit, true, Mode{Force: ForceFold})
			deltas[i] = Delta{Key: d.Key, Threshold: commit}
		} else {
			results[i] = Evaluate(d, thr, ok, Mode{Unfold: true})
			deltas[i] = Delta{Key: d.Key, Threshold: 0}
		}
	}
	return results, deltas
}
