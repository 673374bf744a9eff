package foldview

import (
	"testing"

	"github.com/hazyhaar/repli/foldstate"
)

func day(key string, channels ...Channel) Day {
	return Day{Key: key, Channels: channels}
}

func channel(name string, timestamps ...int64) Channel {
	ch := Channel{Name: name}
	for _, ts := range timestamps {
		ch.Entries = append(ch.Entries, Entry{Timestamp: ts})
	}
	return ch
}

func TestEvaluateThresholdSplit(t *testing.T) {
	// WHAT: Entries at or below the threshold fold, entries above stay
	// unfolded and feed MaxUnfolded.
	// WHY: This is the core derivation every render depends on.
	d := day("d1", channel("ch", 100, 150, 200))
	res := Evaluate(d, 150, true, Mode{})

	wantFolded := []bool{true, true, false}
	for i, want := range wantFolded {
		if res.Channels[0].Entries[i] != want {
			t.Errorf("entry %d: folded=%v, want %v", i, res.Channels[0].Entries[i], want)
		}
	}
	if res.MaxUnfolded != 200 {
		t.Errorf("MaxUnfolded: got %d, want 200", res.MaxUnfolded)
	}
	if res.Folded {
		t.Error("day folded while an entry is unfolded")
	}
	if res.Channels[0].Folded {
		t.Error("channel folded while an entry is unfolded")
	}
}

func TestEvaluateNoThreshold(t *testing.T) {
	d := day("d1", channel("ch", 100, 200))
	res := Evaluate(d, 0, false, Mode{})
	for i, folded := range res.Channels[0].Entries {
		if folded {
			t.Errorf("entry %d folded without a stored threshold", i)
		}
	}
	if res.Folded {
		t.Error("day folded without a stored threshold")
	}
}

func TestEvaluateFullyRead(t *testing.T) {
	d := day("d1", channel("a", 100), channel("b", 150, 200))
	res := Evaluate(d, 200, true, Mode{})
	if res.MaxUnfolded != 0 {
		t.Errorf("MaxUnfolded: got %d, want 0", res.MaxUnfolded)
	}
	if !res.Folded {
		t.Error("fully read day did not fold")
	}
	for ci, cs := range res.Channels {
		if !cs.Folded {
			t.Errorf("channel %d did not fold", ci)
		}
	}
}

func TestEvaluateMissingTimestamp(t *testing.T) {
	// WHAT: An entry without a timestamp always renders unfolded and pins
	// MaxUnfolded to the indeterminate sentinel.
	// WHY: Unknown read state must never be hidden by a stale threshold.
	d := day("d1", channel("ch", 100, 0))
	res := Evaluate(d, 500, true, Mode{})

	if res.Channels[0].Entries[1] {
		t.Error("timestampless entry folded")
	}
	if res.MaxUnfolded != IndeterminateTS {
		t.Errorf("MaxUnfolded: got %d, want sentinel %d", res.MaxUnfolded, IndeterminateTS)
	}
	if res.Folded {
		t.Error("day folded despite indeterminate entry")
	}
}

func TestEvaluateEmptyChannel(t *testing.T) {
	d := day("d1", channel("full", 100), Channel{Name: "empty"})
	res := Evaluate(d, 500, true, Mode{})

	if res.Channels[1].Folded {
		t.Error("empty channel hid itself")
	}
	if res.MaxUnfolded != IndeterminateTS {
		t.Errorf("MaxUnfolded: got %d, want sentinel %d", res.MaxUnfolded, IndeterminateTS)
	}
	if res.Folded {
		t.Error("day folded despite empty channel")
	}
}

func TestEvaluateForceShow(t *testing.T) {
	// ForceShow displays below-threshold entries while the day stays open.
	d := day("d1", channel("ch", 100, 200))
	res := Evaluate(d, 200, true, Mode{Force: ForceShow})

	for i, folded := range res.Channels[0].Entries {
		if folded {
			t.Errorf("entry %d folded under ForceShow", i)
		}
	}
	if res.MaxUnfolded != 0 {
		t.Errorf("ForceShow must still count entries foldable: MaxUnfolded=%d", res.MaxUnfolded)
	}
	if res.Folded {
		t.Error("day folded under ForceShow")
	}
}

func TestEvaluateUnfoldOverride(t *testing.T) {
	d := day("d1", channel("ch", 100, 200))
	res := Evaluate(d, 500, true, Mode{Unfold: true})
	for i, folded := range res.Channels[0].Entries {
		if folded {
			t.Errorf("entry %d folded under Unfold", i)
		}
	}
	if res.Folded {
		t.Error("day folded under Unfold")
	}
}

func TestToggleDayFoldsUnreadDay(t *testing.T) {
	// WHAT: First toggle on an unread day folds everything and commits the
	// highest entry timestamp.
	// WHY: End-to-end fold scenario — one channel, entries 100 and 200.
	d := day("d1", channel("ch", 100, 200))
	res, delta := ToggleDay(d, 0, false)

	if delta.Key != "d1" || delta.Threshold != 200 {
		t.Fatalf("delta: got %+v, want {d1 200}", delta)
	}
	if !res.Folded {
		t.Error("day did not fold")
	}
	for i, folded := range res.Channels[0].Entries {
		if !folded {
			t.Errorf("entry %d not folded", i)
		}
	}
}

func TestToggleDayUnfoldsReadDay(t *testing.T) {
	// Second toggle on a fully folded day unfolds and resets the threshold.
	d := day("d1", channel("ch", 100, 200))
	res, delta := ToggleDay(d, 200, true)

	if delta.Threshold != 0 {
		t.Fatalf("delta threshold: got %d, want 0", delta.Threshold)
	}
	if res.Folded {
		t.Error("day did not unfold")
	}
	for i, folded := range res.Channels[0].Entries {
		if folded {
			t.Errorf("entry %d still folded", i)
		}
	}
}

func TestToggleDayNeverRegressesThreshold(t *testing.T) {
	// A fold commit keeps the previous threshold when it is higher than the
	// current page's max (entries can disappear between renders).
	d := day("d1", channel("ch", 100, 150))
	_, delta := ToggleDay(d, 400, true) // 400 folds everything... probe MaxUnfolded=0 → unfold
	if delta.Threshold != 0 {
		t.Fatalf("fully folded day should unfold: %+v", delta)
	}

	// Threshold 120 leaves 150 unfolded; commit must advance to 150.
	_, delta = ToggleDay(d, 120, true)
	if delta.Threshold != 150 {
		t.Errorf("commit: got %d, want 150", delta.Threshold)
	}
}

func TestToggleAllUniformDirection(t *testing.T) {
	// WHAT: Fold-all decides one direction for every day, even days already
	// fully folded.
	// WHY: Mixed per-day directions would make the control feel random.
	st := foldstate.New(nil)
	st.Update("read", 200)

	days := []Day{
		day("read", channel("a", 100, 200)),   // fully folded
		day("unread", channel("b", 300, 400)), // nothing stored
	}

	results, deltas := ToggleAll(days, st)
	// Page max is 400 > 0 → everything folds.
	for i, res := range results {
		if !res.Folded {
			t.Errorf("day %d did not fold", i)
		}
	}
	if deltas[0].Threshold != 200 {
		t.Errorf("read day commit: got %d, want 200 (keep previous)", deltas[0].Threshold)
	}
	if deltas[1].Threshold != 400 {
		t.Errorf("unread day commit: got %d, want 400", deltas[1].Threshold)
	}
}

func TestToggleAllUnfoldsWhenEverythingRead(t *testing.T) {
	st := foldstate.New(nil)
	st.Update("d1", 200)
	st.Update("d2", 400)

	days := []Day{
		day("d1", channel("a", 100, 200)),
		day("d2", channel("b", 300, 400)),
	}

	results, deltas := ToggleAll(days, st)
	for i, res := range results {
		if res.Folded {
			t.Errorf("day %d still folded", i)
		}
	}
	for i, delta := range deltas {
		if delta.Threshold != 0 {
			t.Errorf("delta %d: got %d, want 0", i, delta.Threshold)
		}
	}
}
