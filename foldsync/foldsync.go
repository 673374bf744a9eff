// CLAUDE:SUMMARY Last-writer-wins reconciliation of local fold state against a remote snapshot, plus full push-back.
// Package foldsync reconciles the local fold state with a server-held copy.
//
// The protocol is fetch → merge → compact → persist → refresh → push: the
// remote snapshot is merged into local state with last-writer-wins on the
// per-key modification stamp, then the full merged state is pushed back so
// both sides converge. Sync only runs when the external authorization
// signal is present; without it the engine reports ErrNotAuthorized and
// touches nothing.
//
// There is no automatic retry. A fetch failure leaves local state untouched;
// a push failure leaves local state updated but not mirrored remotely. Both
// surface through the Report so the caller can show a notice.
package foldsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/repli/foldstate"
)

// ErrNotAuthorized is returned when the sync authorization signal is absent.
// Callers skip sync silently on this error — it is not a failure notice.
var ErrNotAuthorized = errors.New("foldsync: sync not authorized")

// TransportError wraps a network failure during fetch or push. These are the
// only sync errors that warrant a user-visible notice.
type TransportError struct {
	Op  string // "fetch" or "push"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("foldsync: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Snapshot is the wire unit exchanged with the remote store: the threshold
// map and the per-key modification stamps.
type Snapshot struct {
	Values       map[string]int64 `json:"values"`
	LastModified map[string]int64 `json:"last_modified"`
}

// SnapshotOf captures the pushable snapshot of st, including stamps of
// evicted keys.
func SnapshotOf(st *foldstate.State) *Snapshot {
	return &Snapshot{
		Values:       st.Values(),
		LastModified: st.Stamps(),
	}
}

// Transport moves snapshots to and from the remote store, scoped by a site
// key. Fetch returns an empty snapshot (not an error) when the remote has
// nothing stored for the site.
type Transport interface {
	Fetch(ctx context.Context, siteKey string) (*Snapshot, error)
	Push(ctx context.Context, siteKey string, snap *Snapshot) error
}

// Merge applies remote entries that win last-writer-wins into st: a remote
// key is taken when the local side has no modification stamp for it, or the
// remote stamp is strictly newer. Ties keep the local value. Returns the
// keys applied, in no particular order.
//
// Applied keys go through State.Update, so they are logged and re-stamped
// locally like any other write.
func Merge(st *foldstate.State, remote *Snapshot) []string {
	if remote == nil {
		return nil
	}
	var applied []string
	for key, val := range remote.Values {
		local, ok := st.LastModified(key)
		if ok && remote.LastModified[key] <= local {
			continue
		}
		st.Update(key, val)
		applied = append(applied, key)
	}
	return applied
}

// Report summarises one sync run for the UI layer.
type Report struct {
	Applied []string // keys taken from the remote snapshot
	Evicted bool     // compaction ran after the merge
	Pushed  bool     // merged state reached the remote store
}

// Engine drives the reconciliation protocol. All fields except Transport
// are optional.
type Engine struct {
	Transport Transport

	// Authorized gates every sync run. Nil means never authorized.
	Authorized func() bool

	// Compactor bounds state growth after a merge. Zero value uses defaults.
	Compactor foldstate.Compactor

	// Persist flushes the merged state. Persist errors are logged, not
	// fatal — durability degradation must not abort the protocol.
	Persist func(ctx context.Context, st *foldstate.State) error

	// Refresh re-renders the currently displayed groups after a merge.
	Refresh func()

	Logger *slog.Logger
}

// Sync runs one reconciliation round against siteKey. On fetch failure the
// local state is untouched; on push failure it is updated locally but not
// mirrored. Both failure modes return a *TransportError alongside the
// partial Report.
func (e *Engine) Sync(ctx context.Context, siteKey string, st *foldstate.State) (*Report, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.Authorized == nil || !e.Authorized() {
		return nil, ErrNotAuthorized
	}

	remote, err := e.Transport.Fetch(ctx, siteKey)
	if err != nil {
		logger.Error("foldsync: fetch failed", "site", siteKey, "error", err)
		return nil, &TransportError{Op: "fetch", Err: err}
	}

	rep := &Report{Applied: Merge(st, remote)}
	rep.Evicted = e.Compactor.Compact(st)

	if e.Persist != nil {
		if err := e.Persist(ctx, st); err != nil {
			logger.Error("foldsync: persist after merge failed", "site", siteKey, "error", err)
		}
	}
	if e.Refresh != nil {
		e.Refresh()
	}

	if err := e.Transport.Push(ctx, siteKey, SnapshotOf(st)); err != nil {
		logger.Error("foldsync: push failed", "site", siteKey, "error", err)
		return rep, &TransportError{Op: "push", Err: err}
	}
	rep.Pushed = true

	logger.Info("foldsync: sync complete",
		"site", siteKey, "applied", len(rep.Applied), "evicted", rep.Evicted)
	return rep, nil
}
