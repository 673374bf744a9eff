// CLAUDE:SUMMARY Session controller — owns the fold state, wires storage, compaction, toggles, and sync.
// Package tracker is the session-scoped fold-state controller.
//
// One Tracker owns the FoldState of one storage namespace for the lifetime
// of a session. The rendering layer hands it content trees and toggle
// events; the tracker derives render state through foldview, commits
// writes, runs compaction, and flushes to the SQLite store after every
// logical operation. Reconciliation with a relay is delegated to foldsync
// when an endpoint and token are configured.
//
// Storage failures degrade rather than propagate: an unopenable database
// makes the tracker memory-only, unreadable state starts a session empty.
// The render path never sees a storage error.
//
// Usage:
//
//	tr, err := tracker.New(cfg, logger)
//	defer tr.Close()
//	res := tr.ToggleDay(day)      // derive + commit + persist
//	rep, err := tr.Sync(ctx)      // optional relay reconciliation
package tracker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/repli/foldstate"
	"github.com/hazyhaar/repli/foldsync"
	"github.com/hazyhaar/repli/foldview"
	"github.com/hazyhaar/repli/tracker/internal/store"
)

// Tracker is the session controller for one namespace.
type Tracker struct {
	config    *Config
	logger    *slog.Logger
	state     *foldstate.State
	compactor foldstate.Compactor
	store     *store.Store // nil when storage is unavailable
	engine    *foldsync.Engine
	refresh   func()
}

// New creates a Tracker: opens the store, loads the namespace state and
// prepares the sync engine. Storage problems are logged and degraded, not
// returned; the only fatal condition is a nil config.
func New(cfg *Config, logger *slog.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("tracker: nil config")
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		config: cfg,
		logger: logger,
		compactor: foldstate.Compactor{
			GCThreshold:  cfg.Compaction.GCThreshold,
			RetainWindow: cfg.Compaction.RetainWindow,
			ValueLimit:   cfg.Compaction.ValueLimit,
		},
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		// Storage unavailable: run memory-only for this session.
		logger.Warn("tracker: store unavailable, fold state will not survive reload",
			"db", cfg.DBPath, "error", err)
	} else {
		t.store = s
	}

	t.state = t.load(context.Background())
	t.engine = t.newEngine()

	logger.Info("tracker: session started",
		"site", cfg.Site, "keys", t.state.Len(), "persistent", t.store != nil)
	return t, nil
}

func (t *Tracker) load(ctx context.Context) *foldstate.State {
	if t.store == nil {
		return foldstate.New(nil)
	}
	p, err := t.store.Load(ctx, t.config.Site)
	if err != nil {
		// Corrupt or unreadable state: start empty rather than fail the
		// session.
		t.logger.Error("tracker: stored state unreadable, starting empty",
			"site", t.config.Site, "error", err)
		return foldstate.New(nil)
	}
	return foldstate.Restore(p, nil)
}

func (t *Tracker) newEngine() *foldsync.Engine {
	if t.config.Sync.Endpoint == "" {
		return nil
	}
	transport := foldsync.NewHTTPTransport(foldsync.HTTPConfig{
		BaseURL: t.config.Sync.Endpoint,
		Token:   t.config.Sync.Token,
		Timeout: t.config.Sync.Timeout,
	})
	return &foldsync.Engine{
		Transport:  transport,
		Authorized: func() bool { return t.config.Sync.Token != "" },
		Compactor:  t.compactor,
		Persist: func(ctx context.Context, st *foldstate.State) error {
			return t.save(ctx, st)
		},
		Refresh: func() {
			if t.refresh != nil {
				t.refresh()
			}
		},
		Logger: t.logger,
	}
}

// OnRefresh registers the callback invoked after a sync merges remote
// changes, so the rendering layer can re-evaluate the displayed groups.
func (t *Tracker) OnRefresh(fn func()) { t.refresh = fn }

// State exposes the underlying fold state for read access (rendering,
// stats, tests).
func (t *Tracker) State() *foldstate.State { return t.state }

// Evaluate derives the render state of one day without mutating anything.
func (t *Tracker) Evaluate(day foldview.Day) foldview.Result {
	thr, ok := t.state.Get(day.Key)
	return foldview.Evaluate(day, thr, ok, foldview.Mode{})
}

// ToggleDay handles the per-day fold control: derives the new render
// state, commits the threshold write, compacts and persists.
func (t *Tracker) ToggleDay(day foldview.Day) foldview.Result {
	thr, ok := t.state.Get(day.Key)
	res, delta := foldview.ToggleDay(day, thr, ok)
	t.commit(delta)
	return res
}

// ToggleAll handles the page-wide fold control across days.
func (t *Tracker) ToggleAll(days []foldview.Day) []foldview.Result {
	results, deltas := foldview.ToggleAll(days, t.state)
	for _, d := range deltas {
		t.state.Update(d.Key, d.Threshold)
	}
	t.afterWrite()
	return results
}

func (t *Tracker) commit(delta foldview.Delta) {
	t.state.Update(delta.Key, delta.Threshold)
	t.afterWrite()
}

// afterWrite runs the post-mutation pipeline: compaction, then persist.
func (t *Tracker) afterWrite() {
	t.compactor.Compact(t.state)
	if err := t.save(context.Background(), t.state); err != nil {
		t.logger.Error("tracker: persist failed", "site", t.config.Site, "error", err)
	}
}

// Compact forces an eviction pass and persists the result. Returns true
// when the pass changed the state.
func (t *Tracker) Compact() bool {
	changed := t.compactor.Compact(t.state)
	if changed {
		if err := t.save(context.Background(), t.state); err != nil {
			t.logger.Error("tracker: persist failed", "site", t.config.Site, "error", err)
		}
	}
	return changed
}

func (t *Tracker) save(ctx context.Context, st *foldstate.State) error {
	if t.store == nil {
		return nil
	}
	return t.store.Save(ctx, t.config.Site, st.Export())
}

// Sync runs one reconciliation round against the configured relay.
// Returns foldsync.ErrNotAuthorized when sync is not configured or the
// token is absent; callers skip silently on that error.
func (t *Tracker) Sync(ctx context.Context) (*foldsync.Report, error) {
	if t.engine == nil {
		return nil, foldsync.ErrNotAuthorized
	}
	return t.engine.Sync(ctx, t.config.Site, t.state)
}

// Stats summarises the tracked state.
type Stats struct {
	Site       string `json:"site"`
	Keys       int    `json:"keys"`
	LogEntries int    `json:"log_entries"`
	Persistent bool   `json:"persistent"`
	SyncReady  bool   `json:"sync_ready"`
}

// Stats returns current tracker counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Site:       t.config.Site,
		Keys:       t.state.Len(),
		LogEntries: t.state.LogLen(),
		Persistent: t.store != nil,
		SyncReady:  t.engine != nil && t.config.Sync.Token != "",
	}
}

// Close flushes the state one last time and closes the store.
func (t *Tracker) Close() error {
	if t.store == nil {
		return nil
	}
	if err := t.save(context.Background(), t.state); err != nil {
		t.logger.Error("tracker: final persist failed", "error", err)
	}
	return t.store.Close()
}
