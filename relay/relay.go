// CLAUDE:SUMMARY HTTP API of the fold relay — token issuance plus authenticated GET/PUT of per-site fold snapshots.
//
// Package relay implements the server side of fold synchronization. Clients
// registered in the store exchange their credentials for a short-lived JWT,
// then read and write one fold snapshot per site key:
//
//	POST /api/auth/token        {"client_id": ..., "client_secret": ...}
//	GET  /api/fold/{siteKey}    → snapshot JSON (empty snapshot if none)
//	PUT  /api/fold/{siteKey}    ← snapshot JSON
//
// Snapshot responses carry no-cache headers: a stale cached snapshot would
// silently undo reconciliation on the next client fetch.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/repli/auth"
	"github.com/hazyhaar/repli/foldsync"
	"github.com/hazyhaar/repli/observability"
)

// DefaultTokenTTL is the lifetime of issued access tokens.
const DefaultTokenTTL = 24 * time.Hour

// Server serves the relay API on top of a Store.
type Server struct {
	store    *Store
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	metrics  *observability.MetricsManager // nil disables metrics
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithTokenTTL overrides the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) { s.tokenTTL = ttl }
}

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithMetrics enables metric recording on snapshot and token operations.
func WithMetrics(mm *observability.MetricsManager) ServerOption {
	return func(s *Server) { s.metrics = mm }
}

// NewServer creates a relay server. The secret signs access tokens and must
// be at least auth.MinSecretLen bytes.
func NewServer(store *Store, secret []byte, opts ...ServerOption) (*Server, error) {
	if err := auth.ValidateSecret(secret); err != nil {
		return nil, err
	}
	s := &Server{
		store:    store,
		secret:   secret,
		tokenTTL: DefaultTokenTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router returns the chi router serving the relay API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/auth/token", s.handleToken)

	r.Route("/api/fold", func(r chi.Router) {
		r.Use(auth.Middleware(s.secret))
		r.Use(auth.RequireAuth)
		r.Get("/{siteKey}", s.handleFetch)
		r.Put("/{siteKey}", s.handlePush)
	})

	return r
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}

	client, err := s.store.Authenticate(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		s.logger.Warn("relay: token refused", "client_id", req.ClientID)
		s.count(observability.MetricTokenRefusedCount, "")
		writeJSON(w, 401, map[string]string{"error": "identifiants invalides"})
		return
	}

	token, err := auth.GenerateToken(s.secret, &auth.ClientClaims{
		ClientID: client.ID,
		Name:     client.Name,
	}, s.tokenTTL)
	if err != nil {
		writeError(w, 500, err)
		return
	}

	s.count(observability.MetricTokenIssuedCount, "")
	writeJSON(w, 200, map[string]any{
		"token":      token,
		"expires_in": int64(s.tokenTTL.Seconds()),
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	siteKey := chi.URLParam(r, "siteKey")

	payload, ok, err := s.store.LoadSnapshot(r.Context(), claims.ClientID, siteKey)
	if err != nil {
		s.logger.Error("relay: fetch failed", "client_id", claims.ClientID, "site", siteKey, "error", err)
		writeError(w, 500, err)
		return
	}

	s.count(observability.MetricSnapshotFetchCount, siteKey)
	noCache(w)
	if !ok {
		writeJSON(w, 200, foldsync.Snapshot{
			Values:       map[string]int64{},
			LastModified: map[string]int64{},
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	w.Write(payload)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	siteKey := chi.URLParam(r, "siteKey")

	// Reject payloads that do not decode as a snapshot. A malformed blob
	// stored here would poison every later fetch.
	var snap foldsync.Snapshot
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		writeError(w, 400, err)
		return
	}

	payload, err := json.Marshal(&snap)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	if err := s.store.SaveSnapshot(r.Context(), claims.ClientID, siteKey, payload); err != nil {
		s.logger.Error("relay: push failed", "client_id", claims.ClientID, "site", siteKey, "error", err)
		writeError(w, 500, err)
		return
	}

	s.count(observability.MetricSnapshotPushCount, siteKey)
	if s.metrics != nil {
		s.metrics.RecordSimple(observability.MetricSnapshotBytes, float64(len(payload)), "bytes")
	}

	s.logger.Debug("relay: snapshot stored",
		"client_id", claims.ClientID, "site", siteKey, "keys", len(snap.Values))
	w.WriteHeader(http.StatusNoContent)
}

// count records a unit counter metric when metrics are enabled.
func (s *Server) count(name, site string) {
	if s.metrics == nil {
		return
	}
	m := &observability.Metric{Name: name, Timestamp: time.Now(), Value: 1, Unit: "count"}
	if site != "" {
		m.Labels = map[string]string{"site": site}
	}
	s.metrics.Record(m)
}

// noCache marks a snapshot response as uncacheable.
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
