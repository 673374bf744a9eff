// CLAUDE:SUMMARY Reusable HTTP middleware stack for the relay: security headers, body limits, tracing, rate limiting, maintenance.
//
// Package shield provides the HTTP middleware applied in front of the fold
// relay API. It consolidates security headers, body limits, request tracing,
// per-IP rate limiting and a maintenance flag into a single importable
// package.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxJSONBody(4 << 20))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(db).Middleware)
//
// Or apply the default API stack in one call:
//
//	stack, mm := shield.DefaultAPIStack(db)
//	mm.StartReloader(done)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for the relay API.
// Middleware is ordered: Maintenance → HeadToGet → SecurityHeaders →
// MaxJSONBody → TraceID → RateLimiter. The returned MaintenanceMode handle
// allows callers to call StartReloader. Health checks (/health) bypass
// maintenance.
func DefaultAPIStack(db *sql.DB) ([]func(http.Handler) http.Handler, *MaintenanceMode) {
	rl := NewRateLimiter(db, "/health")
	mm := NewMaintenanceMode(db, "/health")
	return []func(http.Handler) http.Handler{
		mm.Middleware,
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(4 << 20),
		TraceID,
		rl.Middleware,
	}, mm
}
