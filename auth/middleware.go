package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type claimsKey struct{}

// Middleware returns an http.Handler middleware that extracts a JWT from the
// Authorization Bearer header. If valid, the parsed ClientClaims are injected
// into the request context. Invalid or missing tokens are silently ignored —
// use RequireAuth to enforce.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tokenStr = h[7:]
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(secret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the ClientClaims from the context, or nil if absent.
func GetClaims(ctx context.Context) *ClientClaims {
	c, _ := ctx.Value(claimsKey{}).(*ClientClaims)
	return c
}

// RequireAuth is an http.Handler middleware that rejects unauthenticated
// requests with a 401 JSON response. It checks for the presence of
// ClientClaims in context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentification requise"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
