package auth

import "github.com/golang-jwt/jwt/v5"

// ClientClaims defines the JWT claims carried by relay access tokens.
// It embeds jwt.RegisteredClaims for standard fields (exp, iat, etc.) and
// adds the registered client identity.
type ClientClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Name     string `json:"name,omitempty"`
}
