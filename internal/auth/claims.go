package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service. The
// caller identity travels in the registered subject claim.
type Claims struct {
	jwt.RegisteredClaims

	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}
