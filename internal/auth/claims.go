package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Dashboard roles. Operators read calls and stats; admin is reserved for
// privileged surfaces.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// Claims are the only supported JWT claims shape for this service.
// Single-tenant: an operator identity and a role, no workspace dimension.
type Claims struct {
	jwt.RegisteredClaims

	OperatorID string    `json:"operator_id"`
	Role       string    `json:"role"`
	TokenType  TokenType `json:"token_type"`
}
