package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TerminalTokenPayload captures the data available when minting a terminal
// token.
type TerminalTokenPayload struct {
	TerminalID   string
	TerminalName string
	JTI          string
}

// TerminalTokenClaims represents the typed JWT issued to ordering terminals.
type TerminalTokenClaims struct {
	TerminalID   string `json:"terminal_id"`
	TerminalName string `json:"terminal_name,omitempty"`
	jwt.RegisteredClaims
}
