package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jpalacios-dev/comanda-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintTerminalToken issues a signed JWT for the provided terminal using the
// configured TTL. Terminals hold one long lived token; the default TTL is a
// month so a kiosk keeps working across restarts without re-enrollment.
func MintTerminalToken(cfg config.TerminalConfig, now time.Time, payload TerminalTokenPayload) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("terminal jwt secret is required")
	}
	if cfg.JWTIssuer == "" {
		return "", fmt.Errorf("terminal jwt issuer is required")
	}
	if cfg.TokenTTL() <= 0 {
		return "", fmt.Errorf("terminal token ttl must be positive")
	}
	if strings.TrimSpace(payload.TerminalID) == "" {
		return "", fmt.Errorf("terminal id is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := TerminalTokenClaims{
		TerminalID:   payload.TerminalID,
		TerminalName: payload.TerminalName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL())),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseTerminalToken validates the JWT string and returns typed claims.
func ParseTerminalToken(cfg config.TerminalConfig, tokenString string) (*TerminalTokenClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("terminal jwt secret is required")
	}

	claims := &TerminalTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.JWTIssuer),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.TerminalID) == "" {
		return nil, fmt.Errorf("terminal id claim missing")
	}

	return claims, nil
}
