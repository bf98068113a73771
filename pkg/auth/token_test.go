package auth

import (
	"testing"
	"time"

	"github.com/jpalacios-dev/comanda-backend/pkg/config"
)

func testTerminalConfig() config.TerminalConfig {
	return config.TerminalConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "comanda",
		TokenTTLMinutes: 60,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testTerminalConfig()
	now := time.Now()

	signed, err := MintTerminalToken(cfg, now, TerminalTokenPayload{
		TerminalID:   "bar-1",
		TerminalName: "Bar Terminal",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseTerminalToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TerminalID != "bar-1" || claims.TerminalName != "Bar Terminal" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}
	if claims.Issuer != "comanda" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	cfg := testTerminalConfig()
	signed, err := MintTerminalToken(cfg, time.Now(), TerminalTokenPayload{TerminalID: "bar-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.JWTSecret = "a-different-secret"
	if _, err := ParseTerminalToken(other, signed); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	cfg := testTerminalConfig()
	signed, err := MintTerminalToken(cfg, time.Now(), TerminalTokenPayload{TerminalID: "bar-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.JWTIssuer = "someone-else"
	if _, err := ParseTerminalToken(other, signed); err == nil {
		t.Fatal("expected issuer failure")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	cfg := testTerminalConfig()
	signed, err := MintTerminalToken(cfg, time.Now().Add(-2*time.Hour), TerminalTokenPayload{TerminalID: "bar-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseTerminalToken(cfg, signed); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestMintRequiresTerminalID(t *testing.T) {
	t.Parallel()

	if _, err := MintTerminalToken(testTerminalConfig(), time.Now(), TerminalTokenPayload{}); err == nil {
		t.Fatal("expected error for missing terminal id")
	}
}
