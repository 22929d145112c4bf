package auth

import (
	"testing"
	"time"

	"github.com/catalyst/moodle-availability-paypal/pkg/config"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "availpaypal",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()

	payload := AccessTokenPayload{
		UserID: 42,
		Role:   RoleAdmin,
		JTI:    "token-1",
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != 42 {
		t.Fatalf("expected user_id 42, got %d", claims.UserID)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID != "token-1" {
		t.Fatalf("unexpected jti %s", claims.ID)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		t.Fatal("expected expiry in the future")
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	valid := config.JWTConfig{Secret: "secret", Issuer: "availpaypal", ExpirationMinutes: 30}
	now := time.Now()

	tests := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		{"missing secret", config.JWTConfig{Issuer: "availpaypal", ExpirationMinutes: 30}, AccessTokenPayload{UserID: 1}},
		{"missing issuer", config.JWTConfig{Secret: "secret", ExpirationMinutes: 30}, AccessTokenPayload{UserID: 1}},
		{"zero expiration", config.JWTConfig{Secret: "secret", Issuer: "availpaypal"}, AccessTokenPayload{UserID: 1}},
		{"missing user", valid, AccessTokenPayload{}},
	}

	for _, tt := range tests {
		if _, err := MintAccessToken(tt.cfg, now, tt.payload); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "availpaypal", ExpirationMinutes: 30}
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 42, Role: RoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "availpaypal", ExpirationMinutes: 5}
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: 42, Role: RoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expiry error")
	}
}
