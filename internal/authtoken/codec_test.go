package authtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func mintToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshaling claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := mintToken(t, map[string]any{
		"sub":        "user-123",
		"email":      "jo@example.com",
		"given_name": "Jo",
		"exp":        exp,
	})

	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Expected subject user-123, got %s", claims.Subject)
	}
	if claims.Email != "jo@example.com" {
		t.Errorf("Expected email jo@example.com, got %s", claims.Email)
	}
	if claims.DisplayName != "Jo" {
		t.Errorf("Expected display name Jo, got %s", claims.DisplayName)
	}
	if claims.ExpiresAt != exp {
		t.Errorf("Expected exp %d, got %d", exp, claims.ExpiresAt)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"two parts", "abc.def"},
		{"four parts", "a.b.c.d"},
		{"payload not base64", "header.!!!.sig"},
		{"payload not json", "header." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Expected ErrMalformedToken, got %v", err)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		exp     int64
		expired bool
	}{
		{"future expiry", now.Add(time.Hour).Unix(), false},
		{"past expiry", now.Add(-time.Hour).Unix(), true},
		{"expiry exactly now", now.Unix(), true},
		{"zero expiry", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Claims{ExpiresAt: tt.exp}
			if got := c.Expired(now); got != tt.expired {
				t.Errorf("Expected expired=%v, got %v", tt.expired, got)
			}
		})
	}
}
