// Package authtoken decodes the claims embedded in the bearer token
// issued by the identity provider. The client never verifies the
// signature (the backend does that); it only needs the identity and
// expiry fields to drive local session state.
package authtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrMalformedToken = errors.New("malformed token")

// Claims are the token fields the client cares about.
type Claims struct {
	Subject     string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"given_name"`
	ExpiresAt   int64  `json:"exp"`
}

// Expired reports whether the claims are stale at the given time.
// Expiry is deliberately not part of Decode: callers need to tell
// a corrupt token (discard loudly) from a stale one (drop silently).
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.Unix()
}

// Decode extracts the claims from a compact JWT without verifying the
// signature. Returns ErrMalformedToken for anything that is not a
// three-part token with a base64url JSON payload.
func Decode(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Claims{}, ErrMalformedToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrMalformedToken
	}

	return claims, nil
}
