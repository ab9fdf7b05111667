package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nimbus-ai/nimbus-cli/internal/authtoken"
	"github.com/nimbus-ai/nimbus-cli/internal/credstore"
)

// memorySlot is an in-memory credstore.Slot for tests.
type memorySlot struct {
	token  string
	writes int
	clears int
}

func (m *memorySlot) Read() (string, error) {
	if m.token == "" {
		return "", credstore.ErrNoToken
	}
	return m.token, nil
}

func (m *memorySlot) Write(token string) error {
	m.token = token
	m.writes++
	return nil
}

func (m *memorySlot) Clear() error {
	m.token = ""
	m.clears++
	return nil
}

func (m *memorySlot) Present() bool { return m.token != "" }

func mintToken(t *testing.T, email string, exp int64) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"sub":        "user-1",
		"email":      email,
		"given_name": "Test",
		"exp":        exp,
	})
	if err != nil {
		t.Fatalf("marshaling claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestInitializeRestoresValidToken(t *testing.T) {
	token := mintToken(t, "jo@example.com", time.Now().Add(time.Hour).Unix())
	slot := &memorySlot{token: token}
	store := NewStore(slot)

	store.Initialize()

	state := store.State()
	if !state.Authenticated {
		t.Fatal("Expected authenticated state")
	}
	if state.User == nil || state.User.Email != "jo@example.com" {
		t.Errorf("Expected user jo@example.com, got %+v", state.User)
	}
	if state.Token != token {
		t.Error("Expected token to be retained in state")
	}
}

func TestInitializeClearsExpiredToken(t *testing.T) {
	slot := &memorySlot{token: mintToken(t, "jo@example.com", time.Now().Add(-time.Minute).Unix())}
	store := NewStore(slot)

	store.Initialize()

	if store.State().Authenticated {
		t.Error("Expected anonymous state for expired token")
	}
	if slot.clears != 1 {
		t.Errorf("Expected slot cleared once, got %d", slot.clears)
	}
}

func TestInitializeClearsMalformedToken(t *testing.T) {
	slot := &memorySlot{token: "garbage"}
	store := NewStore(slot)

	store.Initialize()

	if store.State().Authenticated {
		t.Error("Expected anonymous state for malformed token")
	}
	if slot.clears != 1 {
		t.Errorf("Expected slot cleared once, got %d", slot.clears)
	}
}

func TestLoginPersistsAndPopulatesIdentity(t *testing.T) {
	slot := &memorySlot{}
	store := NewStore(slot)
	token := mintToken(t, "sam@example.com", time.Now().Add(time.Hour).Unix())

	if err := store.Login(token); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if slot.token != token {
		t.Error("Expected token persisted to slot")
	}
	state := store.State()
	if !state.Authenticated || state.User == nil {
		t.Fatal("Expected authenticated state with user")
	}
	if state.User.ID != "user-1" || state.User.Email != "sam@example.com" || state.User.DisplayName != "Test" {
		t.Errorf("Identity mismatch: %+v", state.User)
	}
}

func TestLoginMalformedTokenStaysAnonymous(t *testing.T) {
	slot := &memorySlot{token: "previous"}
	store := NewStore(slot)

	err := store.Login("not-a-token")
	if !errors.Is(err, authtoken.ErrMalformedToken) {
		t.Fatalf("Expected ErrMalformedToken, got %v", err)
	}
	if store.State().Authenticated {
		t.Error("Expected anonymous state")
	}
	if slot.Present() {
		t.Error("Expected slot cleared on failed login")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	slot := &memorySlot{}
	store := NewStore(slot)
	if err := store.Login(mintToken(t, "jo@example.com", time.Now().Add(time.Hour).Unix())); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	store.Logout()
	first := store.State()
	store.Logout()
	second := store.State()

	if first.Authenticated || second.Authenticated {
		t.Error("Expected anonymous state after logout")
	}
	if first != second {
		t.Errorf("Expected identical state after repeated logout: %+v vs %+v", first, second)
	}
	if slot.Present() {
		t.Error("Expected slot cleared")
	}
}

func TestTokenLazyExpiry(t *testing.T) {
	slot := &memorySlot{}
	store := NewStore(slot)
	token := mintToken(t, "jo@example.com", time.Now().Add(time.Minute).Unix())
	if err := store.Login(token); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if got := store.Token(); got != token {
		t.Errorf("Expected live token, got %q", got)
	}

	// Advance the clock past expiry; the token must read as absent.
	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if got := store.Token(); got != "" {
		t.Errorf("Expected empty token after expiry, got %q", got)
	}
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	store := NewStore(&memorySlot{})
	ch, cancel := store.Subscribe()
	defer cancel()

	token := mintToken(t, "jo@example.com", time.Now().Add(time.Hour).Unix())
	if err := store.Login(token); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	select {
	case state := <-ch:
		if !state.Authenticated {
			t.Error("Expected authenticated notification")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for notification")
	}

	store.Logout()
	select {
	case state := <-ch:
		if state.Authenticated {
			t.Error("Expected anonymous notification")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for notification")
	}
}
