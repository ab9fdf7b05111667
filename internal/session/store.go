// Package session owns the client's authentication state. Store is the
// single authority: every other component either reads its snapshot or
// subscribes to change notifications. The token's durable slot is only
// ever written through here.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nimbus-ai/nimbus-cli/internal/authtoken"
	"github.com/nimbus-ai/nimbus-cli/internal/credstore"
	"github.com/nimbus-ai/nimbus-cli/internal/models"
)

// State is an immutable snapshot of the session.
type State struct {
	Authenticated bool
	Token         string
	User          *models.User
}

// Store holds session state and persists the token through a Slot.
type Store struct {
	mu    sync.RWMutex
	state State
	slot  credstore.Slot
	now   func() time.Time

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

func NewStore(slot credstore.Slot) *Store {
	return &Store{
		slot: slot,
		now:  time.Now,
		subs: make(map[chan State]struct{}),
	}
}

// Initialize restores the session from the durable slot. A token that
// fails to decode or is already expired clears the slot and leaves the
// state anonymous. Must run before any gating decision.
func (s *Store) Initialize() {
	token, err := s.slot.Read()
	if err != nil {
		return
	}

	claims, err := authtoken.Decode(token)
	if err != nil {
		slog.Warn("Stored token is malformed, clearing", "err", err)
		if err := s.slot.Clear(); err != nil {
			slog.Error("Unable to clear token slot", "err", err)
		}
		return
	}
	if claims.Expired(s.now()) {
		slog.Debug("Stored token expired, clearing")
		if err := s.slot.Clear(); err != nil {
			slog.Error("Unable to clear token slot", "err", err)
		}
		return
	}

	s.setState(authenticatedState(token, claims))
	slog.Debug("Session restored", "user", claims.Email)
}

// Login decodes and persists the token, transitioning to authenticated.
// On decode failure the slot is cleared, the state stays anonymous and
// the error is returned for the caller to surface.
func (s *Store) Login(token string) error {
	claims, err := authtoken.Decode(token)
	if err != nil {
		if clearErr := s.slot.Clear(); clearErr != nil {
			slog.Error("Unable to clear token slot", "err", clearErr)
		}
		s.setState(State{})
		return err
	}

	if err := s.slot.Write(token); err != nil {
		return err
	}
	s.setState(authenticatedState(token, claims))
	slog.Info("Logged in", "user", claims.Email)
	return nil
}

// Logout clears the slot and resets to anonymous. Idempotent.
func (s *Store) Logout() {
	if err := s.slot.Clear(); err != nil {
		slog.Error("Unable to clear token slot", "err", err)
	}
	s.setState(State{})
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer token for an outbound request, or "" when
// anonymous. Expiry is checked lazily here: an expired token reads as
// absent, it is never handed to a request.
func (s *Store) Token() string {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	if !state.Authenticated {
		return ""
	}
	claims, err := authtoken.Decode(state.Token)
	if err != nil || claims.Expired(s.now()) {
		return ""
	}
	return state.Token
}

// StoredTokenPresent reports whether the durable slot holds a token,
// independent of in-memory state. Route gating consumes this.
func (s *Store) StoredTokenPresent() bool {
	return s.slot.Present()
}

// Subscribe registers for state-change notifications. The returned
// cancel must be called to release the subscription. Slow subscribers
// miss intermediate states rather than blocking mutations.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- state:
		default:
		}
	}
	s.subMu.Unlock()
}

func authenticatedState(token string, claims authtoken.Claims) State {
	return State{
		Authenticated: true,
		Token:         token,
		User: &models.User{
			ID:          claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
		},
	}
}
