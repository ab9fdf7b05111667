// Package routegate decides whether an authenticated surface may be
// entered. It derives everything from session state plus the durable
// slot; it keeps no state of its own.
package routegate

import "github.com/nimbus-ai/nimbus-cli/internal/session"

type Decision int

const (
	Allow Decision = iota
	Redirect
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect"
}

// Decide gates entry to a surface that requires authentication.
// Redirect only when in-memory state is anonymous AND the durable slot
// is empty: a token still sitting in storage means state may simply not
// have been initialized yet, and bouncing the user then would log them
// out for no reason.
func Decide(state session.State, storedTokenPresent bool) Decision {
	if state.Authenticated || storedTokenPresent {
		return Allow
	}
	return Redirect
}
