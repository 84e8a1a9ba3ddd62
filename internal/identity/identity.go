// Package identity resolves who is calling. Authentication itself happens
// upstream; this package only reads the asserted user id.
package identity

import "strings"

// Header carries the authenticated user id set by the fronting proxy.
const Header = "X-User-ID"

// Identity is the resolved caller. A nil ID is a guest.
type Identity struct {
	ID *string
}

// IsGuest reports whether no user could be resolved.
func (i Identity) IsGuest() bool {
	return i.ID == nil
}

// String returns the user id, or "guest".
func (i Identity) String() string {
	if i.ID == nil {
		return "guest"
	}
	return *i.ID
}

// Resolve prefers the asserted header value and falls back to the testing
// identity. Both empty yields a guest.
func Resolve(headerValue, testUserID string) Identity {
	for _, candidate := range []string{headerValue, testUserID} {
		if id := strings.TrimSpace(candidate); id != "" {
			return Identity{ID: &id}
		}
	}
	return Identity{}
}
