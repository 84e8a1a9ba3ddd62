// Package session remembers which draft each conversation is working on.
package session

import "sync"

// GuestKey is the selection key for an anonymous caller without a
// conversation id.
const GuestKey = ""

// Selector maps a session key to the active draft id. Selections live only in
// memory; the record store stays the source of truth. Last write wins.
type Selector struct {
	mu     sync.RWMutex
	active map[string]string
}

// NewSelector returns an empty selector.
func NewSelector() *Selector {
	return &Selector{active: make(map[string]string)}
}

// Select makes draftID the active draft for key.
func (s *Selector) Select(key, draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[key] = draftID
}

// Selected returns the active draft for key.
func (s *Selector) Selected(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[key]
	return id, ok
}

// Clear forgets the selection for key.
func (s *Selector) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}

// Key picks the selection key for a caller: the conversation when there is
// one, else the owner, else the shared guest key.
func Key(conversationID string, ownerID *string) string {
	if conversationID != "" {
		return "conversation:" + conversationID
	}
	if ownerID != nil {
		return "owner:" + *ownerID
	}
	return GuestKey
}
