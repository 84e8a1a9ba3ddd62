package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoiceai/internal/session"
)

func TestSelector_LastWriteWins(t *testing.T) {
	s := session.NewSelector()

	_, ok := s.Selected("owner:alice")
	assert.False(t, ok)

	s.Select("owner:alice", "d1")
	s.Select("owner:alice", "d2")
	s.Select("owner:bob", "d3")

	id, ok := s.Selected("owner:alice")
	assert.True(t, ok)
	assert.Equal(t, "d2", id)

	id, _ = s.Selected("owner:bob")
	assert.Equal(t, "d3", id)

	s.Clear("owner:alice")
	_, ok = s.Selected("owner:alice")
	assert.False(t, ok)
}

func TestSelector_ConcurrentOwners(t *testing.T) {
	s := session.NewSelector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("owner:%d", i)
			s.Select(key, fmt.Sprintf("draft-%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		id, ok := s.Selected(fmt.Sprintf("owner:%d", i))
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("draft-%d", i), id)
	}
}

func TestKey(t *testing.T) {
	alice := "alice"

	assert.Equal(t, "conversation:c1", session.Key("c1", &alice))
	assert.Equal(t, "owner:alice", session.Key("", &alice))
	assert.Equal(t, session.GuestKey, session.Key("", nil))
}
