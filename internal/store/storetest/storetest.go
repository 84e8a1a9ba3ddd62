// Package storetest opens migrated in-memory stores for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"invoiceai/internal/store"
)

// Clock is a deterministic time source that advances one second per call, so
// "most recently updated" ordering is stable in tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// New returns a store over a private in-memory sqlite database.
func New(t *testing.T) *store.Store {
	t.Helper()

	clock := NewClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	return NewWithClock(t, clock.Now)
}

// NewWithClock is New with an explicit time source.
func NewWithClock(t *testing.T, now func() time.Time) *store.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := store.Open(store.DriverSQLite, dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := store.New(db, store.WithClock(now))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
