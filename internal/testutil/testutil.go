// Package testutil provides a migrated scratch database and an event recorder
// for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"medledger/m/internal/database"
	"medledger/m/internal/migrations"
	"medledger/m/internal/notify"
)

// NewDB opens a file-backed SQLite database in a temp dir with the schema applied.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Connect("file:" + filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db))
	return db
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []notify.Event
}

func (e *Events) Publish(ev notify.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

// Kinds returns the kinds published so far, in order.
func (e *Events) Kinds() []notify.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	kinds := make([]notify.Kind, len(e.events))
	for i, ev := range e.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (e *Events) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

// All returns a copy of the events published so far, in order.
func (e *Events) All() []notify.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Event(nil), e.events...)
}
