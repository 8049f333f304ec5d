package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/state"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := state.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db, func() {
		_ = db.Close()
	}
}

func OpenTestStore(t *testing.T) *state.Store {
	t.Helper()
	db, cleanup := OpenTestDB(t)
	t.Cleanup(cleanup)
	return state.NewStore(db)
}

// NewTestHistory builds a history manager backed by temp files.
func NewTestHistory(t *testing.T) *history.Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := history.NewManager(
		filepath.Join(dir, "chat_history.json"),
		filepath.Join(dir, "generated_images.json"))
	if err != nil {
		t.Fatalf("new history manager: %v", err)
	}
	return m
}
