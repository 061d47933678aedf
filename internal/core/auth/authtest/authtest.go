// Package authtest provides a throwaway account store for tests.
package authtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
)

// NewStore returns a connected Store backed by a new SQLite database.
func NewStore(t *testing.T) *auth.Store {
	t.Helper()
	store := auth.NewStore(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), false)
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("error connecting test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// CreateAccount creates an account whose mail is derived from its login.
func CreateAccount(t *testing.T, store auth.AccountStore, login, password string) *data.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), login, password, login+"@example.com")
	if err != nil {
		t.Fatalf("error creating test account %s: %v", login, err)
	}
	return account
}

// CreateAdmin creates an account flagged as administrator.
func CreateAdmin(t *testing.T, store auth.AccountStore, login, password string) *data.Account {
	t.Helper()
	account := CreateAccount(t, store, login, password)
	account.Admin = true
	if err := store.SetAdmin(context.Background(), login, true); err != nil {
		t.Fatalf("error promoting test account %s: %v", login, err)
	}
	return account
}
