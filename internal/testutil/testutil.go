package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/quotefunnel/quotefunnel/internal/store"
)

// SetupTestStore creates a test database and returns the open store.
// Uses t.TempDir() for automatic cleanup on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// SeedVariant inserts an active variant and returns it.
func SeedVariant(t *testing.T, s *store.SQLiteStore, name, headline string) *store.Variant {
	t.Helper()

	v, err := s.CreateVariant(context.Background(), &store.Variant{
		Name:     name,
		Headline: headline,
		CTAText:  "Get My Quote",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}
	return v
}
