package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thierryishimwe250/quintet/internal/store/postgres"
	"github.com/thierryishimwe250/quintet/internal/transcript"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if QUINTET_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("QUINTET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUINTET_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema and
// closes it when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS transcript_entries"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStore_WriteAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []transcript.Entry{
		{Role: "user", Text: "what time is it"},
		{Role: "model", Text: "It is noon."},
	}
	for _, e := range entries {
		if err := store.WriteEntry(ctx, "s1", e); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}
	if err := store.WriteEntry(ctx, "s2", transcript.Entry{Role: "user", Text: "other session"}); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	got, err := store.Recent(ctx, "s1", time.Hour)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	for i, e := range entries {
		if got[i].Role != e.Role || got[i].Text != e.Text {
			t.Errorf("entry %d = %s/%q, want %s/%q", i, got[i].Role, got[i].Text, e.Role, e.Text)
		}
		if got[i].SessionID != "s1" {
			t.Errorf("entry %d session = %q, want s1", i, got[i].SessionID)
		}
	}
}

func TestStore_RecentWindowExcludesOldEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.WriteEntry(ctx, "s1", transcript.Entry{Role: "user", Text: "hello"}); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	got, err := store.Recent(ctx, "s1", time.Nanosecond)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent with tiny window returned %d entries, want 0", len(got))
	}
}

func TestStore_SearchFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []struct {
		session string
		role    string
		text    string
	}{
		{"s1", "user", "tell me about volcanoes"},
		{"s1", "model", "Volcanoes form at tectonic boundaries."},
		{"s2", "user", "volcanoes again"},
		{"s1", "user", "unrelated question about tea"},
	}
	for _, s := range seed {
		if err := store.WriteEntry(ctx, s.session, transcript.Entry{Role: s.role, Text: s.text}); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}

	got, err := store.Search(ctx, "volcanoes", postgres.SearchOpts{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d entries, want 2", len(got))
	}

	got, err = store.Search(ctx, "volcanoes", postgres.SearchOpts{SessionID: "s1", Role: "model", Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Role != "model" {
		t.Fatalf("filtered search = %+v, want one model entry", got)
	}

	got, err = store.Search(ctx, "nonexistentword", postgres.SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Search for absent term returned %d entries, want 0", len(got))
	}
}
