// Package postgres provides PostgreSQL-backed persistence for conversation
// transcripts. Each live conversation is a session; fragments accepted by the
// transcript log are appended as rows and can later be read back
// chronologically or searched with PostgreSQL full-text search.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.WriteEntry(ctx, sessionID, entry)
//	entries, _ := store.Recent(ctx, sessionID, time.Hour)
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thierryishimwe250/quintet/internal/transcript"
	"github.com/thierryishimwe250/quintet/internal/voice"
)

var _ voice.Store = (*Store)(nil)

// Store is a PostgreSQL transcript store backed by a single [pgxpool.Pool].
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// StoredEntry is a transcript entry as read back from the database, with its
// session and timestamp attached.
type StoredEntry struct {
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchOpts narrows a full-text [Store.Search].
type SearchOpts struct {
	SessionID string
	Role      string
	After     time.Time
	Before    time.Time
	Limit     int
}

const ddlTranscriptEntries = `
CREATE TABLE IF NOT EXISTS transcript_entries (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    role        TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    timestamp   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcript_entries_session_timestamp
    ON transcript_entries (session_id, timestamp);

CREATE INDEX IF NOT EXISTS idx_transcript_entries_fts
    ON transcript_entries USING GIN (to_tsvector('english', text));
`

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and ensures the transcript schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlTranscriptEntries); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// WriteEntry implements [voice.Store]. It appends entry under sessionID.
func (s *Store) WriteEntry(ctx context.Context, sessionID string, entry transcript.Entry) error {
	const q = `
		INSERT INTO transcript_entries (session_id, role, text)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, q, sessionID, entry.Role, entry.Text)
	if err != nil {
		return fmt.Errorf("transcript store: write entry: %w", err)
	}
	return nil
}

// Recent returns all entries for sessionID whose timestamp is no earlier than
// now()-within, ordered chronologically (oldest first).
func (s *Store) Recent(ctx context.Context, sessionID string, within time.Duration) ([]StoredEntry, error) {
	const q = `
		SELECT session_id, role, text, timestamp
		FROM   transcript_entries
		WHERE  session_id = $1
		  AND  timestamp  >= now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY timestamp`

	rows, err := s.pool.Query(ctx, q, sessionID, within.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("transcript store: recent: %w", err)
	}
	return collectEntries(rows)
}

// Search performs a PostgreSQL full-text search over the text column and
// applies optional filters from opts.
//
// The query is passed to plainto_tsquery so no operator syntax is required.
func (s *Store) Search(ctx context.Context, query string, opts SearchOpts) ([]StoredEntry, error) {
	args := []any{query} // $1 = FTS query string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', text) @@ plainto_tsquery('english', $1)",
	}
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(opts.SessionID))
	}
	if opts.Role != "" {
		conditions = append(conditions, "role = "+next(opts.Role))
	}
	if !opts.After.IsZero() {
		conditions = append(conditions, "timestamp > "+next(opts.After))
	}
	if !opts.Before.IsZero() {
		conditions = append(conditions, "timestamp < "+next(opts.Before))
	}

	q := "SELECT session_id, role, text, timestamp\n" +
		"FROM   transcript_entries\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY timestamp"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript store: search: %w", err)
	}
	return collectEntries(rows)
}

// collectEntries scans pgx rows into a slice of StoredEntry values.
func collectEntries(rows pgx.Rows) ([]StoredEntry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredEntry, error) {
		var e StoredEntry
		if err := row.Scan(&e.SessionID, &e.Role, &e.Text, &e.Timestamp); err != nil {
			return StoredEntry{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("transcript store: scan rows: %w", err)
	}
	if entries == nil {
		entries = []StoredEntry{}
	}
	return entries, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
