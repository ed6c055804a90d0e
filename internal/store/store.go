// Package store caches resolved transcripts so a video is only fetched or
// transcribed once.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is a cached transcript.
type Entry struct {
	VideoID   string
	Text      string
	Source    string
	FetchedAt time.Time
}

// Store is a sqlite-backed transcript cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New opens (or creates) the cache database at dbPath. Entries older than ttl
// are treated as missing; ttl <= 0 keeps entries forever.
func New(dbPath string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		video_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached transcript for videoID. Expired entries report
// ok=false.
func (s *Store) Get(ctx context.Context, videoID string) (string, bool, error) {
	e, err := s.Entry(ctx, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.expired(e.FetchedAt) {
		return "", false, nil
	}
	return e.Text, true, nil
}

// Entry returns the full cache row for videoID, expired or not.
func (s *Store) Entry(ctx context.Context, videoID string) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT video_id, text, source, fetched_at FROM transcripts WHERE video_id = ?`, videoID,
	).Scan(&e.VideoID, &e.Text, &e.Source, &e.FetchedAt)
	return e, err
}

// Put inserts or replaces the transcript for videoID.
func (s *Store) Put(ctx context.Context, videoID, text, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, text, source, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET text = excluded.text, source = excluded.source, fetched_at = excluded.fetched_at`,
		videoID, text, source, s.now().UTC(),
	)
	return err
}

// Delete removes videoID from the cache.
func (s *Store) Delete(ctx context.Context, videoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID)
	return err
}

// Prune deletes expired entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE fetched_at < ?`, s.now().UTC().Add(-s.ttl),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of cached transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&count)
	return count, err
}

func (s *Store) expired(fetchedAt time.Time) bool {
	return s.ttl > 0 && s.now().Sub(fetchedAt) > s.ttl
}
