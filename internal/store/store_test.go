package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := New(":memory:", ttl)
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock makes s report now as the current time.
func fixedClock(s *Store, now *time.Time) {
	s.now = func() time.Time { return *now }
}

func TestTranscriptCRUD(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	// Empty cache.
	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 transcripts, got %d", count)
	}
	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "dQw4w9WgXcQ", "first text", "captions"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	text, ok, err := s.Get(ctx, "dQw4w9WgXcQ")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if text != "first text" {
		t.Errorf("expected 'first text', got %q", text)
	}

	// Put replaces.
	if err := s.Put(ctx, "dQw4w9WgXcQ", "second text", "audio"); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	e, err := s.Entry(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.Text != "second text" || e.Source != "audio" {
		t.Errorf("unexpected entry %+v", e)
	}
	count, _ = s.Count(ctx)
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	if err := s.Delete(ctx, "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Entry(ctx, "dQw4w9WgXcQ"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows after delete, got %v", err)
	}
}

func TestTranscriptExpiry(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(s, &now)

	if err := s.Put(ctx, "old", "old text", "captions"); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	now = now.Add(50 * time.Minute)
	if err := s.Put(ctx, "fresh", "fresh text", "captions"); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	now = now.Add(20 * time.Minute)

	tests := []struct {
		id     string
		wantOK bool
	}{
		{"old", false},
		{"fresh", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, ok, err := s.Get(ctx, tt.id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("expected ok=%v, got %v", tt.wantOK, ok)
			}
		})
	}

	n, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	count, _ := s.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 remaining, got %d", count)
	}
}

func TestPruneWithoutTTL(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	if err := s.Put(ctx, "a", "text", "captions"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, err := s.Prune(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Prune: n=%d err=%v", n, err)
	}
}
