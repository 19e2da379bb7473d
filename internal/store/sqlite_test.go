package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "guestbook.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return repo
}

func TestGetSessionMissing(t *testing.T) {
	repo := newTestStore(t)

	sess, err := repo.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil for missing session, got %+v", sess)
	}
}

func TestUpsertAndGetSession(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	in := &domain.GuestSession{
		SessionID: "anon_0123",
		Stage:     domain.StageReflect,
		Draft: domain.Draft{
			Name:       "Ren",
			Email:      "ren@example.com",
			SegmentOne: "I see light.",
			SegmentTwo: "I am the light too.",
		},
		LastSendAt:     now,
		SentContentIDs: []string{"id-one", "id-two"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.UpsertSession(ctx, in); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}

	out, err := repo.GetSession(ctx, "anon_0123")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if out == nil {
		t.Fatal("session not found after upsert")
	}
	if out.Stage != domain.StageReflect {
		t.Errorf("stage = %v, want reflect", out.Stage)
	}
	if out.Draft != in.Draft {
		t.Errorf("draft = %+v, want %+v", out.Draft, in.Draft)
	}
	if !out.LastSendAt.Equal(now) {
		t.Errorf("last_send_at = %v, want %v", out.LastSendAt, now)
	}
	if len(out.SentContentIDs) != 2 || out.SentContentIDs[0] != "id-one" {
		t.Errorf("sent ids = %v", out.SentContentIDs)
	}
}

func TestUpsertSessionUpdates(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess := &domain.GuestSession{SessionID: "anon_0123", CreatedAt: now, UpdatedAt: now}
	if err := repo.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	sess.Stage = domain.StageExchange
	sess.Draft.SegmentOne = "updated"
	if err := repo.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	out, err := repo.GetSession(ctx, "anon_0123")
	if err != nil || out == nil {
		t.Fatalf("GetSession: %v", err)
	}
	if out.Stage != domain.StageExchange || out.Draft.SegmentOne != "updated" {
		t.Errorf("update not applied: %+v", out)
	}
}

func TestZeroLastSendAtRoundTrips(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess := &domain.GuestSession{SessionID: "anon_0123", CreatedAt: now, UpdatedAt: now}
	if err := repo.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := repo.GetSession(ctx, "anon_0123")
	if err != nil || out == nil {
		t.Fatalf("GetSession: %v", err)
	}
	// The cooldown guard relies on a zero time meaning "never sent".
	if !out.LastSendAt.IsZero() {
		t.Errorf("last_send_at = %v, want zero", out.LastSendAt)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	stale := &domain.GuestSession{SessionID: "anon_old", CreatedAt: now.Add(-48 * time.Hour)}
	if err := repo.UpsertSession(ctx, stale); err != nil {
		t.Fatalf("upsert stale: %v", err)
	}

	// Upsert stamps updated_at with the current time, so nothing should be
	// old enough to delete with a generous TTL.
	deleted, err := repo.DeleteExpired(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d fresh sessions, want 0", deleted)
	}

	// With a zero TTL everything written before "now" is expired.
	time.Sleep(1100 * time.Millisecond)
	deleted, err = repo.DeleteExpired(ctx, 0)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d sessions, want 1", deleted)
	}

	out, err := repo.GetSession(ctx, "anon_old")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if out != nil {
		t.Error("expired session still present")
	}
}
