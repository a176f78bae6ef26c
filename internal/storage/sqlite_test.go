package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/ruiji/internal/models"
)

func newTestEventStore(t *testing.T) *SQLiteEventStore {
	t.Helper()
	store, err := NewSQLiteEventStore(filepath.Join(t.TempDir(), "nested", "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteEventStore_RecordAndList(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []*models.EmbeddingEvent{
		{Key: "/img/a.png", Status: models.StatusEmbedded, Dimensions: 512, CreatedAt: base},
		{Key: "/img/x.png", Status: models.StatusFailed, Reason: "resolve: not found", Dimensions: 512, CreatedAt: base.Add(time.Second)},
		{Key: "/img/b.png", Status: models.StatusEmbedded, Dimensions: 512, CreatedAt: base.Add(2 * time.Second)},
	}
	if err := store.RecordEvents(ctx, events); err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if ev.ID == "" {
			t.Error("ID should be assigned")
		}
	}

	all, err := store.ListEvents(ctx, "", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Key != "/img/b.png" {
		t.Errorf("expected newest first, got %s", all[0].Key)
	}

	failures, err := store.ListFailures(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Key != "/img/x.png" || failures[0].Reason != "resolve: not found" {
		t.Errorf("failures = %+v", failures)
	}

	page, err := store.ListEvents(ctx, models.StatusEmbedded, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Key != "/img/a.png" {
		t.Errorf("page = %+v", page)
	}
}

func TestSQLiteEventStore_LatestEvent(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	if _, err := store.LatestEvent(ctx, "/none.png"); !errors.Is(err, ErrNoEvents) {
		t.Errorf("err = %v, want ErrNoEvents", err)
	}

	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_ = store.RecordEvents(ctx, []*models.EmbeddingEvent{
		{Key: "/a.png", Status: models.StatusFailed, Reason: "timeout", CreatedAt: t0},
	})
	_ = store.RecordEvents(ctx, []*models.EmbeddingEvent{
		{Key: "/a.png", Status: models.StatusEmbedded, CreatedAt: t0.Add(time.Minute)},
	})
	ev, err := store.LatestEvent(ctx, "/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Status != models.StatusEmbedded {
		t.Errorf("latest status = %s", ev.Status)
	}
}

func TestSQLiteEventStore_CountByStatus(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	counts, err := store.CountByStatus(ctx)
	if err != nil || len(counts) != 0 {
		t.Errorf("CountByStatus on empty: %v, %v", counts, err)
	}
	_ = store.RecordEvents(ctx, []*models.EmbeddingEvent{
		{Key: "/a", Status: models.StatusEmbedded},
		{Key: "/b", Status: models.StatusEmbedded},
		{Key: "/c", Status: models.StatusFailed},
	})
	counts, err = store.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[models.StatusEmbedded] != 2 || counts[models.StatusFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSQLiteEventStore_RecordEmpty(t *testing.T) {
	store := newTestEventStore(t)
	if err := store.RecordEvents(context.Background(), nil); err != nil {
		t.Errorf("RecordEvents(nil): %v", err)
	}
}
