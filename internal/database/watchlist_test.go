package database

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWatchlistLifecycle(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()
	u := newTestUser(t, r, "0")

	item, err := r.AddWatchlistItem(ctx, u.ID, "AAPL", "earnings soon")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if item.Symbol != "AAPL" || item.Note != "earnings soon" {
		t.Fatalf("unexpected item: %+v", item)
	}

	_, err = r.AddWatchlistItem(ctx, u.ID, "AAPL", "")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on repeat add, got %v", err)
	}

	if err := r.UpdateWatchlistNote(ctx, u.ID, "AAPL", "updated"); err != nil {
		t.Fatalf("note update failed: %v", err)
	}
	items, err := r.GetWatchlist(ctx, u.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(items) != 1 || items[0].Note != "updated" {
		t.Fatalf("unexpected list: %+v", items)
	}

	if err := r.RemoveWatchlistItem(ctx, u.ID, "AAPL"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := r.RemoveWatchlistItem(ctx, u.ID, "AAPL"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestAddWatchlistUnknownUser(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())

	_, err := r.AddWatchlistItem(context.Background(), "no-such-user-watchlist", "AAPL", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
