package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

func (r *Repo) AddWatchlistItem(ctx context.Context, userID, symbol, note string) (*WatchlistItem, error) {
	q := `INSERT INTO watchlist_items (user_id, symbol, note, added_at) VALUES ($1, $2, $3, now())
	      RETURNING user_id, symbol, note, added_at`
	var item WatchlistItem
	if err := r.db.GetContext(ctx, &item, q, userID, symbol, note); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return nil, fmt.Errorf("watchlist %s/%s: %w", userID, symbol, ErrDuplicate)
			case "23503":
				return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
			}
		}
		return nil, err
	}
	return &item, nil
}

func (r *Repo) UpdateWatchlistNote(ctx context.Context, userID, symbol, note string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE watchlist_items SET note = $3 WHERE user_id = $1 AND symbol = $2`,
		userID, symbol, note)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("watchlist %s/%s: %w", userID, symbol, ErrNotFound)
	}
	return nil
}

func (r *Repo) RemoveWatchlistItem(ctx context.Context, userID, symbol string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("watchlist %s/%s: %w", userID, symbol, ErrNotFound)
	}
	return nil
}

func (r *Repo) GetWatchlist(ctx context.Context, userID string) ([]WatchlistItem, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT user_id, symbol, note, added_at FROM watchlist_items
	                                      WHERE user_id = $1 ORDER BY added_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []WatchlistItem{}
	for rows.Next() {
		var item WatchlistItem
		if err := rows.StructScan(&item); err != nil {
			r.log.Warnf("scan watchlist item failed: %v", err)
			continue
		}
		res = append(res, item)
	}
	return res, rows.Err()
}
