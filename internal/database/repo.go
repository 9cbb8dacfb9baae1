package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func (r *Repo) CreateUser(ctx context.Context, id, email, displayName string, startingBalance decimal.Decimal) (*User, error) {
	q := `INSERT INTO users (id, email, display_name, virtual_balance, created_at, updated_at)
	      VALUES ($1, NULLIF($2, ''), $3, $4::numeric, now(), now())
	      RETURNING id, COALESCE(email, '') AS email, display_name, virtual_balance, created_at, updated_at`
	var u User
	if err := r.db.GetContext(ctx, &u, q, id, email, displayName, startingBalance.StringFixed(4)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("user %s: %w", id, ErrDuplicate)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	q := `SELECT id, COALESCE(email, '') AS email, display_name, virtual_balance, created_at, updated_at FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// ActiveSymbols returns every symbol currently held or watched by any user.
// The price refresher uses this to bound its upstream fetches.
func (r *Repo) ActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT symbol FROM positions UNION SELECT symbol FROM watchlist_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			r.log.Warnf("scan symbol failed: %v", err)
			continue
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// PurgeExpired removes transaction and mover rows past their expiry marker.
// Run from the movers batch job; application code never deletes these rows.
func (r *Repo) PurgeExpired(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE expires_at IS NOT NULL AND expires_at < $1`, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM movers WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	return err
}
