package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// transactionTTL is the expiry marker stamped on every transaction row.
// Rows past it are removed by PurgeExpired, never by request handling.
const transactionTTL = 90 * 24 * time.Hour

// BuyStock debits the user's balance, upserts the (user, symbol) position with
// a cost-weighted average price and appends a BUY transaction, all in one
// database transaction. The debit is conditional on the balance covering the
// full amount, so two concurrent buys cannot both pass a stale balance check.
func (r *Repo) BuyStock(ctx context.Context, userID, symbol string, qty, price decimal.Decimal) (*TradeResult, error) {
	total := qty.Mul(price)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var newBalance decimal.Decimal
	debit := `UPDATE users SET virtual_balance = virtual_balance - $1::numeric, updated_at = now()
	          WHERE id = $2 AND virtual_balance >= $1::numeric
	          RETURNING virtual_balance`
	err = tx.QueryRowContext(ctx, debit, total.StringFixed(4), userID).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("buy %s x %s at %s: %w", symbol, qty, price, ErrInsufficientFunds)
	}
	if err != nil {
		return nil, err
	}

	upsert := `INSERT INTO positions (user_id, symbol, quantity, average_price, total_invested, last_updated)
	           VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, now())
	           ON CONFLICT (user_id, symbol) DO UPDATE SET
	               quantity       = positions.quantity + EXCLUDED.quantity,
	               total_invested = positions.total_invested + EXCLUDED.total_invested,
	               average_price  = (positions.total_invested + EXCLUDED.total_invested)
	                                / (positions.quantity + EXCLUDED.quantity),
	               last_updated   = now()`
	if _, err := tx.ExecContext(ctx, upsert, userID, symbol, qty.String(), price.StringFixed(4), total.StringFixed(4)); err != nil {
		return nil, err
	}

	txnID := uuid.NewString()
	if err := r.insertTransaction(ctx, tx, txnID, userID, symbol, "BUY", qty, price, total); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &TradeResult{
		TransactionID: txnID,
		Symbol:        symbol,
		Side:          "BUY",
		Quantity:      qty,
		Price:         price,
		TotalAmount:   total,
		RealizedPnL:   decimal.Zero,
		NewBalance:    newBalance,
	}, nil
}

// SellStock removes qty shares from the position, crediting the proceeds to
// the balance and appending a SELL transaction. The proportional cost basis
// leaves total_invested; average_price is never touched by a sell. Selling
// the full quantity deletes the position row. Realized P&L is proceeds minus
// the removed basis, reported to the caller and not stored.
func (r *Repo) SellStock(ctx context.Context, userID, symbol string, qty, price decimal.Decimal) (*TradeResult, error) {
	proceeds := qty.Mul(price)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var held, invested decimal.Decimal
	lock := `SELECT quantity, total_invested FROM positions WHERE user_id = $1 AND symbol = $2 FOR UPDATE`
	err = tx.QueryRowContext(ctx, lock, userID, symbol).Scan(&held, &invested)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s/%s: %w", userID, symbol, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if qty.GreaterThan(held) {
		return nil, fmt.Errorf("sell %s of %s held: %w", qty, held, ErrInsufficientShares)
	}

	basisRemoved := invested.Mul(qty).Div(held)
	if qty.Equal(held) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = $1 AND symbol = $2`, userID, symbol); err != nil {
			return nil, err
		}
	} else {
		dec := `UPDATE positions SET quantity = quantity - $3::numeric,
		            total_invested = total_invested - $4::numeric, last_updated = now()
		        WHERE user_id = $1 AND symbol = $2`
		if _, err := tx.ExecContext(ctx, dec, userID, symbol, qty.String(), basisRemoved.StringFixed(4)); err != nil {
			return nil, err
		}
	}

	var newBalance decimal.Decimal
	credit := `UPDATE users SET virtual_balance = virtual_balance + $1::numeric, updated_at = now()
	           WHERE id = $2 RETURNING virtual_balance`
	if err := tx.QueryRowContext(ctx, credit, proceeds.StringFixed(4), userID).Scan(&newBalance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	txnID := uuid.NewString()
	if err := r.insertTransaction(ctx, tx, txnID, userID, symbol, "SELL", qty, price, proceeds); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &TradeResult{
		TransactionID: txnID,
		Symbol:        symbol,
		Side:          "SELL",
		Quantity:      qty,
		Price:         price,
		TotalAmount:   proceeds,
		RealizedPnL:   proceeds.Sub(basisRemoved),
		NewBalance:    newBalance,
	}, nil
}

func (r *Repo) insertTransaction(ctx context.Context, tx *sqlx.Tx, id, userID, symbol, side string, qty, price, total decimal.Decimal) error {
	q := `INSERT INTO transactions (id, user_id, symbol, side, quantity, price, total_amount, created_at, expires_at)
	      VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, now(), now() + $8::interval)`
	_, err := tx.ExecContext(ctx, q, id, userID, symbol, side, qty.String(), price.StringFixed(4), total.StringFixed(4),
		fmt.Sprintf("%d hours", int(transactionTTL.Hours())))
	return err
}

func (r *Repo) GetPositions(ctx context.Context, userID string) ([]Position, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT user_id, symbol, quantity, average_price, total_invested, last_updated
	                                      FROM positions WHERE user_id = $1 ORDER BY symbol ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Position{}
	for rows.Next() {
		var p Position
		if err := rows.StructScan(&p); err != nil {
			r.log.Warnf("scan position failed: %v", err)
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *Repo) GetTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryxContext(ctx, `SELECT id, user_id, symbol, side, quantity, price, total_amount, created_at, expires_at
	                                      FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.StructScan(&t); err != nil {
			r.log.Warnf("scan transaction failed: %v", err)
			continue
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
