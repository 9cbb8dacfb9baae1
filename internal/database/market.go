package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockboard/internal/models"
)

const maxBarRows = 1000

// InsertDailyBars upserts a batch of daily bars. Exchange and sector are
// tagged on the row at write time so the movers job never needs a join.
func (r *Repo) InsertDailyBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := `INSERT INTO daily_bars (symbol, bar_date, open, high, low, close, volume, exchange, sector)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	      ON CONFLICT (symbol, bar_date) DO UPDATE SET
	          open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
	          close = EXCLUDED.close, volume = EXCLUDED.volume,
	          exchange = EXCLUDED.exchange, sector = EXCLUDED.sector`
	for _, b := range bars {
		if _, err := tx.ExecContext(ctx, q, b.Symbol, b.Timestamp.UTC().Format("2006-01-02"),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Exchange, b.Sector); err != nil {
			return fmt.Errorf("insert daily bar %s %s: %w", b.Symbol, b.Timestamp.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (r *Repo) InsertIntradayBar(ctx context.Context, b models.Bar) error {
	q := `INSERT INTO intraday_bars (symbol, bar_time, open, high, low, close, volume)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)
	      ON CONFLICT (symbol, bar_time) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, b.Symbol, b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
	return err
}

// GetDailyBars returns bars most recent first, optionally bounded by date.
func (r *Repo) GetDailyBars(ctx context.Context, symbol string, limit int, start, end *time.Time) ([]models.Bar, error) {
	if limit <= 0 || limit > maxBarRows {
		limit = 100
	}
	q := `SELECT symbol, bar_date AS bar_time, open, high, low, close, volume, exchange, sector
	      FROM daily_bars WHERE symbol = $1`
	args := []interface{}{symbol}
	if start != nil {
		args = append(args, start.UTC().Format("2006-01-02"))
		q += fmt.Sprintf(" AND bar_date >= $%d", len(args))
	}
	if end != nil {
		args = append(args, end.UTC().Format("2006-01-02"))
		q += fmt.Sprintf(" AND bar_date <= $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY bar_date DESC LIMIT $%d", len(args))
	return r.scanBars(ctx, q, args...)
}

func (r *Repo) GetIntradayBars(ctx context.Context, symbol string, limit int, start, end *time.Time) ([]models.Bar, error) {
	if limit <= 0 || limit > maxBarRows {
		limit = 100
	}
	q := `SELECT symbol, bar_time, open, high, low, close, volume, '' AS exchange, '' AS sector
	      FROM intraday_bars WHERE symbol = $1`
	args := []interface{}{symbol}
	if start != nil {
		args = append(args, start.UTC())
		q += fmt.Sprintf(" AND bar_time >= $%d", len(args))
	}
	if end != nil {
		args = append(args, end.UTC())
		q += fmt.Sprintf(" AND bar_time <= $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY bar_time DESC LIMIT $%d", len(args))
	return r.scanBars(ctx, q, args...)
}

func (r *Repo) scanBars(ctx context.Context, q string, args ...interface{}) ([]models.Bar, error) {
	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []models.Bar{}
	for rows.Next() {
		var b models.Bar
		if err := rows.StructScan(&b); err != nil {
			r.log.Warnf("scan bar failed: %v", err)
			continue
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// SymbolsWithBarsOn lists every symbol that has a daily bar for the given day.
func (r *Repo) SymbolsWithBarsOn(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT DISTINCT symbol FROM daily_bars WHERE bar_date = $1 ORDER BY symbol`,
		day.UTC().Format("2006-01-02"))
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

// DailyBarOn fetches one symbol's bar for one day. A missing bar is reported
// as ErrNotFound so the movers job can skip the symbol.
func (r *Repo) DailyBarOn(ctx context.Context, symbol string, day time.Time) (*models.Bar, error) {
	bars, err := r.scanBars(ctx, `SELECT symbol, bar_date AS bar_time, open, high, low, close, volume, exchange, sector
	                              FROM daily_bars WHERE symbol = $1 AND bar_date = $2`, symbol, day.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("bar %s on %s: %w", symbol, day.Format("2006-01-02"), ErrNotFound)
	}
	return &bars[0], nil
}

// ReplaceMovers swaps the ranked set for one (period, exchange) key in a
// single transaction so readers never observe an empty exchange mid-replace.
func (r *Repo) ReplaceMovers(ctx context.Context, period, exchange string, rows []models.Mover, expiresAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movers WHERE period = $1 AND exchange = $2`, period, exchange); err != nil {
		return err
	}
	q := `INSERT INTO movers (period, exchange, rank, symbol, close_price, prev_close, change, change_percent, sector, expires_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, m := range rows {
		if _, err := tx.ExecContext(ctx, q, period, exchange, m.Rank, m.Symbol,
			m.ClosePrice, m.PrevClose, m.Change, m.ChangePercent, m.Sector, expiresAt); err != nil {
			return fmt.Errorf("insert mover %s rank %d: %w", m.Symbol, m.Rank, err)
		}
	}
	return tx.Commit()
}

// GetMovers reads the ranked view with optional exchange/sector/direction
// filters, rank order preserved.
func (r *Repo) GetMovers(ctx context.Context, period, exchange, sector string, limit int, gainersOnly, losersOnly bool) ([]models.Mover, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := `SELECT period, exchange, rank, symbol, close_price, prev_close, change, change_percent, sector
	      FROM movers WHERE period = $1`
	args := []interface{}{period}
	if exchange != "" {
		args = append(args, strings.ToUpper(exchange))
		q += fmt.Sprintf(" AND exchange = $%d", len(args))
	}
	if sector != "" {
		args = append(args, sector)
		q += fmt.Sprintf(" AND sector = $%d", len(args))
	}
	if gainersOnly && !losersOnly {
		q += " AND change_percent > 0"
	}
	if losersOnly && !gainersOnly {
		q += " AND change_percent < 0"
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY exchange, rank ASC LIMIT $%d", len(args))

	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []models.Mover{}
	for rows.Next() {
		var m models.Mover
		if err := rows.StructScan(&m); err != nil {
			r.log.Warnf("scan mover failed: %v", err)
			continue
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
