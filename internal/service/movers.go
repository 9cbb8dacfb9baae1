package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"stockboard/internal/database"
	"stockboard/internal/models"
)

const (
	// minMovePercent is the floor below which a day-over-day change is not a
	// mover at all.
	minMovePercent       = 1.0
	topMoversPerExchange = 100
	moversTTL            = 7 * 24 * time.Hour
	moversBatchSize      = 25
)

// MoversCalculator is the scheduled batch job behind GET /movers. It diffs
// today's close against yesterday's for every symbol with data, keeps changes
// of at least minMovePercent, ranks them per exchange and replaces the stored
// ranked set.
type MoversCalculator struct {
	repo    *database.Repo
	log     *logrus.Logger
	limiter *rate.Limiter
}

func NewMoversCalculator(repo *database.Repo, log *logrus.Logger) *MoversCalculator {
	// One batch per 200ms keeps the job polite toward the shared database.
	return &MoversCalculator{
		repo:    repo,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// Run recomputes movers for the given day under one period label.
func (m *MoversCalculator) Run(ctx context.Context, day time.Time, period string) error {
	day = day.UTC().Truncate(24 * time.Hour)
	prevDay := day.AddDate(0, 0, -1)

	symbols, err := m.repo.SymbolsWithBarsOn(ctx, day)
	if err != nil {
		return fmt.Errorf("list symbols for %s: %w", day.Format("2006-01-02"), err)
	}
	if len(symbols) == 0 {
		m.log.Infof("movers: no bars for %s, nothing to do", day.Format("2006-01-02"))
		return nil
	}

	candidates := []models.Mover{}
	for i := 0; i < len(symbols); i += moversBatchSize {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		end := i + moversBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		for _, sym := range symbols[i:end] {
			today, err := m.repo.DailyBarOn(ctx, sym, day)
			if err != nil {
				if !errors.Is(err, database.ErrNotFound) {
					m.log.Warnf("movers: today bar %s: %v", sym, err)
				}
				continue
			}
			prev, err := m.repo.DailyBarOn(ctx, sym, prevDay)
			if err != nil {
				continue
			}
			if mover, ok := MoverCandidate(period, sym, *today, *prev); ok {
				candidates = append(candidates, mover)
			}
		}
	}

	expires := time.Now().UTC().Add(moversTTL)
	for exchange, rows := range RankByExchange(candidates, topMoversPerExchange) {
		if err := m.repo.ReplaceMovers(ctx, period, exchange, rows, expires); err != nil {
			return fmt.Errorf("replace movers %s/%s: %w", period, exchange, err)
		}
		m.log.Infof("movers: %s/%s replaced with %d rows", period, exchange, len(rows))
	}

	if err := m.repo.PurgeExpired(ctx, time.Now().UTC()); err != nil {
		m.log.Warnf("movers: purge expired failed: %v", err)
	}
	return nil
}

// MoverCandidate diffs one symbol's closes and reports whether the move
// clears the minMovePercent floor. A symbol with no usable previous close
// never qualifies.
func MoverCandidate(period, symbol string, today, prev models.Bar) (models.Mover, bool) {
	if prev.Close == 0 {
		return models.Mover{}, false
	}
	pct := ChangePercent(today.Close, prev.Close)
	if math.Abs(pct) < minMovePercent {
		return models.Mover{}, false
	}
	return models.Mover{
		Period:        period,
		Exchange:      today.Exchange,
		Symbol:        symbol,
		ClosePrice:    today.Close,
		PrevClose:     prev.Close,
		Change:        round2(today.Close - prev.Close),
		ChangePercent: round2(pct),
		Sector:        today.Sector,
	}, true
}

// ChangePercent is the day-over-day move relative to the previous close.
func ChangePercent(today, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (today - prev) / prev * 100
}

// RankByExchange groups candidates by exchange, orders each group by absolute
// percent change descending, truncates to topN and assigns dense ranks 1..N.
func RankByExchange(candidates []models.Mover, topN int) map[string][]models.Mover {
	grouped := map[string][]models.Mover{}
	for _, c := range candidates {
		grouped[c.Exchange] = append(grouped[c.Exchange], c)
	}
	for exchange, rows := range grouped {
		sort.SliceStable(rows, func(i, j int) bool {
			return math.Abs(rows[i].ChangePercent) > math.Abs(rows[j].ChangePercent)
		})
		if len(rows) > topN {
			rows = rows[:topN]
		}
		for i := range rows {
			rows[i].Rank = i + 1
		}
		grouped[exchange] = rows
	}
	return grouped
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
