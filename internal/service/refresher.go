package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stockboard/internal/database"
	"stockboard/internal/models"
	"stockboard/internal/quotes"
	"stockboard/internal/ws"
)

// Refresher periodically re-quotes every held or watched symbol, appends an
// intraday bar and pushes the tick to websocket subscribers. Failures are
// logged and skipped; the next tick retries from scratch.
type Refresher struct {
	repo   *database.Repo
	quotes *quotes.Client
	hub    *ws.Hub
	log    *logrus.Logger
}

func NewRefresher(repo *database.Repo, q *quotes.Client, hub *ws.Hub, log *logrus.Logger) *Refresher {
	return &Refresher{repo: repo, quotes: q, hub: hub, log: log}
}

func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("price refresher stopping")
				return
			case <-ticker.C:
				r.refresh(ctx)
			}
		}
	}()
}

func (r *Refresher) refresh(ctx context.Context) {
	symbols, err := r.repo.ActiveSymbols(ctx)
	if err != nil {
		r.log.Warnf("refresher: list symbols failed: %v", err)
		return
	}
	if len(symbols) == 0 {
		return
	}

	for _, q := range r.quotes.GetMultipleQuotes(ctx, symbols) {
		bar := models.Bar{
			Symbol:    q.Symbol,
			Timestamp: q.Timestamp.Truncate(time.Minute),
			Open:      q.Price,
			High:      q.Price,
			Low:       q.Price,
			Close:     q.Price,
			Volume:    q.Volume,
		}
		if err := r.repo.InsertIntradayBar(ctx, bar); err != nil {
			r.log.Warnf("refresher: intraday bar %s failed: %v", q.Symbol, err)
		}
		r.hub.Publish(ws.TickerTopic(q.Symbol), map[string]interface{}{
			"type": "ticker",
			"data": models.TickerUpdate{
				Symbol:        q.Symbol,
				Price:         q.Price,
				Change:        q.Change,
				ChangePercent: q.ChangePercent,
				Volume:        q.Volume,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
