package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type watchlistAddRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Note   string `json:"note"`
}

type watchlistNoteRequest struct {
	Note string `json:"note"`
}

// POST /users/:id/watchlist
//
// The symbol must resolve to a live quote before a row is written; unknown
// symbols are a validation error, not a 500.
func (h *Handler) AddWatchlistItem(c *gin.Context) {
	var req watchlistAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	if q := h.quotes.GetQuote(c.Request.Context(), symbol); q == nil {
		respondError(c, http.StatusBadRequest, "symbol could not be resolved", symbol)
		return
	}

	item, err := h.repo.AddWatchlistItem(c.Request.Context(), c.Param("id"), symbol, req.Note)
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusCreated, item, "database", "")
}

// PUT /users/:id/watchlist/:symbol
func (h *Handler) UpdateWatchlistNote(c *gin.Context) {
	var req watchlistNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := h.repo.UpdateWatchlistNote(c.Request.Context(), c.Param("id"), symbol, req.Note); err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"symbol": symbol, "note": req.Note}, "database", "")
}

// DELETE /users/:id/watchlist/:symbol
func (h *Handler) RemoveWatchlistItem(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := h.repo.RemoveWatchlistItem(c.Request.Context(), c.Param("id"), symbol); err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"symbol": symbol, "removed": true}, "database", "")
}

type watchlistEntry struct {
	Symbol        string   `json:"symbol"`
	Note          string   `json:"note,omitempty"`
	AddedAt       string   `json:"addedAt"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	Volume        *int64   `json:"volume"`
}

// GET /users/:id/watchlist
//
// Quote enrichment is best-effort: a symbol that fails to quote keeps null
// price fields instead of aborting the read.
func (h *Handler) GetWatchlist(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	if _, err := h.repo.GetUser(ctx, userID); err != nil {
		h.mapError(c, err)
		return
	}
	items, err := h.repo.GetWatchlist(ctx, userID)
	if err != nil {
		h.mapError(c, err)
		return
	}

	symbols := make([]string, 0, len(items))
	for _, it := range items {
		symbols = append(symbols, it.Symbol)
	}
	live := h.quotes.GetMultipleQuotes(ctx, symbols)
	quoteIdx := map[string]int{}
	for i, q := range live {
		quoteIdx[q.Symbol] = i
	}

	entries := make([]watchlistEntry, 0, len(items))
	for _, it := range items {
		e := watchlistEntry{Symbol: it.Symbol, Note: it.Note, AddedAt: it.AddedAt.UTC().Format(time.RFC3339)}
		if i, ok := quoteIdx[it.Symbol]; ok {
			q := live[i]
			e.Price, e.Change, e.ChangePercent, e.Volume = &q.Price, &q.Change, &q.ChangePercent, &q.Volume
		}
		entries = append(entries, e)
	}
	respond(c, http.StatusOK, entries, "database", "")
}
