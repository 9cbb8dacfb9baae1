package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// startingBalance is the virtual cash a new account opens with.
var startingBalance = decimal.NewFromInt(100000)

type createUserRequest struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// POST /users
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	u, err := h.repo.CreateUser(c.Request.Context(), req.ID, req.Email, req.DisplayName, startingBalance)
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusCreated, u, "database", "")
}

// GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "database", "")
}

type tradeRequest struct {
	Symbol   string          `json:"symbol" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (h *Handler) bindTrade(c *gin.Context) (string, *tradeRequest, bool) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return "", nil, false
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		respondError(c, http.StatusBadRequest, "quantity must be positive", "")
		return "", nil, false
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		respondError(c, http.StatusBadRequest, "price must be positive", "")
		return "", nil, false
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	return c.Param("id"), &req, true
}

// POST /users/:id/portfolio/buy
func (h *Handler) BuyStock(c *gin.Context) {
	userID, req, ok := h.bindTrade(c)
	if !ok {
		return
	}
	res, err := h.repo.BuyStock(c.Request.Context(), userID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, res, "database", "")
}

// POST /users/:id/portfolio/sell
func (h *Handler) SellStock(c *gin.Context) {
	userID, req, ok := h.bindTrade(c)
	if !ok {
		return
	}
	res, err := h.repo.SellStock(c.Request.Context(), userID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, res, "database", "")
}

type portfolioPosition struct {
	Symbol           string `json:"symbol"`
	Quantity         string `json:"quantity"`
	AveragePrice     string `json:"averagePrice"`
	TotalInvested    string `json:"totalInvested"`
	CurrentPrice     string `json:"currentPrice"`
	MarketValue      string `json:"marketValue"`
	UnrealizedPnL    string `json:"unrealizedPnL"`
	UnrealizedPnLPct string `json:"unrealizedPnLPercent"`
	LiveQuote        bool   `json:"liveQuote"`
}

// GET /users/:id/portfolio
//
// Positions without a live quote are valued at average price (zero unrealized
// P&L) rather than failing the whole response.
func (h *Handler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		h.mapError(c, err)
		return
	}
	positions, err := h.repo.GetPositions(ctx, userID)
	if err != nil {
		h.mapError(c, err)
		return
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	priceBySymbol := map[string]decimal.Decimal{}
	for _, q := range h.quotes.GetMultipleQuotes(ctx, symbols) {
		priceBySymbol[q.Symbol] = decimal.NewFromFloat(q.Price)
	}

	items := make([]portfolioPosition, 0, len(positions))
	totalValue := decimal.Zero
	totalInvested := decimal.Zero
	for _, p := range positions {
		price, live := priceBySymbol[p.Symbol]
		if !live {
			price = p.AveragePrice
		}
		value := p.Quantity.Mul(price)
		pnl := value.Sub(p.TotalInvested)
		pct := decimal.Zero
		if p.TotalInvested.Cmp(decimal.Zero) > 0 {
			pct = pnl.Div(p.TotalInvested).Mul(decimal.NewFromInt(100))
		}
		items = append(items, portfolioPosition{
			Symbol:           p.Symbol,
			Quantity:         p.Quantity.String(),
			AveragePrice:     p.AveragePrice.StringFixed(2),
			TotalInvested:    p.TotalInvested.StringFixed(2),
			CurrentPrice:     price.StringFixed(2),
			MarketValue:      value.StringFixed(2),
			UnrealizedPnL:    pnl.StringFixed(2),
			UnrealizedPnLPct: pct.StringFixed(2),
			LiveQuote:        live,
		})
		totalValue = totalValue.Add(value)
		totalInvested = totalInvested.Add(p.TotalInvested)
	}

	respond(c, http.StatusOK, gin.H{
		"userId":        user.ID,
		"positions":     items,
		"cashBalance":   user.VirtualBalance.StringFixed(2),
		"totalInvested": totalInvested.StringFixed(2),
		"marketValue":   totalValue.StringFixed(2),
		"unrealizedPnL": totalValue.Sub(totalInvested).StringFixed(2),
		"accountValue":  user.VirtualBalance.Add(totalValue).StringFixed(2),
	}, "database", "")
}

// GET /users/:id/transactions?limit
func (h *Handler) GetTransactions(c *gin.Context) {
	userID := c.Param("id")
	if _, err := h.repo.GetUser(c.Request.Context(), userID); err != nil {
		h.mapError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.repo.GetTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		h.mapError(c, err)
		return
	}
	respond(c, http.StatusOK, rows, "database", "")
}
