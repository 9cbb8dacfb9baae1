package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stockboard/internal/database"
	"stockboard/internal/models"
	"stockboard/internal/quotes"
	"stockboard/internal/service"
)

const noDataMessage = "market data not yet available"

type Handler struct {
	repo       *database.Repo
	quotes     *quotes.Client
	forecaster *service.Forecaster
	log        *logrus.Logger
}

func NewHandler(r *database.Repo, q *quotes.Client, f *service.Forecaster, log *logrus.Logger) *Handler {
	return &Handler{repo: r, quotes: q, forecaster: f, log: log}
}

// CORS applies the permissive headers every response carries.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func respond(c *gin.Context, status int, data interface{}, source, message string) {
	body := gin.H{
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    source,
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, msg, details string) {
	body := gin.H{
		"error":     msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    "stockboard",
	}
	if details != "" {
		body["details"] = details
	}
	c.JSON(status, body)
}

// mapError translates repository sentinels into the HTTP taxonomy:
// validation 400, not-found 404, conflict 409, anything else 500.
func (h *Handler) mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, database.ErrInsufficientFunds), errors.Is(err, database.ErrInsufficientShares):
		respondError(c, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, database.ErrDuplicate):
		respondError(c, http.StatusConflict, "already exists", err.Error())
	default:
		h.log.Errorf("request failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /movers?period&exchange&sector&limit&gainers&losers
func (h *Handler) GetMovers(c *gin.Context) {
	period := c.DefaultQuery("period", "daily")
	limit, _ := strconv.Atoi(c.Query("limit"))
	gainers := c.Query("gainers") == "true"
	losers := c.Query("losers") == "true"

	rows, err := h.repo.GetMovers(c.Request.Context(), period, c.Query("exchange"), c.Query("sector"), limit, gainers, losers)
	if err != nil {
		h.mapError(c, err)
		return
	}
	msg := ""
	if len(rows) == 0 {
		msg = noDataMessage
	}
	respond(c, http.StatusOK, rows, "database", msg)
}

// GET /bars/:symbol?timeframe=daily|intraday&limit&startDate&endDate
func (h *Handler) GetBars(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		respondError(c, http.StatusBadRequest, "symbol is required", "")
		return
	}
	timeframe := c.DefaultQuery("timeframe", "daily")
	if timeframe != "daily" && timeframe != "intraday" {
		respondError(c, http.StatusBadRequest, "timeframe must be daily or intraday", "")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	var start, end *time.Time
	for q, dst := range map[string]**time.Time{"startDate": &start, "endDate": &end} {
		if v := c.Query(q); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				respondError(c, http.StatusBadRequest, q+" must be YYYY-MM-DD", "")
				return
			}
			*dst = &t
		}
	}

	var (
		bars []models.Bar
		err  error
	)
	if timeframe == "intraday" {
		bars, err = h.repo.GetIntradayBars(c.Request.Context(), symbol, limit, start, end)
	} else {
		bars, err = h.repo.GetDailyBars(c.Request.Context(), symbol, limit, start, end)
	}
	if err != nil {
		h.mapError(c, err)
		return
	}
	msg := ""
	if len(bars) == 0 {
		msg = noDataMessage
	}
	respond(c, http.StatusOK, bars, "database", msg)
}

// GET /forecast/:symbol?horizon&all
func (h *Handler) GetForecast(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	if c.Query("all") == "true" {
		all, err := h.forecaster.ForecastAll(c.Request.Context(), symbol)
		if err != nil {
			h.forecastError(c, err)
			return
		}
		respond(c, http.StatusOK, all, "synthetic", "")
		return
	}

	horizon := 30
	if v := c.Query("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			respondError(c, http.StatusBadRequest, "horizon must be between 1 and 365", "")
			return
		}
		horizon = n
	}
	fc, err := h.forecaster.Forecast(c.Request.Context(), symbol, horizon)
	if err != nil {
		h.forecastError(c, err)
		return
	}
	respond(c, http.StatusOK, fc, "synthetic", "")
}

func (h *Handler) forecastError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNoHistory) {
		respond(c, http.StatusOK, nil, "database", noDataMessage)
		return
	}
	h.mapError(c, err)
}

// GET /stock/:symbol
func (h *Handler) GetStockDetail(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	detail := h.quotes.GetDetailedStockData(c.Request.Context(), symbol)
	if detail == nil {
		respondError(c, http.StatusNotFound, "symbol not found", symbol)
		return
	}
	source := "live"
	if detail.Estimated {
		source = "estimated"
	}
	respond(c, http.StatusOK, detail, source, "")
}
