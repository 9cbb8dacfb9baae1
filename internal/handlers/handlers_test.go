package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockboard/internal/quotes"
)

// Validation paths reject before any repository call, so a zero-value Handler
// is enough to exercise them.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	h := NewHandler(nil, nil, nil, log)

	r := gin.New()
	r.Use(CORS())
	r.GET("/health", h.Health)
	r.GET("/bars/:symbol", h.GetBars)
	r.GET("/forecast/:symbol", h.GetForecast)
	r.POST("/users/:id/portfolio/buy", h.BuyStock)
	r.POST("/users/:id/portfolio/sell", h.SellStock)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	r := newTestRouter()

	w, _ := doRequest(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = doRequest(t, r, http.MethodOptions, "/health", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBuyRejectsNonPositiveQuantity(t *testing.T) {
	r := newTestRouter()
	w, body := doRequest(t, r, http.MethodPost, "/users/u1/portfolio/buy",
		`{"symbol":"AAPL","quantity":0,"price":50}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity must be positive", body["error"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Equal(t, "stockboard", body["source"])
}

func TestSellRejectsNegativePrice(t *testing.T) {
	r := newTestRouter()
	w, body := doRequest(t, r, http.MethodPost, "/users/u1/portfolio/sell",
		`{"symbol":"AAPL","quantity":5,"price":-1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "price must be positive", body["error"])
}

func TestBuyRejectsMissingSymbol(t *testing.T) {
	r := newTestRouter()
	w, _ := doRequest(t, r, http.MethodPost, "/users/u1/portfolio/buy",
		`{"quantity":5,"price":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBarsRejectsBadTimeframe(t *testing.T) {
	r := newTestRouter()
	w, body := doRequest(t, r, http.MethodGet, "/bars/AAPL?timeframe=hourly", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "timeframe must be daily or intraday", body["error"])
}

func TestBarsRejectsBadDate(t *testing.T) {
	r := newTestRouter()
	w, _ := doRequest(t, r, http.MethodGet, "/bars/AAPL?startDate=junk", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// An unresolvable symbol must be rejected before anything touches storage;
// the nil repo would panic if the handler got that far.
func TestWatchlistAddRejectsUnresolvableSymbol(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	q := quotes.NewClient(srv.URL, "test-key", nil, quotes.NewStaticReference(), log)
	h := NewHandler(nil, q, nil, log)

	r := gin.New()
	r.POST("/users/:id/watchlist", h.AddWatchlistItem)

	w, body := doRequest(t, r, http.MethodPost, "/users/u1/watchlist", `{"symbol":"GHOST"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "symbol could not be resolved", body["error"])
}

func TestForecastRejectsBadHorizon(t *testing.T) {
	r := newTestRouter()
	for _, q := range []string{"horizon=0", "horizon=-3", "horizon=400", "horizon=abc"} {
		w, body := doRequest(t, r, http.MethodGet, "/forecast/AAPL?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "horizon must be between 1 and 365", body["error"], q)
	}
}
