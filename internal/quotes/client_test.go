package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return NewClient(srv.URL, "test-key", nil, NewStaticReference(), log)
}

func TestGetQuoteNormalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/quote/AAPL"))
		fmt.Fprint(w, `[{"symbol":"AAPL","name":"Apple Inc.","price":187.44,"change":2.11,"changesPercentage":1.14,"volume":52164598,"exchange":"NASDAQ","timestamp":1717063200}]`)
	})

	q := c.GetQuote(context.Background(), "aapl")
	require.NotNil(t, q)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 187.44, q.Price)
	assert.Equal(t, "NASDAQ", q.Exchange)
	// Sector always comes from the reference provider.
	assert.Equal(t, "Technology", q.Sector)
}

func TestGetQuoteFillsExchangeFromReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"JPM","price":201.5}]`)
	})

	q := c.GetQuote(context.Background(), "JPM")
	require.NotNil(t, q)
	assert.Equal(t, "NYSE", q.Exchange)
	assert.Equal(t, "JPMorgan Chase & Co.", q.Name)
}

func TestGetQuoteUpstreamFailureYieldsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Nil(t, c.GetQuote(context.Background(), "AAPL"))
}

func TestGetQuoteParseFailureYieldsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})
	assert.Nil(t, c.GetQuote(context.Background(), "AAPL"))
}

func TestGetMultipleQuotesDropsFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Upstream only knows one of the two requested symbols.
		fmt.Fprint(w, `[{"symbol":"AAPL","price":187.44}]`)
	})

	quotes := c.GetMultipleQuotes(context.Background(), []string{"AAPL", "NOPE"})
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
}

func TestGetDetailedStockDataEstimatesWhenUpstreamBare(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"AAPL","price":187.44}]`)
	})

	d := c.GetDetailedStockData(context.Background(), "AAPL")
	require.NotNil(t, d)
	assert.True(t, d.Estimated)
	assert.Greater(t, d.PERatio, 0.0)
	assert.Greater(t, d.MarketCap, 0.0)
}

func TestGetDetailedStockDataPrefersUpstream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"AAPL","price":187.44,"marketCap":2900000000000,"pe":29.5,"eps":6.42,"yearHigh":199.6,"yearLow":164.1}]`)
	})

	d := c.GetDetailedStockData(context.Background(), "AAPL")
	require.NotNil(t, d)
	assert.False(t, d.Estimated)
	assert.Equal(t, 29.5, d.PERatio)
	assert.Equal(t, 199.6, d.YearHigh)
}

func TestGetHistoricalBars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/historical-chart/5min/AAPL"))
		fmt.Fprint(w, `[
			{"date":"2024-05-31 15:55:00","open":186.9,"high":187.5,"low":186.8,"close":187.44,"volume":120000},
			{"date":"2024-05-31 15:50:00","open":186.7,"high":187.0,"low":186.6,"close":186.9,"volume":98000}
		]`)
	})

	bars := c.GetHistoricalBars(context.Background(), "AAPL", "5min", 0)
	require.Len(t, bars, 2)
	assert.Equal(t, 187.44, bars[0].Close)
	assert.Equal(t, "NASDAQ", bars[0].Exchange)
}
