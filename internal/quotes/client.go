package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"stockboard/internal/models"
)

const quoteCacheTTL = 5 * time.Minute

// Client wraps the public finance-quote API. Every lookup follows the same
// failure policy: a network or parse error yields a nil result, and callers
// treat absence as "unknown", never as an application error. Quotes pass
// through a Redis cache; a cache failure degrades to a direct fetch.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	rdb     *redis.Client
	ref     ReferenceData
	log     *logrus.Logger
}

func NewClient(baseURL, apiKey string, rdb *redis.Client, ref ReferenceData, log *logrus.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		rdb:     rdb,
		ref:     ref,
		log:     log,
	}
}

type rawQuote struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	Volume            int64   `json:"volume"`
	MarketCap         float64 `json:"marketCap"`
	PE                float64 `json:"pe"`
	EPS               float64 `json:"eps"`
	YearHigh          float64 `json:"yearHigh"`
	YearLow           float64 `json:"yearLow"`
	Exchange          string  `json:"exchange"`
	Timestamp         int64   `json:"timestamp"`
}

func (c *Client) GetQuote(ctx context.Context, symbol string) *models.Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil
	}

	if cached := c.cachedQuote(ctx, symbol); cached != nil {
		return cached
	}

	raws := c.fetchQuotes(ctx, symbol)
	if len(raws) == 0 {
		return nil
	}
	q := c.normalize(raws[0])
	c.cacheQuote(ctx, q)
	return q
}

// GetMultipleQuotes is best-effort: symbols that fail to resolve are silently
// dropped from the result.
func (c *Client) GetMultipleQuotes(ctx context.Context, symbols []string) []models.Quote {
	res := []models.Quote{}
	missing := []string{}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if cached := c.cachedQuote(ctx, s); cached != nil {
			res = append(res, *cached)
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return res
	}
	for _, raw := range c.fetchQuotes(ctx, strings.Join(missing, ",")) {
		q := c.normalize(raw)
		c.cacheQuote(ctx, q)
		res = append(res, *q)
	}
	return res
}

// GetDetailedStockData returns the quote plus financial ratios. When the
// upstream has no ratio data for the symbol the reference provider fills in
// estimates and the result is flagged accordingly.
func (c *Client) GetDetailedStockData(ctx context.Context, symbol string) *models.DetailedQuote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	raws := c.fetchQuotes(ctx, symbol)
	if len(raws) == 0 {
		return nil
	}
	raw := raws[0]
	q := c.normalize(raw)
	d := &models.DetailedQuote{
		Quote:     *q,
		MarketCap: raw.MarketCap,
		PERatio:   raw.PE,
		EPS:       raw.EPS,
		YearHigh:  raw.YearHigh,
		YearLow:   raw.YearLow,
	}
	if raw.MarketCap == 0 && raw.PE == 0 {
		p := c.ref.Profile(symbol)
		d.MarketCap = p.MarketCap
		d.PERatio = p.PERatio
		d.EPS = p.EPS
		d.Beta = p.Beta
		d.DividendYield = p.DividendYield
		d.Estimated = true
	}
	return d
}

type rawBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// GetHistoricalBars fetches the upstream historical chart for a symbol.
// Interval is an upstream granularity such as "1day" or "5min".
func (c *Client) GetHistoricalBars(ctx context.Context, symbol, interval string, limit int) []models.Bar {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	url := fmt.Sprintf("%s/historical-chart/%s/%s?apikey=%s", c.baseURL, interval, symbol, c.apiKey)
	var raws []rawBar
	if err := c.getJSON(ctx, url, &raws); err != nil {
		c.log.Warnf("historical fetch %s failed: %v", symbol, err)
		return nil
	}
	if limit > 0 && len(raws) > limit {
		raws = raws[:limit]
	}
	p := c.ref.Profile(symbol)
	bars := make([]models.Bar, 0, len(raws))
	for _, raw := range raws {
		ts, err := time.Parse("2006-01-02 15:04:05", raw.Date)
		if err != nil {
			if ts, err = time.Parse("2006-01-02", raw.Date); err != nil {
				continue
			}
		}
		bars = append(bars, models.Bar{
			Symbol: symbol, Timestamp: ts.UTC(),
			Open: raw.Open, High: raw.High, Low: raw.Low, Close: raw.Close, Volume: raw.Volume,
			Exchange: p.Exchange, Sector: p.Sector,
		})
	}
	return bars
}

func (c *Client) fetchQuotes(ctx context.Context, symbolList string) []rawQuote {
	url := fmt.Sprintf("%s/quote/%s?apikey=%s", c.baseURL, symbolList, c.apiKey)
	var raws []rawQuote
	if err := c.getJSON(ctx, url, &raws); err != nil {
		c.log.Warnf("quote fetch %s failed: %v", symbolList, err)
		return nil
	}
	return raws
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) normalize(raw rawQuote) *models.Quote {
	p := c.ref.Profile(raw.Symbol)
	q := &models.Quote{
		Symbol:        raw.Symbol,
		Name:          raw.Name,
		Price:         raw.Price,
		Change:        raw.Change,
		ChangePercent: raw.ChangesPercentage,
		Volume:        raw.Volume,
		Exchange:      raw.Exchange,
		Sector:        p.Sector,
		Timestamp:     time.Now().UTC(),
	}
	if q.Name == "" {
		q.Name = p.Name
	}
	if q.Exchange == "" {
		q.Exchange = p.Exchange
	}
	if raw.Timestamp > 0 {
		q.Timestamp = time.Unix(raw.Timestamp, 0).UTC()
	}
	return q
}

func (c *Client) cachedQuote(ctx context.Context, symbol string) *models.Quote {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, "quote:"+symbol).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("quote cache read %s failed: %v", symbol, err)
		}
		return nil
	}
	var q models.Quote
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil
	}
	return &q
}

func (c *Client) cacheQuote(ctx context.Context, q *models.Quote) {
	if c.rdb == nil || q == nil {
		return
	}
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, "quote:"+q.Symbol, data, quoteCacheTTL).Err(); err != nil {
		c.log.Warnf("quote cache write %s failed: %v", q.Symbol, err)
	}
}
