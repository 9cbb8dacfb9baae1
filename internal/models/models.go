package models

import "time"

// Quote is a normalized snapshot from the upstream finance API.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        int64     `json:"volume"`
	Exchange      string    `json:"exchange"`
	Sector        string    `json:"sector"`
	Timestamp     time.Time `json:"timestamp"`
}

// DetailedQuote adds derived financial ratios to a Quote. When the upstream
// detail endpoint has nothing, the ratios come from the reference-data
// provider and are estimates, not reported figures.
type DetailedQuote struct {
	Quote
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	EPS           float64 `json:"eps"`
	Beta          float64 `json:"beta"`
	DividendYield float64 `json:"dividendYield"`
	YearHigh      float64 `json:"yearHigh"`
	YearLow       float64 `json:"yearLow"`
	Estimated     bool    `json:"estimated"`
}

// Bar is one OHLCV row, daily or intraday.
type Bar struct {
	Symbol    string    `db:"symbol" json:"symbol"`
	Timestamp time.Time `db:"bar_time" json:"timestamp"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	Volume    int64     `db:"volume" json:"volume"`
	Exchange  string    `db:"exchange" json:"exchange,omitempty"`
	Sector    string    `db:"sector" json:"sector,omitempty"`
}

// Mover is one row of the ranked per-exchange movers view.
type Mover struct {
	Period        string  `db:"period" json:"period"`
	Exchange      string  `db:"exchange" json:"exchange"`
	Rank          int     `db:"rank" json:"rank"`
	Symbol        string  `db:"symbol" json:"symbol"`
	ClosePrice    float64 `db:"close_price" json:"close"`
	PrevClose     float64 `db:"prev_close" json:"prevClose"`
	Change        float64 `db:"change" json:"change"`
	ChangePercent float64 `db:"change_percent" json:"changePercent"`
	Sector        string  `db:"sector" json:"sector"`
}

// Forecast is a naive drift projection for one horizon. Synthetic by design.
type Forecast struct {
	Symbol         string    `json:"symbol"`
	HorizonDays    int       `json:"horizonDays"`
	LastClose      float64   `json:"lastClose"`
	ForecastPrice  float64   `json:"forecastPrice"`
	ExpectedChange float64   `json:"expectedChangePercent"`
	Confidence     float64   `json:"confidence"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// TickerUpdate is pushed over the websocket on the ticker:<SYMBOL> topic.
type TickerUpdate struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
}
