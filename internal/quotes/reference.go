package quotes

import (
	"hash/fnv"
	"math/rand"
)

// Profile carries the static attributes of a symbol: listing exchange, sector
// and ballpark fundamentals used when the upstream detail endpoint has
// nothing. Values for unknown symbols are estimates, never reported figures.
type Profile struct {
	Name          string
	Exchange      string
	Sector        string
	MarketCap     float64
	PERatio       float64
	EPS           float64
	Beta          float64
	DividendYield float64
}

// ReferenceData resolves a symbol to its Profile. The static implementation
// below is the swap-in point for a real fundamentals source.
type ReferenceData interface {
	Profile(symbol string) Profile
}

var fallbackExchanges = []string{"NASDAQ", "NYSE", "AMEX"}

var fallbackSectors = []string{
	"Technology", "Healthcare", "Financial Services", "Consumer Cyclical",
	"Industrials", "Energy", "Utilities", "Communication Services",
	"Consumer Defensive", "Real Estate", "Basic Materials",
}

type StaticReference struct {
	known map[string]Profile
}

func NewStaticReference() *StaticReference {
	return &StaticReference{known: map[string]Profile{
		"AAPL":  {Name: "Apple Inc.", Exchange: "NASDAQ", Sector: "Technology", MarketCap: 2.9e12, PERatio: 29.5, EPS: 6.42, Beta: 1.24, DividendYield: 0.0052},
		"MSFT":  {Name: "Microsoft Corporation", Exchange: "NASDAQ", Sector: "Technology", MarketCap: 3.1e12, PERatio: 35.1, EPS: 11.80, Beta: 0.92, DividendYield: 0.0072},
		"GOOGL": {Name: "Alphabet Inc.", Exchange: "NASDAQ", Sector: "Communication Services", MarketCap: 2.1e12, PERatio: 26.3, EPS: 6.52, Beta: 1.05, DividendYield: 0.0047},
		"AMZN":  {Name: "Amazon.com, Inc.", Exchange: "NASDAQ", Sector: "Consumer Cyclical", MarketCap: 1.9e12, PERatio: 42.7, EPS: 4.18, Beta: 1.16, DividendYield: 0},
		"NVDA":  {Name: "NVIDIA Corporation", Exchange: "NASDAQ", Sector: "Technology", MarketCap: 3.0e12, PERatio: 55.2, EPS: 2.13, Beta: 1.68, DividendYield: 0.0003},
		"TSLA":  {Name: "Tesla, Inc.", Exchange: "NASDAQ", Sector: "Consumer Cyclical", MarketCap: 8.2e11, PERatio: 62.4, EPS: 3.62, Beta: 2.31, DividendYield: 0},
		"META":  {Name: "Meta Platforms, Inc.", Exchange: "NASDAQ", Sector: "Communication Services", MarketCap: 1.3e12, PERatio: 27.8, EPS: 17.41, Beta: 1.21, DividendYield: 0.0037},
		"JPM":   {Name: "JPMorgan Chase & Co.", Exchange: "NYSE", Sector: "Financial Services", MarketCap: 5.9e11, PERatio: 12.1, EPS: 16.23, Beta: 1.10, DividendYield: 0.0221},
		"V":     {Name: "Visa Inc.", Exchange: "NYSE", Sector: "Financial Services", MarketCap: 5.6e11, PERatio: 30.9, EPS: 8.94, Beta: 0.96, DividendYield: 0.0077},
		"JNJ":   {Name: "Johnson & Johnson", Exchange: "NYSE", Sector: "Healthcare", MarketCap: 3.8e11, PERatio: 15.2, EPS: 9.78, Beta: 0.54, DividendYield: 0.0311},
		"XOM":   {Name: "Exxon Mobil Corporation", Exchange: "NYSE", Sector: "Energy", MarketCap: 4.7e11, PERatio: 13.8, EPS: 8.11, Beta: 0.88, DividendYield: 0.0335},
		"WMT":   {Name: "Walmart Inc.", Exchange: "NYSE", Sector: "Consumer Defensive", MarketCap: 5.4e11, PERatio: 28.4, EPS: 2.38, Beta: 0.51, DividendYield: 0.0124},
	}}
}

// Profile returns the known profile or a deterministic estimate for unknown
// symbols: the symbol hashes to a fixed exchange/sector bucket and seeds the
// ratio generator, so the same symbol always resolves the same way.
func (s *StaticReference) Profile(symbol string) Profile {
	if p, ok := s.known[symbol]; ok {
		return p
	}
	h := fnv.New64a()
	h.Write([]byte(symbol))
	sum := h.Sum64()

	rng := rand.New(rand.NewSource(int64(sum)))
	return Profile{
		Name:          symbol,
		Exchange:      fallbackExchanges[sum%uint64(len(fallbackExchanges))],
		Sector:        fallbackSectors[(sum/7)%uint64(len(fallbackSectors))],
		MarketCap:     1e9 + rng.Float64()*99e9,
		PERatio:       8 + rng.Float64()*42,
		EPS:           0.5 + rng.Float64()*12,
		Beta:          0.4 + rng.Float64()*1.8,
		DividendYield: rng.Float64() * 0.04,
	}
}
