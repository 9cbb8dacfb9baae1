package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockboard/internal/models"
)

func TestChangePercent(t *testing.T) {
	// 40 -> 50 is a 25% move.
	assert.InDelta(t, 25.0, ChangePercent(50, 40), 1e-9)
	assert.InDelta(t, -10.0, ChangePercent(90, 100), 1e-9)
	assert.Equal(t, 0.0, ChangePercent(50, 0))
}

func TestRankByExchange(t *testing.T) {
	candidates := []models.Mover{
		{Exchange: "NYSE", Symbol: "A", ChangePercent: 2.0},
		{Exchange: "NYSE", Symbol: "B", ChangePercent: -8.5},
		{Exchange: "NYSE", Symbol: "C", ChangePercent: 4.1},
		{Exchange: "NASDAQ", Symbol: "D", ChangePercent: 1.2},
	}

	ranked := RankByExchange(candidates, 100)
	assert.Len(t, ranked, 2)

	nyse := ranked["NYSE"]
	assert.Len(t, nyse, 3)
	// Ordered by absolute move, dense ranks from 1.
	assert.Equal(t, "B", nyse[0].Symbol)
	assert.Equal(t, 1, nyse[0].Rank)
	assert.Equal(t, "C", nyse[1].Symbol)
	assert.Equal(t, 2, nyse[1].Rank)
	assert.Equal(t, "A", nyse[2].Symbol)
	assert.Equal(t, 3, nyse[2].Rank)

	assert.Equal(t, 1, ranked["NASDAQ"][0].Rank)
}

func TestRankByExchangeTruncatesToTopN(t *testing.T) {
	candidates := []models.Mover{
		{Exchange: "NYSE", Symbol: "A", ChangePercent: 2},
		{Exchange: "NYSE", Symbol: "B", ChangePercent: 3},
		{Exchange: "NYSE", Symbol: "C", ChangePercent: 4},
	}
	ranked := RankByExchange(candidates, 2)
	assert.Len(t, ranked["NYSE"], 2)
	assert.Equal(t, "C", ranked["NYSE"][0].Symbol)
	assert.Equal(t, "B", ranked["NYSE"][1].Symbol)
}

func TestMoverCandidateThreshold(t *testing.T) {
	prev := models.Bar{Symbol: "AAPL", Exchange: "NASDAQ", Sector: "Technology", Close: 100}

	// 0.9% up, 0.5% down: below the floor in either direction.
	for _, close := range []float64{100.9, 99.5} {
		_, ok := MoverCandidate("daily", "AAPL", models.Bar{Exchange: "NASDAQ", Close: close}, prev)
		assert.False(t, ok, "close %.2f should not qualify", close)
	}

	// Exactly 1% qualifies, as does any bigger move.
	up, ok := MoverCandidate("daily", "AAPL", models.Bar{Exchange: "NASDAQ", Sector: "Technology", Close: 101}, prev)
	assert.True(t, ok)
	assert.Equal(t, 1.0, up.ChangePercent)
	assert.Equal(t, 1.0, up.Change)
	assert.Equal(t, "NASDAQ", up.Exchange)

	down, ok := MoverCandidate("daily", "AAPL", models.Bar{Exchange: "NASDAQ", Close: 92.5}, prev)
	assert.True(t, ok)
	assert.Equal(t, -7.5, down.ChangePercent)

	// No previous close means no candidate, regardless of today's move.
	_, ok = MoverCandidate("daily", "NEWCO", models.Bar{Exchange: "NYSE", Close: 40}, models.Bar{Close: 0})
	assert.False(t, ok)
}
