package service

import (
	"context"
	"errors"
	"math"
	"time"

	"stockboard/internal/models"
)

// ErrNoHistory means a symbol has too little price history to project from.
var ErrNoHistory = errors.New("insufficient price history")

// Horizons are the forward windows, in days, a forecast targets.
var Horizons = []int{7, 30, 90}

const forecastLookback = 30

// BarSource is the slice of the repository the forecaster needs.
type BarSource interface {
	GetDailyBars(ctx context.Context, symbol string, limit int, start, end *time.Time) ([]models.Bar, error)
}

// Forecaster projects a close price forward by compounding the mean daily
// return of the recent lookback window. This is a naive drift model and is
// labeled synthetic everywhere it surfaces.
type Forecaster struct {
	bars BarSource
}

func NewForecaster(bars BarSource) *Forecaster {
	return &Forecaster{bars: bars}
}

func (f *Forecaster) Forecast(ctx context.Context, symbol string, horizonDays int) (*models.Forecast, error) {
	bars, err := f.bars.GetDailyBars(ctx, symbol, forecastLookback+1, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, ErrNoHistory
	}

	// Bars arrive most recent first.
	drift := 0.0
	n := 0
	for i := 0; i < len(bars)-1; i++ {
		prev := bars[i+1].Close
		if prev == 0 {
			continue
		}
		drift += (bars[i].Close - prev) / prev
		n++
	}
	if n == 0 {
		return nil, ErrNoHistory
	}
	drift /= float64(n)

	last := bars[0].Close
	if last == 0 {
		return nil, ErrNoHistory
	}
	projected := last * math.Pow(1+drift, float64(horizonDays))
	confidence := 0.85 - 0.005*float64(horizonDays)
	if confidence < 0.25 {
		confidence = 0.25
	}

	return &models.Forecast{
		Symbol:         symbol,
		HorizonDays:    horizonDays,
		LastClose:      last,
		ForecastPrice:  math.Round(projected*100) / 100,
		ExpectedChange: math.Round((projected-last)/last*10000) / 100,
		Confidence:     math.Round(confidence*100) / 100,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// ForecastAll produces one forecast per standard horizon.
func (f *Forecaster) ForecastAll(ctx context.Context, symbol string) ([]models.Forecast, error) {
	res := make([]models.Forecast, 0, len(Horizons))
	for _, h := range Horizons {
		fc, err := f.Forecast(ctx, symbol, h)
		if err != nil {
			return nil, err
		}
		res = append(res, *fc)
	}
	return res, nil
}
