package backtest

import (
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

func dailyBar(day int, open, high, low, close, volume float64) models.Bar {
	ts := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return models.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: volume}
}

// steadyUptrend generates n daily bars climbing by step each day.
func steadyUptrend(n int, start, step, volume float64) []models.Bar {
	bars := make([]models.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		close := price + step
		hi := close + step/2
		lo := open - step/2
		bars[i] = dailyBar(i, open, hi, lo, close, volume)
		price = close
	}
	return bars
}

// steadyDowntrend generates n daily bars declining by step each day.
func steadyDowntrend(n int, start, step, volume float64) []models.Bar {
	bars := make([]models.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		close := price - step
		hi := open + step/2
		lo := close - step/2
		bars[i] = dailyBar(i, open, hi, lo, close, volume)
		price = close
	}
	return bars
}

func equityCurveFrom(values []float64) []EquityPoint {
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{Timestamp: time.Date(2023, 1, 2+i, 0, 0, 0, 0, time.UTC), Equity: v}
	}
	return curve
}
