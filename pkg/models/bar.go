// Package models holds the plain value types shared across the backtest
// engine: bars, the order/position Side enum, and the symbol-stamped
// market event a data feed emits.
package models

import (
	"fmt"
	"time"
)

// Bar is a single OHLCV candle for one symbol at one timestamp.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate checks the OHLC ordering and non-negative volume invariants.
// low <= min(open, close) <= max(open, close) <= high, volume >= 0.
func (b Bar) Validate() error {
	lo := min(b.Open, b.Close)
	hi := max(b.Open, b.Close)
	if b.Low > lo {
		return fmt.Errorf("bar at %s: low %.8f exceeds min(open,close) %.8f", b.Timestamp, b.Low, lo)
	}
	if b.High < hi {
		return fmt.Errorf("bar at %s: high %.8f below max(open,close) %.8f", b.Timestamp, b.High, hi)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar at %s: negative volume %.8f", b.Timestamp, b.Volume)
	}
	return nil
}

// Side is the direction of an order or position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// MarketEvent pairs a bar with the symbol it belongs to, the unit a
// DataFeed's aligned stream emits.
type MarketEvent struct {
	Symbol string
	Bar    Bar
}
