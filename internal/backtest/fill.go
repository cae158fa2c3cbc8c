package backtest

import (
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// Fill is the immutable record of one executed order. It is constructed
// once by Brokerage.createFill and never mutated after return.
type Fill struct {
	ID         int64
	OrderID    int64
	Symbol     string
	Side       models.Side
	Quantity   float64
	Price      float64
	Commission float64
	Slippage   float64
	Timestamp  time.Time
}
