package backtest

import (
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// OrderType selects the fill-trigger rule a pending order is evaluated
// against on each bar. See Brokerage.tryFill for the exact conditions.
type OrderType int

const (
	Market OrderType = iota
	Limit
	Stop
	StopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	case StopLimit:
		return "stop_limit"
	default:
		return "unknown"
	}
}

// OrderStatus is the order lifecycle state. Filled, Cancelled, and
// Rejected are absorbing: once reached, an order never transitions again.
type OrderStatus int

const (
	Submitted OrderStatus = iota
	Pending
	Filled
	Cancelled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Pending:
		return "pending"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s OrderStatus) terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is a single resting or executed instruction. Price is the limit
// price for Limit/StopLimit orders; TriggerPrice is the stop price for
// Stop/StopLimit orders. Market orders use neither.
type Order struct {
	ID           int64
	Symbol       string
	Side         models.Side
	Type         OrderType
	Quantity     float64
	Price        float64
	TriggerPrice float64
	Status       OrderStatus
	CreatedAt    time.Time
}
