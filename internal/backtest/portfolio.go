package backtest

import (
	"math"
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

const flatEpsilon = 1e-10

// Position is the current holding in one symbol.
type Position struct {
	Symbol        string
	Quantity      float64
	AveragePrice  float64
	CostBasis     float64
	MarketValue   float64
	RealizedPNL   float64
	UnrealizedPNL float64
}

func (p *Position) isFlat() bool { return math.Abs(p.Quantity) < flatEpsilon }

// applyFill updates a position for one fill. Buys weight-average the
// entry price; sells realize pnl against the existing average and reduce
// cost basis proportionally. A position that nets to (near) zero snaps
// flat: quantity, average price, and cost basis all reset to zero.
func (p *Position) applyFill(f Fill) {
	if f.Side == models.Buy {
		totalCost := p.Quantity*p.AveragePrice + f.Quantity*f.Price
		newQty := p.Quantity + f.Quantity
		if newQty > 0 {
			p.AveragePrice = totalCost / newQty
		}
		p.Quantity = newQty
		p.CostBasis += f.Quantity*f.Price + f.Commission
	} else {
		soldCost := f.Quantity * p.AveragePrice
		soldValue := f.Quantity*f.Price - f.Commission
		p.RealizedPNL += soldValue - soldCost
		p.Quantity -= f.Quantity
		p.CostBasis -= f.Quantity * p.AveragePrice
	}
	if p.isFlat() {
		p.Quantity = 0
		p.AveragePrice = 0
		p.CostBasis = 0
	}
}

func (p *Position) markToMarket(price float64) {
	p.MarketValue = p.Quantity * price
	p.UnrealizedPNL = p.MarketValue - p.CostBasis
}

// TradeRecord is one round-trip (or currently-open) position in the trade
// ledger, opened on entry and closed on exit.
type TradeRecord struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "long" or "short"
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time,omitempty"`
	PNL        float64   `json:"pnl"`
	Commission float64   `json:"commission"`
	Open       bool      `json:"open"`
}

// EquityPoint is one sample on the equity curve.
type EquityPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	Equity         float64   `json:"equity"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
	Drawdown       float64   `json:"drawdown"`
	DrawdownPct    float64   `json:"drawdown_pct"`
}

// Portfolio tracks cash, per-symbol positions, the trade ledger, and the
// equity curve across a run.
type Portfolio struct {
	Cash            float64
	InitialCapital  float64
	Positions       map[string]*Position
	EquityCurve     []EquityPoint
	Trades          []*TradeRecord
	peakEquity      float64
	maxDrawdown     float64
	totalRealizedPL float64
	nextTradeID     int64
}

// NewPortfolio returns a portfolio starting fully in cash.
func NewPortfolio(initialCapital float64) *Portfolio {
	return &Portfolio{
		Cash:           initialCapital,
		InitialCapital: initialCapital,
		Positions:      make(map[string]*Position),
		peakEquity:     initialCapital,
		nextTradeID:    1,
	}
}

func (p *Portfolio) position(symbol string) *Position {
	pos, ok := p.Positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		p.Positions[symbol] = pos
	}
	return pos
}

// ProcessFill applies a fill to cash, the relevant position, and the
// trade ledger. Buys debit cash by quantity*price+commission+slippage;
// sells credit cash by quantity*price-commission-slippage.
func (p *Portfolio) ProcessFill(f Fill) {
	if f.Side == models.Buy {
		p.Cash -= f.Quantity*f.Price + f.Commission + f.Slippage
	} else {
		p.Cash += f.Quantity*f.Price - f.Commission - f.Slippage
	}
	pos := p.position(f.Symbol)
	prevRealized := pos.RealizedPNL
	pos.applyFill(f)
	p.totalRealizedPL += pos.RealizedPNL - prevRealized
	p.recordTrade(f)
}

// recordTrade maintains the trade ledger. A buy extends an existing open
// long trade (weighted-average entry, accumulated commission) or opens a
// new long trade. A sell closes an existing open trade, computing its
// realized pnl; a sell with no open trade opens a new short-labeled
// trade — kept for parity with the reference implementation, but the
// engine's signal handling never issues a sell-to-open (see engine.go),
// so this branch is reachable only via a directly-submitted sell order
// against a flat position, and its cost-basis accounting is not
// symmetric with the long side.
func (p *Portfolio) recordTrade(f Fill) {
	var open *TradeRecord
	for _, t := range p.Trades {
		if t.Symbol == f.Symbol && t.Open {
			open = t
			break
		}
	}
	if f.Side == models.Buy {
		if open != nil {
			totalQty := open.Quantity + f.Quantity
			open.EntryPrice = (open.EntryPrice*open.Quantity + f.Price*f.Quantity) / totalQty
			open.Quantity = totalQty
			open.Commission += f.Commission
			return
		}
		p.Trades = append(p.Trades, &TradeRecord{
			ID: p.nextTradeID, Symbol: f.Symbol, Side: "long",
			Quantity: f.Quantity, EntryPrice: f.Price, EntryTime: f.Timestamp,
			Commission: f.Commission, Open: true,
		})
		p.nextTradeID++
		return
	}
	// Sell.
	if open != nil {
		open.ExitPrice = f.Price
		open.ExitTime = f.Timestamp
		open.PNL = (f.Price-open.EntryPrice)*f.Quantity - open.Commission - f.Commission
		open.Commission += f.Commission
		open.Open = false
		return
	}
	p.Trades = append(p.Trades, &TradeRecord{
		ID: p.nextTradeID, Symbol: f.Symbol, Side: "short",
		Quantity: f.Quantity, EntryPrice: f.Price, EntryTime: f.Timestamp,
		Commission: f.Commission, Open: true,
	})
	p.nextTradeID++
}

// UpdateMarketValues marks every held position to the given latest price
// map (symbols missing from the map are left at their last mark).
func (p *Portfolio) UpdateMarketValues(prices map[string]float64) {
	for symbol, pos := range p.Positions {
		if price, ok := prices[symbol]; ok {
			pos.markToMarket(price)
		}
	}
}

// PositionsValue sums the market value of every held position.
func (p *Portfolio) PositionsValue() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.MarketValue
	}
	return total
}

// TotalEquity is cash plus the value of all open positions.
func (p *Portfolio) TotalEquity() float64 {
	return p.Cash + p.PositionsValue()
}

// RecordEquity appends an equity-curve sample and updates the running
// peak and max drawdown.
func (p *Portfolio) RecordEquity(at time.Time) {
	equity := p.TotalEquity()
	if equity > p.peakEquity {
		p.peakEquity = equity
	}
	drawdown := p.peakEquity - equity
	var drawdownPct float64
	if p.peakEquity > 0 {
		drawdownPct = drawdown / p.peakEquity * 100
	}
	if drawdown > p.maxDrawdown {
		p.maxDrawdown = drawdown
	}
	p.EquityCurve = append(p.EquityCurve, EquityPoint{
		Timestamp:      at,
		Equity:         equity,
		Cash:           p.Cash,
		PositionsValue: p.PositionsValue(),
		Drawdown:       drawdown,
		DrawdownPct:    drawdownPct,
	})
}

// UnrealizedPNL sums unrealized pnl across all positions.
func (p *Portfolio) UnrealizedPNL() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.UnrealizedPNL
	}
	return total
}

// RealizedPNL returns the running total of realized pnl.
func (p *Portfolio) RealizedPNL() float64 { return p.totalRealizedPL }

// TotalPNL is realized plus unrealized pnl.
func (p *Portfolio) TotalPNL() float64 { return p.RealizedPNL() + p.UnrealizedPNL() }

// TotalReturnPct is total equity growth since inception, as a percentage.
func (p *Portfolio) TotalReturnPct() float64 {
	if p.InitialCapital == 0 {
		return 0
	}
	return (p.TotalEquity()/p.InitialCapital - 1) * 100
}

// MaxDrawdownPct is the largest peak-to-trough equity decline observed,
// as a percentage of the peak at the time.
func (p *Portfolio) MaxDrawdownPct() float64 {
	var maxPct float64
	for _, pt := range p.EquityCurve {
		if pt.DrawdownPct > maxPct {
			maxPct = pt.DrawdownPct
		}
	}
	return maxPct
}

// TradeStats summarizes closed trades only.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
}

// Stats computes trade statistics over closed trades.
func (p *Portfolio) Stats() TradeStats {
	var s TradeStats
	var totalWin, totalLoss float64
	for _, t := range p.Trades {
		if t.Open {
			continue
		}
		s.TotalTrades++
		if t.PNL > 0 {
			s.WinningTrades++
			totalWin += t.PNL
			if t.PNL > s.LargestWin {
				s.LargestWin = t.PNL
			}
		} else if t.PNL < 0 {
			s.LosingTrades++
			totalLoss += -t.PNL
			if -t.PNL > s.LargestLoss {
				s.LargestLoss = -t.PNL
			}
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}
	if s.WinningTrades > 0 {
		s.AverageWin = totalWin / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = totalLoss / float64(s.LosingTrades)
	}
	switch {
	case totalLoss > 0:
		s.ProfitFactor = totalWin / totalLoss
	case totalWin > 0:
		s.ProfitFactor = math.Inf(1)
	default:
		s.ProfitFactor = 0
	}
	return s
}

// Reset clears the portfolio back to its initial state.
func (p *Portfolio) Reset() {
	p.Cash = p.InitialCapital
	p.Positions = make(map[string]*Position)
	p.EquityCurve = nil
	p.Trades = nil
	p.peakEquity = p.InitialCapital
	p.maxDrawdown = 0
	p.totalRealizedPL = 0
	p.nextTradeID = 1
}
