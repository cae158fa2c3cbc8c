// Package backtest provides a deterministic, event-driven backtesting
// engine: a data feed, brokerage, portfolio, and orchestration loop for
// replaying historical OHLCV bars against a pre-computed signal series.
package backtest

import (
	"sync"
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// SignalKey is the bar timestamp a +1/0/-1 signal applies to. A signal
// has no symbol of its own: whichever symbol's bar lands on that
// timestamp receives it, matching the reference engine's bare-timestamp
// signal map. Using the time.Time instant directly, rather than a
// formatted string, avoids the RFC3339-round-trip drift a string key
// would risk.
type SignalKey = time.Time

// Result is everything an Engine.Run call produces.
type Result struct {
	FinalEquity float64        `json:"final_equity"`
	EquityCurve []EquityPoint  `json:"equity_curve"`
	Trades      []*TradeRecord `json:"trades"`
	Metrics     Metrics        `json:"metrics"`
}

// Engine owns one DataFeed, Brokerage, OrderManager, and Portfolio and
// runs them through a single deterministic pass over the aligned bar
// stream. A run is single-threaded; parallelism across independent
// engines is the optimizer package's concern, not the engine's.
type Engine struct {
	mu sync.Mutex

	cfg       BacktestConfig
	brokerCfg BrokerageConfig
	feed      *DataFeed
	broker    *Brokerage
	orders    *OrderManager
	portfolio *Portfolio

	currentPrices map[string]float64
	running       bool
	totalBars     int
	barsProcessed int
}

// NewEngine constructs an engine with a private, seeded brokerage so two
// engines constructed with the same seed produce identical fills.
func NewEngine(cfg BacktestConfig, brokerCfg BrokerageConfig, feed *DataFeed) *Engine {
	return &Engine{
		cfg:           cfg,
		brokerCfg:     brokerCfg,
		feed:          feed,
		broker:        NewBrokerage(brokerCfg, cfg.Seed),
		orders:        NewOrderManager(),
		portfolio:     NewPortfolio(cfg.InitialCapital),
		currentPrices: make(map[string]float64),
		totalBars:     len(feed.AlignedStream()),
	}
}

// Run executes the full aligned bar stream, applying each signal to
// whichever symbol's bar lands on its timestamp, and returns the
// accumulated result.
//
// Per bar: pending fills from prior bars are processed first, then the
// signal for the current bar is evaluated. This fills-before-signal
// ordering means a signal issued on bar N can never be filled by bar N's
// own resting orders — only by orders resting from earlier bars.
func (e *Engine) Run(signals map[SignalKey]int) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.running = true
	defer func() { e.running = false }()

	for _, evt := range e.feed.AlignedStream() {
		e.processBar(evt.Symbol, evt.Bar, signals)
		e.barsProcessed++
	}
	e.closeAllPositions()

	return e.buildResult()
}

func (e *Engine) processBar(symbol string, bar models.Bar, signals map[SignalKey]int) {
	e.currentPrices[symbol] = bar.Close

	fills := e.broker.ProcessBar(symbol, bar)
	for _, f := range fills {
		e.portfolio.ProcessFill(f)
		e.orders.MarkFilled(f.OrderID)
	}

	signal, ok := signals[bar.Timestamp]
	if ok {
		e.executeSignal(symbol, signal, bar)
	}

	e.portfolio.UpdateMarketValues(e.currentPrices)
	e.portfolio.RecordEquity(bar.Timestamp)
}

// executeSignal turns a +1/0/-1 signal into a market order. +1 opens a
// long if flat or short; -1 closes the entire current long position. A
// signal can never open a short: that restriction is enforced here, not
// in the brokerage or portfolio, which remain capable of processing a
// directly-submitted sell against a flat position.
func (e *Engine) executeSignal(symbol string, signal int, bar models.Bar) {
	pos := e.portfolio.position(symbol)
	switch {
	case signal > 0 && pos.Quantity <= 0:
		qty := e.calculateOrderSize(bar.Close)
		if qty <= 0 {
			return
		}
		e.executeMarketOrder(symbol, models.Buy, qty, bar)
	case signal < 0 && pos.Quantity > 0:
		e.executeMarketOrder(symbol, models.Sell, pos.Quantity, bar)
	}
}

// calculateOrderSize sizes a new position at 95% of available cash,
// leaving headroom for the taker fee and expected slippage.
func (e *Engine) calculateOrderSize(price float64) float64 {
	if price <= 0 {
		return 0
	}
	return (e.portfolio.Cash * 0.95) / (1 + e.brokerCfg.TakerFee + e.brokerCfg.SlippagePct) / price
}

func (e *Engine) executeMarketOrder(symbol string, side models.Side, qty float64, bar models.Bar) {
	o := e.orders.CreateMarketOrder(symbol, side, qty, bar.Timestamp)
	f := e.broker.ExecuteMarketOrder(o, bar)
	e.portfolio.ProcessFill(f)
	e.orders.MarkFilled(o.ID)
}

// closeAllPositions force-liquidates every remaining long position at
// its last known price once the bar stream is exhausted, using a
// synthetic zero-volume bar so no further slippage volume-impact term
// applies.
func (e *Engine) closeAllPositions() {
	for _, symbol := range e.feed.Symbols() {
		pos, ok := e.portfolio.Positions[symbol]
		if !ok || pos.Quantity <= 0 {
			continue
		}
		price := e.currentPrices[symbol]
		closingBar := models.Bar{Timestamp: e.lastTimestamp(), Open: price, High: price, Low: price, Close: price, Volume: 0}
		e.executeMarketOrder(symbol, models.Sell, pos.Quantity, closingBar)
	}
	e.portfolio.UpdateMarketValues(e.currentPrices)
	e.portfolio.RecordEquity(e.lastTimestamp())
}

func (e *Engine) lastTimestamp() time.Time {
	stream := e.feed.AlignedStream()
	if len(stream) == 0 {
		return time.Time{}
	}
	return stream[len(stream)-1].Bar.Timestamp
}

func (e *Engine) buildResult() Result {
	stats := e.portfolio.Stats()
	metrics := NewMetricsCalculator(e.cfg.RiskFreeRate, e.cfg.Timeframe).Calculate(e.portfolio.EquityCurve, stats)
	return Result{
		FinalEquity: e.portfolio.TotalEquity(),
		EquityCurve: e.portfolio.EquityCurve,
		Trades:      e.portfolio.Trades,
		Metrics:     metrics,
	}
}

// Progress reports how far the bar stream has been consumed, 0..100.
func (e *Engine) Progress() float64 {
	if e.totalBars == 0 {
		return 100
	}
	return float64(e.barsProcessed) / float64(e.totalBars) * 100
}

// CurrentEquity returns the portfolio's mark-to-market equity so far.
func (e *Engine) CurrentEquity() float64 { return e.portfolio.TotalEquity() }

// IsRunning reports whether a Run call is currently in progress.
func (e *Engine) IsRunning() bool { return e.running }

// Reset rebuilds the portfolio, brokerage, order manager, and data feed
// to their initial state so the engine can be reused for another Run.
func (e *Engine) Reset() {
	e.feed.Reset()
	e.broker = NewBrokerage(e.brokerCfg, e.cfg.Seed)
	e.orders.Reset()
	e.portfolio.Reset()
	e.currentPrices = make(map[string]float64)
	e.barsProcessed = 0
}
