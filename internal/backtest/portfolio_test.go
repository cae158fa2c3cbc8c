package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

func TestProcessFillBuyUpdatesCashAndPosition(t *testing.T) {
	p := NewPortfolio(10000)
	f := Fill{Symbol: "AAA", Side: models.Buy, Quantity: 10, Price: 100, Commission: 1, Slippage: 0.5, Timestamp: time.Now()}
	p.ProcessFill(f)

	wantCash := 10000 - (10*100 + 1 + 0.5)
	if p.Cash != wantCash {
		t.Fatalf("expected cash %v, got %v", wantCash, p.Cash)
	}
	pos := p.Positions["AAA"]
	if pos.Quantity != 10 || pos.AveragePrice != 100 {
		t.Fatalf("expected position qty=10 avg=100, got qty=%v avg=%v", pos.Quantity, pos.AveragePrice)
	}
}

func TestRoundTripTradeClosesAndComputesPNL(t *testing.T) {
	p := NewPortfolio(10000)
	buy := Fill{Symbol: "AAA", Side: models.Buy, Quantity: 10, Price: 100, Commission: 1, Timestamp: time.Now()}
	sell := Fill{Symbol: "AAA", Side: models.Sell, Quantity: 10, Price: 110, Commission: 1, Timestamp: time.Now()}
	p.ProcessFill(buy)
	p.ProcessFill(sell)

	if len(p.Trades) != 1 {
		t.Fatalf("expected 1 trade record, got %d", len(p.Trades))
	}
	trade := p.Trades[0]
	if trade.Open {
		t.Fatal("expected trade closed after round trip")
	}
	wantPNL := (110.0-100.0)*10 - 1 - 1
	if math.Abs(trade.PNL-wantPNL) > 1e-9 {
		t.Fatalf("expected pnl %v, got %v", wantPNL, trade.PNL)
	}
	pos := p.Positions["AAA"]
	if !pos.isFlat() {
		t.Fatalf("expected flat position after full exit, got qty=%v", pos.Quantity)
	}
}

func TestPositionSnapsFlatWithinEpsilon(t *testing.T) {
	p := NewPortfolio(10000)
	buy := Fill{Symbol: "AAA", Side: models.Buy, Quantity: 10, Price: 100, Timestamp: time.Now()}
	sell := Fill{Symbol: "AAA", Side: models.Sell, Quantity: 10, Price: 100, Timestamp: time.Now()}
	p.ProcessFill(buy)
	p.ProcessFill(sell)
	pos := p.Positions["AAA"]
	if pos.Quantity != 0 || pos.AveragePrice != 0 || pos.CostBasis != 0 {
		t.Fatalf("expected fully-snapped-flat position, got %+v", pos)
	}
}

func TestEquityCurvePeakAndDrawdownAreMonotone(t *testing.T) {
	p := NewPortfolio(100)
	for _, equity := range []float64{100, 110, 90, 95} {
		p.Cash = equity
		p.RecordEquity(time.Now())
	}
	peak := 0.0
	for _, pt := range p.EquityCurve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if pt.Drawdown < 0 {
			t.Fatalf("drawdown must never be negative, got %v", pt.Drawdown)
		}
	}
	wantMaxDD := 110.0 - 90.0
	if math.Abs(p.maxDrawdown-wantMaxDD) > 1e-9 {
		t.Fatalf("expected max drawdown %v, got %v", wantMaxDD, p.maxDrawdown)
	}
	wantDDPct := wantMaxDD / 110.0 * 100
	if math.Abs(p.MaxDrawdownPct()-wantDDPct) > 1e-6 {
		t.Fatalf("expected max drawdown pct %v, got %v", wantDDPct, p.MaxDrawdownPct())
	}
}

func TestTradeStatsProfitFactorEdgeCases(t *testing.T) {
	p := NewPortfolio(10000)
	// All-winning trades: profit factor is +Inf.
	p.Trades = []*TradeRecord{
		{PNL: 10}, {PNL: 20},
	}
	stats := p.Stats()
	if !math.IsInf(stats.ProfitFactor, 1) {
		t.Fatalf("expected +Inf profit factor with no losses, got %v", stats.ProfitFactor)
	}

	// No trades at all: profit factor is 0.
	p2 := NewPortfolio(10000)
	stats2 := p2.Stats()
	if stats2.ProfitFactor != 0 {
		t.Fatalf("expected 0 profit factor with no trades, got %v", stats2.ProfitFactor)
	}
}

func TestCashConservationAcrossFills(t *testing.T) {
	p := NewPortfolio(10000)
	initial := p.Cash
	fills := []Fill{
		{Symbol: "AAA", Side: models.Buy, Quantity: 5, Price: 50, Commission: 0.5, Timestamp: time.Now()},
		{Symbol: "AAA", Side: models.Sell, Quantity: 5, Price: 55, Commission: 0.5, Timestamp: time.Now()},
	}
	var totalCost, totalProceeds, totalComm float64
	for _, f := range fills {
		if f.Side == models.Buy {
			totalCost += f.Quantity * f.Price
		} else {
			totalProceeds += f.Quantity * f.Price
		}
		totalComm += f.Commission
		p.ProcessFill(f)
	}
	wantCash := initial - totalCost + totalProceeds - totalComm
	if math.Abs(p.Cash-wantCash) > 1e-9 {
		t.Fatalf("cash not conserved: want %v got %v", wantCash, p.Cash)
	}
}
