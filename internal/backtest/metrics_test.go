package backtest

import (
	"math"
	"testing"
)

func TestPeriodsPerYearTable(t *testing.T) {
	cases := map[string]float64{
		"1m":  525600,
		"5m":  105120,
		"15m": 35040,
		"1h":  8760,
		"4h":  2190,
		"1d":  365,
		"1w":  52,
	}
	for tf, want := range cases {
		got, warn := periodsPerYear(tf)
		if warn != nil {
			t.Fatalf("unexpected warning for known timeframe %q", tf)
		}
		if got != want {
			t.Fatalf("timeframe %q: want %v got %v", tf, want, got)
		}
	}
}

func TestUnknownTimeframeFallsBackToDaily(t *testing.T) {
	got, warn := periodsPerYear("bogus")
	if warn == nil {
		t.Fatal("expected a warning for unknown timeframe")
	}
	if got != 365 {
		t.Fatalf("expected fallback to 365, got %v", got)
	}
}

func TestMaxDrawdownConcreteScenario(t *testing.T) {
	curve := equityCurveFrom([]float64{100, 110, 90, 95})
	calc := NewMetricsCalculator(0, "1d")
	m := calc.Calculate(curve, TradeStats{})

	want := 18.18
	got := m.MaxDrawdown * 100
	if math.Abs(got-want) > 0.01 {
		t.Fatalf("expected Metrics.MaxDrawdown ~%.2f%%, got %.2f%%", want, got)
	}
	if m.MaxDrawdown <= 0 {
		t.Fatal("expected a nonzero max drawdown")
	}
	if wantCalmar := m.AnnualizedReturn / m.MaxDrawdown; m.Calmar != wantCalmar {
		t.Fatalf("expected Calmar = annualized return / max drawdown (%v), got %v", wantCalmar, m.Calmar)
	}
}

func TestCalculateReturnsZeroValueForShortCurve(t *testing.T) {
	calc := NewMetricsCalculator(0.02, "1d")
	m := calc.Calculate(equityCurveFrom([]float64{100}), TradeStats{})
	if m.TotalReturn != 0 || m.Sharpe != 0 || m.MaxDrawdown != 0 {
		t.Fatalf("expected zero-valued metrics for <2 equity points, got %+v", m)
	}
}

func TestTotalReturnMatchesSimpleGrowth(t *testing.T) {
	calc := NewMetricsCalculator(0, "1d")
	m := calc.Calculate(equityCurveFrom([]float64{100, 150}), TradeStats{})
	if math.Abs(m.TotalReturn-50) > 1e-9 {
		t.Fatalf("expected total return 50%%, got %v", m.TotalReturn)
	}
}

func TestVolatilityIsPopulationNotSample(t *testing.T) {
	// Population variance divides by n, not n-1: this distinguishes the
	// two for a 2-return series, where sample variance would differ.
	returns := periodReturns([]float64{100, 110, 99})
	got := populationVolatility(returns)
	r1, r2 := 0.10, 99.0/110.0-1
	m := (r1 + r2) / 2
	expected := math.Sqrt(((r1-m)*(r1-m) + (r2-m)*(r2-m)) / 2)
	if math.Abs(got-expected) > 1e-9 {
		t.Fatalf("expected population volatility %v, got %v", expected, got)
	}
}

func TestValueAtRiskUsesFifthPercentileTail(t *testing.T) {
	returns := []float64{-0.05, -0.03, -0.01, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07}
	var95, cvar95 := valueAtRisk(returns)
	if var95 != 0.05 {
		t.Fatalf("expected VaR95 0.05, got %v", var95)
	}
	if cvar95 != 0.05 {
		t.Fatalf("expected CVaR95 0.05 over single-element tail, got %v", cvar95)
	}
}

func TestBetaFallsBackToOneWithNoVariance(t *testing.T) {
	strategy := []float64{0.01, 0.02, 0.03}
	benchmark := []float64{0.01, 0.01, 0.01}
	b := beta(strategy, benchmark)
	if b != 1.0 {
		t.Fatalf("expected beta fallback 1.0, got %v", b)
	}
}
