package backtest

import (
	"math"
	"sort"
)

// Metrics is the full set of risk-adjusted performance figures computed
// from an equity curve and its trade ledger.
type Metrics struct {
	TotalReturn         float64    `json:"total_return"`
	AnnualizedReturn    float64    `json:"annualized_return"`
	PeriodReturn        float64    `json:"period_return"`
	Volatility          float64    `json:"volatility"`
	DownsideVolatility  float64    `json:"downside_volatility"`
	MaxDrawdown         float64    `json:"max_drawdown"`
	MaxDrawdownDuration int        `json:"max_drawdown_duration"`
	Sharpe              float64    `json:"sharpe_ratio"`
	Sortino             float64    `json:"sortino_ratio"`
	Calmar              float64    `json:"calmar_ratio"`
	VaR95               float64    `json:"var_95"`
	CVaR95              float64    `json:"cvar_95"`
	Alpha               float64    `json:"alpha"`
	Beta                float64    `json:"beta"`
	InformationRatio    float64    `json:"information_ratio"`
	Treynor             float64    `json:"treynor_ratio"`
	Trades              TradeStats `json:"trade_stats"`
}

// MetricsCalculator computes Metrics for a given risk-free rate and
// timeframe. periodsPerYear annualizes per-period returns and volatility.
type MetricsCalculator struct {
	riskFreeRate   float64
	periodsPerYear float64
}

// NewMetricsCalculator resolves timeframe to a periods-per-year rate,
// falling back to the daily rate (logged as a warning) for unknown
// strings.
func NewMetricsCalculator(riskFreeRate float64, timeframe string) *MetricsCalculator {
	ppy, warn := periodsPerYear(timeframe)
	if warn != nil {
		warnConfigFallback("timeframe", timeframe, "365 periods/year")
	}
	return &MetricsCalculator{riskFreeRate: riskFreeRate, periodsPerYear: ppy}
}

// Calculate computes Metrics from an equity curve and trade stats. Fewer
// than two equity points yields a Metrics whose computed figures are all
// zero (only Trades is filled in) rather than an error — there isn't
// enough data to compute a single return.
func (c *MetricsCalculator) Calculate(curve []EquityPoint, stats TradeStats) Metrics {
	if len(curve) < 2 {
		return Metrics{Trades: stats}
	}

	equities := make([]float64, len(curve))
	for i, p := range curve {
		equities[i] = p.Equity
	}
	returns := periodReturns(equities)

	totalReturn := (equities[len(equities)-1]/equities[0] - 1) * 100
	nPeriods := float64(len(equities))
	annualReturn := annualizeReturn(totalReturn/100, nPeriods, c.periodsPerYear)
	periodReturn := annualReturn / 12

	volatility := populationVolatility(returns) * math.Sqrt(c.periodsPerYear)
	downsideVol := downsideVolatility(returns) * math.Sqrt(c.periodsPerYear)

	maxDD, maxDDDuration := maxDrawdown(curve)

	sharpe := sharpeRatio(returns, c.riskFreeRate, c.periodsPerYear, volatility)
	sortino := sharpeRatio(returns, c.riskFreeRate, c.periodsPerYear, downsideVol)

	var calmar float64
	if maxDD > 0 {
		calmar = annualReturn / maxDD
	}

	var95, cvar95 := valueAtRisk(returns)

	return Metrics{
		TotalReturn:         totalReturn,
		AnnualizedReturn:    annualReturn,
		PeriodReturn:        periodReturn,
		Volatility:          volatility,
		DownsideVolatility:  downsideVol,
		MaxDrawdown:         maxDD,
		MaxDrawdownDuration: maxDDDuration,
		Sharpe:              sharpe,
		Sortino:             sortino,
		Calmar:              calmar,
		VaR95:               var95,
		CVaR95:              cvar95,
		Trades:              stats,
	}
}

// CalculateWithBenchmark computes Calculate's result plus the
// benchmark-relative block (alpha, beta, information ratio, Treynor
// ratio) against a parallel series of per-period benchmark returns. The
// two return series must be the same length; a mismatch leaves the
// benchmark-relative fields zeroed.
func (c *MetricsCalculator) CalculateWithBenchmark(curve []EquityPoint, stats TradeStats, benchmarkReturns []float64) Metrics {
	m := c.Calculate(curve, stats)
	if len(curve) < 2 {
		return m
	}
	equities := make([]float64, len(curve))
	for i, p := range curve {
		equities[i] = p.Equity
	}
	strategyReturns := periodReturns(equities)
	if len(strategyReturns) != len(benchmarkReturns) || len(strategyReturns) == 0 {
		return m
	}

	betaVal := beta(strategyReturns, benchmarkReturns)
	annualizedStrategy := m.AnnualizedReturn
	annualizedBenchmark := annualizeReturn(sumReturn(benchmarkReturns), float64(len(benchmarkReturns)), c.periodsPerYear)

	alpha := annualizedStrategy - (c.riskFreeRate + betaVal*(annualizedBenchmark-c.riskFreeRate))

	tracking := make([]float64, len(strategyReturns))
	for i := range strategyReturns {
		tracking[i] = strategyReturns[i] - benchmarkReturns[i]
	}
	trackingVol := populationVolatility(tracking) * math.Sqrt(c.periodsPerYear)
	var infoRatio float64
	if trackingVol > 0 {
		infoRatio = (mean(tracking) * c.periodsPerYear) / trackingVol
	}

	var treynor float64
	if math.Abs(betaVal) > 0.001 {
		treynor = (annualizedStrategy - c.riskFreeRate) / betaVal
	}

	m.Alpha = alpha
	m.Beta = betaVal
	m.InformationRatio = infoRatio
	m.Treynor = treynor
	return m
}

func periodReturns(equities []float64) []float64 {
	if len(equities) < 2 {
		return nil
	}
	out := make([]float64, len(equities)-1)
	for i := 1; i < len(equities); i++ {
		if equities[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = equities[i]/equities[i-1] - 1
	}
	return out
}

func sumReturn(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1 + r
	}
	return total - 1
}

// annualizeReturn converts a total return over nPeriods periods to an
// annualized rate: (1+totalReturn)^(periodsPerYear/nPeriods) - 1.
func annualizeReturn(totalReturn, nPeriods, periodsPerYear float64) float64 {
	if nPeriods == 0 {
		return 0
	}
	return math.Pow(1+totalReturn, periodsPerYear/nPeriods) - 1
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// populationVolatility is the population (not sample) standard deviation
// of xs: sqrt(sum((x-mean)^2) / n).
func populationVolatility(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func downsideVolatility(returns []float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	return populationVolatility(negative)
}

func sharpeRatio(returns []float64, riskFreeRate, periodsPerYear, volatility float64) float64 {
	if len(returns) == 0 || volatility == 0 {
		return 0
	}
	return (mean(returns)*periodsPerYear - riskFreeRate) / volatility
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// fraction of the peak (0.1818 for an 18.18% decline, not 18.18 or an
// absolute currency amount), and the number of bars it spanned. The
// fractional scale matches AnnualizedReturn so Calmar's division is
// unit-consistent.
func maxDrawdown(curve []EquityPoint) (float64, int) {
	peak := curve[0].Equity
	peakIdx := 0
	var maxDD float64
	var maxDuration int
	for i, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
			peakIdx = i
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Equity) / peak
		if dd > maxDD {
			maxDD = dd
			maxDuration = i - peakIdx
		}
	}
	return maxDD, maxDuration
}

// valueAtRisk returns the 5th-percentile VaR and the mean of the tail at
// or below it (CVaR), both reported as positive magnitudes.
func valueAtRisk(returns []float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.05)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	var95 := math.Abs(sorted[idx])
	tail := sorted[:idx+1]
	cvar95 := math.Abs(mean(tail))
	return var95, cvar95
}

// beta is cov(strategy, benchmark) / var(benchmark), falling back to 1.0
// when the benchmark has no variance.
func beta(strategy, benchmark []float64) float64 {
	mb := mean(benchmark)
	ms := mean(strategy)
	var cov, varB float64
	for i := range strategy {
		db := benchmark[i] - mb
		cov += (strategy[i] - ms) * db
		varB += db * db
	}
	if varB == 0 {
		return 1.0
	}
	return cov / varB
}
