package backtest

// BacktestConfig controls the engine's overall simulation parameters.
type BacktestConfig struct {
	InitialCapital float64
	Timeframe      string
	RiskFreeRate   float64
	Seed           int64
}

// BrokerageConfig controls fee, slippage, and margin behavior.
type BrokerageConfig struct {
	MakerFee          float64
	TakerFee          float64
	SlippageFixed     float64
	SlippagePct       float64
	RealisticFills    bool
	MarginRequirement float64
	MaxLeverage       float64
}

// DefaultBacktestConfig mirrors the reference implementation's defaults.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital: 100_000,
		Timeframe:      "1h",
		RiskFreeRate:   0.02,
		Seed:           1,
	}
}

// DefaultBrokerageConfig mirrors the reference implementation's defaults.
func DefaultBrokerageConfig() BrokerageConfig {
	return BrokerageConfig{
		MakerFee:          0.001,
		TakerFee:          0.001,
		SlippageFixed:     0.0,
		SlippagePct:       0.0005,
		RealisticFills:    true,
		MarginRequirement: 1.0,
		MaxLeverage:       1.0,
	}
}

// Normalize clamps invalid brokerage values (negative fees or slippage),
// returning a ConfigError warning for each field it had to clamp so the
// caller can log it.
func (c *BrokerageConfig) Normalize() []*ConfigError {
	var warnings []*ConfigError
	clamp := func(name string, v *float64) {
		if *v < 0 {
			warnings = append(warnings, &ConfigError{
				Reason:  name + " was negative, clamped to 0",
				Warning: true,
			})
			*v = 0
		}
	}
	clamp("maker_fee", &c.MakerFee)
	clamp("taker_fee", &c.TakerFee)
	clamp("slippage_fixed", &c.SlippageFixed)
	clamp("slippage_pct", &c.SlippagePct)
	return warnings
}

// periodsPerYear maps a timeframe string to the number of bars per year
// used to annualize returns and volatility. Unknown timeframes fall back
// to the daily rate (365) with a ConfigError warning.
func periodsPerYear(timeframe string) (float64, *ConfigError) {
	switch timeframe {
	case "1m":
		return 365 * 24 * 60, nil
	case "5m":
		return 365 * 24 * 12, nil
	case "15m":
		return 365 * 24 * 4, nil
	case "1h":
		return 365 * 24, nil
	case "4h":
		return 365 * 6, nil
	case "1d":
		return 365, nil
	case "1w":
		return 52, nil
	default:
		return 365, &ConfigError{Reason: "unknown timeframe " + timeframe + ", defaulting to 365 periods/year", Warning: true}
	}
}
