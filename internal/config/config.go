// Package config loads backtest and brokerage configuration from YAML
// files (and environment overrides) for the CLI entrypoint. Library
// callers that construct backtest.BacktestConfig/BrokerageConfig
// programmatically never need this package.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sabdulrahuman/backtester/internal/backtest"
)

// Config is the on-disk shape of a backtester config file.
type Config struct {
	InitialCapital    float64 `mapstructure:"initial_capital" yaml:"initial_capital" json:"initial_capital"`
	Timeframe         string  `mapstructure:"timeframe" yaml:"timeframe" json:"timeframe"`
	RiskFreeRate      float64 `mapstructure:"risk_free_rate" yaml:"risk_free_rate" json:"risk_free_rate"`
	Seed              int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
	MakerFee          float64 `mapstructure:"maker_fee" yaml:"maker_fee" json:"maker_fee"`
	TakerFee          float64 `mapstructure:"taker_fee" yaml:"taker_fee" json:"taker_fee"`
	SlippageFixed     float64 `mapstructure:"slippage_fixed" yaml:"slippage_fixed" json:"slippage_fixed"`
	SlippagePct       float64 `mapstructure:"slippage_pct" yaml:"slippage_pct" json:"slippage_pct"`
	RealisticFills    bool    `mapstructure:"realistic_fills" yaml:"realistic_fills" json:"realistic_fills"`
	MarginRequirement float64 `mapstructure:"margin_requirement" yaml:"margin_requirement" json:"margin_requirement"`
	MaxLeverage       float64 `mapstructure:"max_leverage" yaml:"max_leverage" json:"max_leverage"`
}

// Default returns a Config populated from the engine's own defaults.
func Default() Config {
	bt := backtest.DefaultBacktestConfig()
	br := backtest.DefaultBrokerageConfig()
	return Config{
		InitialCapital:    bt.InitialCapital,
		Timeframe:         bt.Timeframe,
		RiskFreeRate:      bt.RiskFreeRate,
		Seed:              bt.Seed,
		MakerFee:          br.MakerFee,
		TakerFee:          br.TakerFee,
		SlippageFixed:     br.SlippageFixed,
		SlippagePct:       br.SlippagePct,
		RealisticFills:    br.RealisticFills,
		MarginRequirement: br.MarginRequirement,
		MaxLeverage:       br.MaxLeverage,
	}
}

// LoadFromFile reads a YAML config file, falling back to defaults for
// unset fields, with environment variables (BACKTESTER_ prefix)
// overriding file values.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKTESTER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Split converts a flat Config into the backtest package's two config
// structs, normalizing brokerage values (clamping negative fees and
// slippage) and returning any warnings produced.
func (c Config) Split() (backtest.BacktestConfig, backtest.BrokerageConfig, []*backtest.ConfigError) {
	bt := backtest.BacktestConfig{
		InitialCapital: c.InitialCapital,
		Timeframe:      c.Timeframe,
		RiskFreeRate:   c.RiskFreeRate,
		Seed:           c.Seed,
	}
	br := backtest.BrokerageConfig{
		MakerFee:          c.MakerFee,
		TakerFee:          c.TakerFee,
		SlippageFixed:     c.SlippageFixed,
		SlippagePct:       c.SlippagePct,
		RealisticFills:    c.RealisticFills,
		MarginRequirement: c.MarginRequirement,
		MaxLeverage:       c.MaxLeverage,
	}
	warnings := br.Normalize()
	return bt, br, warnings
}
