// Command backtester runs or sweeps the backtesting engine from the
// command line: a single deterministic run against one bar/signal file,
// or a concurrent sweep across several seeded configurations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sabdulrahuman/backtester/internal/backtest"
	"github.com/sabdulrahuman/backtester/internal/config"
	"github.com/sabdulrahuman/backtester/internal/optimizer"
	"github.com/sabdulrahuman/backtester/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
	cfg        config.Config
)

// barsFile is the on-disk shape a run consumes: a per-symbol bar series
// plus a flat signal list, kept deliberately simple since data ingestion
// itself is out of scope — this is a convenience loader for exercising
// the engine, not a format the engine depends on.
type barsFile struct {
	Bars    map[string][]jsonBar `json:"bars"`
	Signals []jsonSignal         `json:"signals"`
}

type jsonBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// jsonSignal is a (timestamp, value) pair; it carries no symbol, since a
// signal applies to whichever symbol's bar lands on that timestamp.
type jsonSignal struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
}

func loadBarsFile(path string) (barsFile, error) {
	var bf barsFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return bf, &backtest.DataError{Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}
	if err := json.Unmarshal(raw, &bf); err != nil {
		return bf, &backtest.ParseError{Field: "bars_file", Value: path, Cause: err}
	}
	return bf, nil
}

func buildFeed(bf barsFile) (*backtest.DataFeed, error) {
	bars := make(map[string][]models.Bar, len(bf.Bars))
	for symbol, series := range bf.Bars {
		converted := make([]models.Bar, len(series))
		for i, b := range series {
			converted[i] = models.Bar{
				Timestamp: b.Timestamp, Open: b.Open, High: b.High,
				Low: b.Low, Close: b.Close, Volume: b.Volume,
			}
		}
		bars[symbol] = converted
	}
	return backtest.NewDataFeed(bars)
}

func buildSignals(bf barsFile) map[backtest.SignalKey]int {
	signals := make(map[backtest.SignalKey]int, len(bf.Signals))
	for _, s := range bf.Signals {
		signals[s.Timestamp] = s.Value
	}
	return signals
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "backtester",
		Short:   "Deterministic event-driven backtesting engine",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				cfg = config.Default()
				return nil
			}
			loaded, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults used if omitted)")
	root.AddCommand(newRunCmd(), newOptimizeCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest against a bar/signal file",
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := loadBarsFile(dataPath)
			if err != nil {
				return err
			}
			feed, err := buildFeed(bf)
			if err != nil {
				return err
			}
			btCfg, brokerCfg, warnings := cfg.Split()
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, w.Error())
			}
			engine := backtest.NewEngine(btCfg, brokerCfg, feed)
			result := engine.Run(buildSignals(bf))
			return json.NewEncoder(os.Stdout).Encode(result)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to a JSON bars/signals file")
	cmd.MarkFlagRequired("data")
	return cmd
}

func newOptimizeCmd() *cobra.Command {
	var dataPath string
	var seeds []int64
	var workers int
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run the same data through several seeded engines concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := loadBarsFile(dataPath)
			if err != nil {
				return err
			}
			feed, err := buildFeed(bf)
			if err != nil {
				return err
			}
			btCfg, brokerCfg, warnings := cfg.Split()
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, w.Error())
			}
			signals := buildSignals(bf)

			var runs []optimizer.Run
			for _, seed := range seeds {
				runCfg := btCfg
				runCfg.Seed = seed
				runs = append(runs, optimizer.Run{
					Config: runCfg, BrokerCfg: brokerCfg, Feed: feed, Signals: signals,
				})
			}
			results := optimizer.Sweep(context.Background(), runs, workers)
			return json.NewEncoder(os.Stdout).Encode(results)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to a JSON bars/signals file")
	cmd.Flags().Int64SliceVar(&seeds, "seed", []int64{1}, "seeds to run, one engine per seed")
	cmd.Flags().IntVar(&workers, "workers", 4, "maximum concurrent engines")
	cmd.MarkFlagRequired("data")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
