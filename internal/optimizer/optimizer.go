// Package optimizer fans a batch of independent backtest runs out across
// goroutines. It is a thin execution harness, not a parameter-search
// algorithm: callers supply the list of configurations to run (e.g. from
// a grid or random sampler they own) and this package runs them
// concurrently, each against its own engine, portfolio, and seed.
package optimizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sabdulrahuman/backtester/internal/backtest"
)

// Run is one engine configuration to execute.
type Run struct {
	ID        string
	Config    backtest.BacktestConfig
	BrokerCfg backtest.BrokerageConfig
	Feed      *backtest.DataFeed
	Signals   map[backtest.SignalKey]int
}

// RunResult pairs a Run's identity with its outcome. Err is set if the
// run panicked; Result is the zero value in that case.
type RunResult struct {
	ID     string
	Result backtest.Result
	Err    error
}

// Sweep executes every run concurrently, bounded by maxWorkers in-flight
// at once, and returns one RunResult per input Run in input order. Each
// Run gets its own Engine with a private Brokerage, OrderManager, and
// Portfolio; the DataFeed may be shared between runs and is only read.
func Sweep(ctx context.Context, runs []Run, maxWorkers int) []RunResult {
	results := make([]RunResult, len(runs))
	g, _ := errgroup.WithContext(ctx)
	if maxWorkers > 0 {
		g.SetLimit(maxWorkers)
	}

	for i, r := range runs {
		i, r := i, r
		g.Go(func() (err error) {
			id := r.ID
			if id == "" {
				id = uuid.NewString()
			}
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = RunResult{ID: id, Err: fmt.Errorf("run %s panicked: %v", id, rec)}
				}
			}()
			eng := backtest.NewEngine(r.Config, r.BrokerCfg, r.Feed)
			result := eng.Run(r.Signals)
			results[i] = RunResult{ID: id, Result: result}
			return nil
		})
	}
	// Sweep never returns an error itself: one run panicking is captured
	// in its own RunResult.Err rather than aborting the rest of the batch.
	_ = g.Wait()
	return results
}
