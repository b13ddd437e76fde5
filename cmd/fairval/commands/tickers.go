package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/fairval/internal/selection"
)

var (
	tickersCount    int
	tickersSectors  []string
	tickersExchange string
	tickersSeed     int64
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Select candidate tickers from cache and screener",
	Long: `Builds a candidate ticker list from the cached inventory, topped up
from the remote screener when the cache runs short. The same --seed
yields the same list; without it the seed comes from the configured
seed mode.

Examples:
  fairval tickers --count 10 --sectors Technology
  fairval tickers --count 10 --exchange NASDAQ --seed 42`,
	RunE: runTickers,
}

func init() {
	rootCmd.AddCommand(tickersCmd)

	tickersCmd.Flags().IntVar(&tickersCount, "count", 10, "number of tickers to select")
	tickersCmd.Flags().StringSliceVar(&tickersSectors, "sectors", nil, "sectors to draw from")
	tickersCmd.Flags().StringVar(&tickersExchange, "exchange", "", "preferred exchange")
	tickersCmd.Flags().Int64Var(&tickersSeed, "seed", 0, "shuffle seed for reproducible selection")
}

func runTickers(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	seed := tickersSeed
	if !cmd.Flags().Changed("seed") {
		seed, err = a.settings.Seed()
		if err != nil {
			return fmt.Errorf("failed to resolve shuffle seed: %w", err)
		}
	}

	selected, err := a.selector.Select(ctx, selection.Options{
		Count:    tickersCount,
		Sectors:  tickersSectors,
		Exchange: tickersExchange,
		Seed:     &seed,
	})
	if err != nil {
		return fmt.Errorf("ticker selection failed: %w", err)
	}

	if len(selected) == 0 {
		fmt.Println("no candidate tickers found")
		return nil
	}
	for _, t := range selected {
		fmt.Println(t)
	}
	fmt.Printf("\nselected %d tickers (seed %d)\n", len(selected), seed)
	return nil
}
