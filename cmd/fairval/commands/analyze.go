package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/fairval/internal/analysis"
	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/internal/report"
	"github.com/quantlab/fairval/internal/selection"
)

var (
	analyzeSectors   []string
	analyzeExchange  string
	analyzeCount     int
	analyzeMaxPE     float64
	analyzeExcludePE bool
	analyzeSkipCache bool
	analyzeCSVDir    string
	analyzeGroup     bool
	analyzeSummary   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tickers...]",
	Short: "Rank tickers by fair-value upside",
	Long: `Fetches fundamentals, computes blended intrinsic values and prints
a ranked table. With no ticker arguments, --count selects candidates
from the cached inventory and the remote screener.

Examples:
  fairval analyze AAPL MSFT GOOG
  fairval analyze AAPL MSFT --max-pe 30 --exclude-negative-pe
  fairval analyze --count 20 --sectors Technology --exchange NASDAQ
  fairval analyze AAPL MSFT --csv-dir ./out --group`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeSectors, "sectors", nil, "sectors to select from and group results by")
	analyzeCmd.Flags().StringVar(&analyzeExchange, "exchange", "", "preferred exchange when selecting tickers")
	analyzeCmd.Flags().IntVar(&analyzeCount, "count", 0, "number of tickers to select when none are given")
	analyzeCmd.Flags().Float64Var(&analyzeMaxPE, "max-pe", 0, "drop tickers whose P/E exceeds this")
	analyzeCmd.Flags().BoolVar(&analyzeExcludePE, "exclude-negative-pe", false, "drop tickers with non-positive P/E")
	analyzeCmd.Flags().BoolVar(&analyzeSkipCache, "skip-cache", false, "bypass the cache and refetch everything")
	analyzeCmd.Flags().StringVar(&analyzeCSVDir, "csv-dir", "", "also export results as CSV under this directory")
	analyzeCmd.Flags().BoolVar(&analyzeGroup, "group", false, "group output by sector")
	analyzeCmd.Flags().BoolVar(&analyzeSummary, "summary", false, "print per-sector summary metrics")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := args
	if len(tickers) == 0 {
		if analyzeCount <= 0 {
			return fmt.Errorf("give ticker arguments or --count to select candidates")
		}
		seed, err := a.settings.Seed()
		if err != nil {
			return fmt.Errorf("failed to resolve shuffle seed: %w", err)
		}
		tickers, err = a.selector.Select(ctx, selection.Options{
			Count:    analyzeCount,
			Sectors:  analyzeSectors,
			Exchange: analyzeExchange,
			Seed:     &seed,
		})
		if err != nil {
			return fmt.Errorf("ticker selection failed: %w", err)
		}
		if len(tickers) == 0 {
			fmt.Println("no candidate tickers found")
			return nil
		}
	}

	opts := analysis.Options{SkipCache: analyzeSkipCache}
	opts.Filter.ExcludeNegativePE = analyzeExcludePE
	if cmd.Flags().Changed("max-pe") {
		opts.Filter.MaxPE = &analyzeMaxPE
	}

	if analyzeGroup && len(analyzeSectors) > 0 {
		groups := a.analyzer.AnalyzeBySector(ctx, tickers, analyzeSectors, opts)
		for _, sector := range analyzeSectors {
			fmt.Printf("\n=== %s ===\n", sector)
			if err := report.Console(os.Stdout, groups[sector]); err != nil {
				return err
			}
		}
		if analyzeCSVDir != "" {
			var flat []contracts.AnalysisResult
			for _, rows := range groups {
				flat = append(flat, rows...)
			}
			paths, err := report.WriteCSV(analyzeCSVDir, flat, true)
			if err != nil {
				return fmt.Errorf("CSV export failed: %w", err)
			}
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
		}
		return nil
	}

	results := a.analyzer.Analyze(ctx, tickers, opts)
	if len(results) == 0 {
		fmt.Println("no tickers passed the filters")
		return nil
	}

	if err := report.Console(os.Stdout, results); err != nil {
		return err
	}
	if analyzeSummary {
		fmt.Println()
		if err := report.SummaryTable(os.Stdout, results); err != nil {
			return err
		}
	}
	if analyzeCSVDir != "" {
		paths, err := report.WriteCSV(analyzeCSVDir, results, analyzeGroup)
		if err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
	}
	return nil
}
