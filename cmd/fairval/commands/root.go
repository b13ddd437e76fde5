// Package commands implements the fairval CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fairval",
	Short: "Fair-value equity screener",
	Long: `fairval - fair-value equity screener

Fetches fundamentals with a TTL-backed cache, computes blended
intrinsic values (DCF, growth-adjusted multiple, external estimate)
and ranks tickers by upside.

Examples:
  fairval analyze AAPL MSFT GOOG
  fairval analyze --count 20 --sectors Technology,Healthcare
  fairval tickers --count 10 --exchange NASDAQ
  fairval sectors list
  fairval serve`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
