package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/fairval/internal/fetch"
)

var fetchSkipCache bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <tickers...>",
	Short: "Fetch and cache fundamentals for tickers",
	Long: `Fetches fundamentals through the TTL-backed cache and prints what
was resolved. Tickers that fail to fetch or validate are simply absent
from the output.

Examples:
  fairval fetch AAPL MSFT
  fairval fetch AAPL --skip-cache`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchSkipCache, "skip-cache", false, "bypass the cache and refetch")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records := a.fetcher.Fetch(ctx, args, fetch.Options{SkipCache: fetchSkipCache})
	if len(records) == 0 {
		fmt.Println("no tickers resolved")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPRICE\tSHARES\tFCF\tEPS\tSECTOR\tUPDATED")
	for _, ticker := range args {
		rec, ok := records[ticker]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Ticker,
			fmtFloat(rec.Price),
			fmtFloat(rec.Shares),
			fmtFloat(rec.FCF),
			fmtFloat(rec.EPS),
			rec.SectorName(),
			rec.UpdatedAt.Format(time.RFC3339),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nresolved %d of %d tickers\n", len(records), len(args))
	return nil
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
