package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge cached records older than the retention window",
	Long: `Deletes records last refreshed before the retention cutoff. Purged
tickers are refetched on next demand.

Examples:
  fairval cleanup
  fairval cleanup --days 7`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention window in days (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	days := cleanupDays
	if days <= 0 {
		days = a.cfg.Cache.RetentionDays
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	removed, err := a.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("removed %d records older than %d days\n", removed, days)
	return nil
}
