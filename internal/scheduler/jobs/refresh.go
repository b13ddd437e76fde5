// Package jobs holds the scheduled jobs: periodic refresh of cached
// fundamentals and retention cleanup of stale rows.
package jobs

import (
	"context"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/internal/fetch"
	"github.com/quantlab/fairval/pkg/logger"
)

// Inventory lists the cached universe.
type Inventory interface {
	Query(ctx context.Context, filter contracts.QueryFilter) ([]*contracts.StockRecord, error)
}

// Refresher refetches fundamentals for a batch.
type Refresher interface {
	Fetch(ctx context.Context, tickers []string, opts fetch.Options) map[string]*contracts.StockRecord
}

// RefreshJob refetches fundamentals for every cached ticker, bypassing
// the TTL so the whole universe is brought current.
type RefreshJob struct {
	inventory Inventory
	fetcher   Refresher
	schedule  string
	log       *logger.Logger
}

func NewRefreshJob(inventory Inventory, fetcher Refresher, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		inventory: inventory,
		fetcher:   fetcher,
		schedule:  "0 0 6 * * *", // daily at 06:00
		log:       log,
	}
}

func (j *RefreshJob) Name() string {
	return "fundamentals_refresh"
}

func (j *RefreshJob) Schedule() string {
	return j.schedule
}

func (j *RefreshJob) Run(ctx context.Context) error {
	cached, err := j.inventory.Query(ctx, contracts.QueryFilter{})
	if err != nil {
		return err
	}
	if len(cached) == 0 {
		j.log.Debug("no cached tickers to refresh")
		return nil
	}

	tickers := make([]string, 0, len(cached))
	for _, rec := range cached {
		tickers = append(tickers, rec.Ticker)
	}

	refreshed := j.fetcher.Fetch(ctx, tickers, fetch.Options{SkipCache: true})

	j.log.WithFields(map[string]interface{}{
		"cached":    len(tickers),
		"refreshed": len(refreshed),
	}).Info("fundamentals refresh finished")
	return nil
}
