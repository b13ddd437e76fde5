package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/internal/fetch"
	"github.com/quantlab/fairval/pkg/logger"
)

type fakeInventory struct {
	records []*contracts.StockRecord
	err     error
}

func (f *fakeInventory) Query(context.Context, contracts.QueryFilter) ([]*contracts.StockRecord, error) {
	return f.records, f.err
}

type fakeRefresher struct {
	tickers  []string
	lastOpts fetch.Options
}

func (f *fakeRefresher) Fetch(_ context.Context, tickers []string, opts fetch.Options) map[string]*contracts.StockRecord {
	f.tickers = tickers
	f.lastOpts = opts
	out := make(map[string]*contracts.StockRecord, len(tickers))
	for _, t := range tickers {
		out[t] = &contracts.StockRecord{Ticker: t}
	}
	return out
}

type fakePurger struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.removed, f.err
}

func TestRefreshJob_BypassesCacheForWholeUniverse(t *testing.T) {
	inv := &fakeInventory{records: []*contracts.StockRecord{
		{Ticker: "AAPL"},
		{Ticker: "MSFT"},
	}}
	fetcher := &fakeRefresher{}
	job := NewRefreshJob(inv, fetcher, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"AAPL", "MSFT"}, fetcher.tickers)
	assert.True(t, fetcher.lastOpts.SkipCache)
}

func TestRefreshJob_EmptyCacheIsNoop(t *testing.T) {
	fetcher := &fakeRefresher{}
	job := NewRefreshJob(&fakeInventory{}, fetcher, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, fetcher.tickers)
}

func TestRefreshJob_QueryErrorPropagates(t *testing.T) {
	inv := &fakeInventory{err: errors.New("db down")}
	job := NewRefreshJob(inv, &fakeRefresher{}, logger.NewNop())

	assert.Error(t, job.Run(context.Background()))
}

func TestRetentionJob_PurgesBeforeCutoff(t *testing.T) {
	purger := &fakePurger{removed: 7}
	job := NewRetentionJob(purger, 30, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, purger.cutoff, 5*time.Second)
}

func TestRetentionJob_PurgeErrorPropagates(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	job := NewRetentionJob(purger, 30, logger.NewNop())

	assert.Error(t, job.Run(context.Background()))
}
