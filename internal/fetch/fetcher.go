package fetch

import (
	"context"
	"time"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/pkg/logger"
)

// Fetcher returns stock records from the cache when they are fresh and
// complete, and refreshes them from the market data API otherwise.
type Fetcher struct {
	repo   contracts.StockRepository
	api    contracts.MarketData
	ttl    time.Duration
	logger *logger.Logger

	// now is swappable in tests
	now func() time.Time
}

// Options controls one fetch batch. The zero value means: default
// required fields, cache enabled.
type Options struct {
	// RequiredFields a record must carry to count as complete; both for
	// accepting a cached record and for validating a fresh fetch.
	// Defaults to price, shares and free cash flow.
	RequiredFields []contracts.Field

	// SkipCache forces a remote refresh for every symbol.
	SkipCache bool
}

// New creates a Fetcher. ttl is the cache-duration window: a cached
// record exactly at the boundary counts as expired.
func New(repo contracts.StockRepository, api contracts.MarketData, ttl time.Duration, log *logger.Logger) *Fetcher {
	return &Fetcher{
		repo:   repo,
		api:    api,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Fetch resolves records for a batch of tickers. Symbols that fail to
// fetch or validate are logged and simply absent from the result; one
// symbol's failure never aborts its siblings.
func (f *Fetcher) Fetch(ctx context.Context, tickers []string, opts Options) map[string]*contracts.StockRecord {
	required := opts.RequiredFields
	if len(required) == 0 {
		required = contracts.DefaultRequiredFields()
	}

	result := make(map[string]*contracts.StockRecord)
	var toFetch []string

	for _, ticker := range dedupe(tickers) {
		if opts.SkipCache {
			toFetch = append(toFetch, ticker)
			continue
		}

		cached, err := f.repo.Get(ctx, ticker)
		if err != nil {
			f.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Cache lookup failed, falling back to remote fetch")
			toFetch = append(toFetch, ticker)
			continue
		}

		if cached != nil && len(cached.MissingFields(required)) == 0 && f.isFresh(cached.UpdatedAt) {
			result[ticker] = cached
			continue
		}

		toFetch = append(toFetch, ticker)
	}

	for _, ticker := range toFetch {
		rec := f.fetchOne(ctx, ticker, required)
		if rec != nil {
			result[ticker] = rec
		}
	}

	return result
}

// fetchOne refreshes a single symbol. Returns nil when the symbol is
// skipped for this run.
func (f *Fetcher) fetchOne(ctx context.Context, ticker string, required []contracts.Field) *contracts.StockRecord {
	rec, err := f.api.Fundamentals(ctx, ticker)
	if err != nil {
		f.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Info("Error fetching data, symbol skipped")
		return nil
	}

	if missing := rec.MissingFields(required); len(missing) > 0 {
		f.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"missing": missing,
		}).Info("Missing required fields, symbol skipped")
		return nil
	}

	if err := f.repo.Upsert(ctx, rec); err != nil {
		f.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Error("Failed to persist record, symbol skipped")
		return nil
	}

	return rec
}

// isFresh applies the strict cache window: age must be strictly below
// the TTL, so a record exactly at the boundary is expired.
func (f *Fetcher) isFresh(updatedAt time.Time) bool {
	return f.now().UTC().Sub(updatedAt.UTC()) < f.ttl
}

// dedupe drops repeated symbols, keeping first-occurrence order.
func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
