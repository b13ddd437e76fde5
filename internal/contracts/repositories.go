package contracts

import (
	"context"
	"time"
)

// StockRepository is the persistent store for stock records, keyed by
// ticker symbol.
type StockRepository interface {
	// Get returns the stored record, or (nil, nil) when the ticker has
	// never been cached.
	Get(ctx context.Context, ticker string) (*StockRecord, error)

	// Upsert stores the full record, replacing any existing row for the
	// same ticker and stamping the refresh time.
	Upsert(ctx context.Context, record *StockRecord) error

	// SaveIntrinsicValue updates only the derived intrinsic value.
	SaveIntrinsicValue(ctx context.Context, ticker string, value float64) error

	// SaveScore updates only the derived score.
	SaveScore(ctx context.Context, ticker string, score float64) error

	// SaveListing caches a screener discovery: sector and exchange only.
	// Existing fundamentals for the same ticker are left untouched.
	SaveListing(ctx context.Context, listing Listing) error

	// Query returns records matching the filter, in ticker order.
	Query(ctx context.Context, filter QueryFilter) ([]*StockRecord, error)

	// PurgeOlderThan deletes records last refreshed before the cutoff
	// and returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueryFilter narrows a repository query. Zero-value fields are ignored.
type QueryFilter struct {
	Tickers []string
	Sectors []string
	MinFCF  *float64
}

// MarketData is the remote market-data source. Implementations return an
// error for a symbol-level failure; the fetch layer decides what that
// means for the batch.
type MarketData interface {
	// Fundamentals looks up current fundamentals for one ticker. Fields
	// absent upstream come back nil, not zero.
	Fundamentals(ctx context.Context, ticker string) (*StockRecord, error)

	// Screen lists symbols in the given sectors, up to limit.
	Screen(ctx context.Context, sectors []string, limit int) ([]Listing, error)
}
