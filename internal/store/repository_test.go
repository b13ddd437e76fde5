package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/fairval/internal/contracts"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(context.Background(), pool))

	// Clean slate for each test
	_, err = pool.Exec(context.Background(), `DELETE FROM stock_data`)
	require.NoError(t, err)

	return NewRepository(pool)
}

func TestRepository_GetAbsent(t *testing.T) {
	repo := testRepo(t)

	rec, err := repo.Get(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRepository_UpsertAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rec := &contracts.StockRecord{
		Ticker: "AAPL",
		Price:  contracts.Float64(150),
		Shares: contracts.Float64(1e9),
		FCF:    contracts.Float64(10e9),
		Sector: contracts.String("Technology"),
		EPS:    contracts.Float64(5.0),
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 150.0, *got.Price)
	assert.Equal(t, "Technology", *got.Sector)
	assert.Nil(t, got.GrowthRate)
	assert.Nil(t, got.IntrinsicValue)
	assert.WithinDuration(t, time.Now().UTC(), got.UpdatedAt, 5*time.Second)

	// Replace-on-conflict: second upsert overwrites, including nulling
	// fields the new record lacks.
	rec2 := &contracts.StockRecord{
		Ticker: "AAPL",
		Price:  contracts.Float64(160),
		Shares: contracts.Float64(1e9),
	}
	require.NoError(t, repo.Upsert(ctx, rec2))

	got, err = repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 160.0, *got.Price)
	assert.Nil(t, got.FCF)
}

func TestRepository_DerivedFieldUpdates(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &contracts.StockRecord{
		Ticker: "MSFT",
		Price:  contracts.Float64(400),
	}))

	require.NoError(t, repo.SaveIntrinsicValue(ctx, "MSFT", 450.5))
	require.NoError(t, repo.SaveScore(ctx, "MSFT", 1.126))

	got, err := repo.Get(ctx, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, got.IntrinsicValue)
	require.NotNil(t, got.Score)
	assert.Equal(t, 450.5, *got.IntrinsicValue)
	assert.Equal(t, 1.126, *got.Score)
	// Full record fields untouched
	assert.Equal(t, 400.0, *got.Price)
}

func TestRepository_SaveListing(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	// Listing for a ticker with cached fundamentals must not wipe them
	require.NoError(t, repo.Upsert(ctx, &contracts.StockRecord{
		Ticker: "XOM",
		Price:  contracts.Float64(110),
		FCF:    contracts.Float64(30e9),
	}))

	require.NoError(t, repo.SaveListing(ctx, contracts.Listing{
		Symbol:   "XOM",
		Sector:   "Energy",
		Exchange: "NYSE",
	}))

	got, err := repo.Get(ctx, "XOM")
	require.NoError(t, err)
	assert.Equal(t, "Energy", *got.Sector)
	assert.Equal(t, "NYSE", *got.Exchange)
	assert.Equal(t, 110.0, *got.Price)

	// Fresh discovery creates a bare row
	require.NoError(t, repo.SaveListing(ctx, contracts.Listing{
		Symbol:   "CVX",
		Sector:   "Energy",
		Exchange: "NYSE",
	}))

	got, err = repo.Get(ctx, "CVX")
	require.NoError(t, err)
	assert.Nil(t, got.Price)
	assert.Equal(t, "Energy", *got.Sector)
}

func TestRepository_Query(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	seed := []*contracts.StockRecord{
		{Ticker: "AAPL", Sector: contracts.String("Technology"), FCF: contracts.Float64(10e9)},
		{Ticker: "MSFT", Sector: contracts.String("Technology"), FCF: contracts.Float64(60e9)},
		{Ticker: "XOM", Sector: contracts.String("Energy"), FCF: contracts.Float64(30e9)},
		{Ticker: "ZZZ", Sector: contracts.String("Energy")},
	}
	for _, rec := range seed {
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	bySector, err := repo.Query(ctx, contracts.QueryFilter{Sectors: []string{"Technology"}})
	require.NoError(t, err)
	require.Len(t, bySector, 2)
	assert.Equal(t, "AAPL", bySector[0].Ticker) // ticker order
	assert.Equal(t, "MSFT", bySector[1].Ticker)

	byTicker, err := repo.Query(ctx, contracts.QueryFilter{Tickers: []string{"XOM"}})
	require.NoError(t, err)
	require.Len(t, byTicker, 1)

	minFCF := 25e9
	byFCF, err := repo.Query(ctx, contracts.QueryFilter{MinFCF: &minFCF})
	require.NoError(t, err)
	require.Len(t, byFCF, 2) // MSFT, XOM; ZZZ has NULL fcf and is excluded

	all, err := repo.Query(ctx, contracts.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRepository_PurgeOlderThan(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &contracts.StockRecord{Ticker: "OLD"}))
	require.NoError(t, repo.Upsert(ctx, &contracts.StockRecord{Ticker: "NEW"}))

	// Backdate one row
	_, err := repo.pool.Exec(ctx,
		`UPDATE stock_data SET updated_at = $1 WHERE ticker = 'OLD'`,
		time.Now().UTC().Add(-48*time.Hour),
	)
	require.NoError(t, err)

	deleted, err := repo.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rec, err := repo.Get(ctx, "OLD")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = repo.Get(ctx, "NEW")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}
