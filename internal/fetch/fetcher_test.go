package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/pkg/logger"
)

// fakeRepo is an in-memory StockRepository.
type fakeRepo struct {
	records   map[string]*contracts.StockRecord
	getErr    error
	upsertErr error
	upserts   []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*contracts.StockRecord)}
}

func (r *fakeRepo) Get(_ context.Context, ticker string) (*contracts.StockRecord, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.records[ticker], nil
}

func (r *fakeRepo) Upsert(_ context.Context, rec *contracts.StockRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	rec.UpdatedAt = time.Now().UTC()
	r.records[rec.Ticker] = rec
	r.upserts = append(r.upserts, rec.Ticker)
	return nil
}

func (r *fakeRepo) SaveIntrinsicValue(context.Context, string, float64) error { return nil }
func (r *fakeRepo) SaveScore(context.Context, string, float64) error          { return nil }
func (r *fakeRepo) SaveListing(context.Context, contracts.Listing) error      { return nil }
func (r *fakeRepo) Query(context.Context, contracts.QueryFilter) ([]*contracts.StockRecord, error) {
	return nil, nil
}
func (r *fakeRepo) PurgeOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

// fakeAPI is a canned MarketData source.
type fakeAPI struct {
	records map[string]*contracts.StockRecord
	errs    map[string]error
	calls   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		records: make(map[string]*contracts.StockRecord),
		errs:    make(map[string]error),
	}
}

func (a *fakeAPI) Fundamentals(_ context.Context, ticker string) (*contracts.StockRecord, error) {
	a.calls = append(a.calls, ticker)
	if err, ok := a.errs[ticker]; ok {
		return nil, err
	}
	if rec, ok := a.records[ticker]; ok {
		cp := *rec
		return &cp, nil
	}
	return &contracts.StockRecord{Ticker: ticker}, nil
}

func (a *fakeAPI) Screen(context.Context, []string, int) ([]contracts.Listing, error) {
	return nil, nil
}

func completeRecord(ticker string, updatedAt time.Time) *contracts.StockRecord {
	return &contracts.StockRecord{
		Ticker:    ticker,
		Price:     contracts.Float64(100),
		Shares:    contracts.Float64(1e9),
		FCF:       contracts.Float64(5e9),
		Sector:    contracts.String("Technology"),
		EPS:       contracts.Float64(4),
		UpdatedAt: updatedAt,
	}
}

func TestFetch_FreshCacheSkipsRemote(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	cached := completeRecord("AAPL", now.Add(-time.Hour))
	repo.records["AAPL"] = cached

	f := New(repo, api, 24*time.Hour, logger.NewNop())
	f.now = func() time.Time { return now }

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})

	require.Contains(t, result, "AAPL")
	assert.Same(t, cached, result["AAPL"], "cached record returned verbatim")
	assert.Empty(t, api.calls, "no remote calls for fresh cache")
}

func TestFetch_TTLBoundaryIsExpired(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	// Exactly at the boundary: expired, must refetch
	repo.records["AAPL"] = completeRecord("AAPL", now.Add(-ttl))
	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, ttl, logger.NewNop())
	f.now = func() time.Time { return now }

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})

	require.Contains(t, result, "AAPL")
	assert.Equal(t, []string{"AAPL"}, api.calls)
}

func TestFetch_JustInsideTTLIsFresh(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour
	repo.records["AAPL"] = completeRecord("AAPL", now.Add(-ttl+time.Second))

	f := New(repo, api, ttl, logger.NewNop())
	f.now = func() time.Time { return now }

	f.Fetch(context.Background(), []string{"AAPL"}, Options{})
	assert.Empty(t, api.calls)
}

func TestFetch_IncompleteCacheRefetches(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	// Fresh but missing FCF
	rec := completeRecord("AAPL", time.Now().UTC())
	rec.FCF = nil
	repo.records["AAPL"] = rec
	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})
	require.Contains(t, result, "AAPL")
	assert.Equal(t, []string{"AAPL"}, api.calls)
}

func TestFetch_RequiredFieldsControlCompleteness(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	// Missing FCF does not matter when only price is required
	rec := completeRecord("AAPL", time.Now().UTC())
	rec.FCF = nil
	repo.records["AAPL"] = rec

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{
		RequiredFields: []contracts.Field{contracts.FieldPrice},
	})
	require.Contains(t, result, "AAPL")
	assert.Empty(t, api.calls)
}

func TestFetch_SkipCache(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	repo.records["AAPL"] = completeRecord("AAPL", time.Now().UTC())
	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	f.Fetch(context.Background(), []string{"AAPL"}, Options{SkipCache: true})
	assert.Equal(t, []string{"AAPL"}, api.calls)
}

func TestFetch_PerSymbolFailureDoesNotAbortBatch(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	api.errs["BAD"] = errors.New("connection refused")
	api.records["GOOD"] = completeRecord("GOOD", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"BAD", "GOOD"}, Options{})

	assert.NotContains(t, result, "BAD")
	require.Contains(t, result, "GOOD")
	assert.Equal(t, []string{"GOOD"}, repo.upserts)
}

func TestFetch_InvalidSymbolNotPersisted(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	// Remote returns a record lacking shares and fcf
	api.records["THIN"] = &contracts.StockRecord{
		Ticker: "THIN",
		Price:  contracts.Float64(10),
	}

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"THIN"}, Options{})

	assert.NotContains(t, result, "THIN")
	assert.Empty(t, repo.upserts, "invalid records are not persisted")
}

func TestFetch_ValidSymbolPersistedBeforeReturn(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})

	require.Contains(t, result, "AAPL")
	assert.Equal(t, []string{"AAPL"}, repo.upserts)
	assert.NotNil(t, repo.records["AAPL"])
}

func TestFetch_PersistFailureSkipsSymbol(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	repo.upsertErr = errors.New("disk full")
	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})
	assert.Empty(t, result)
}

func TestFetch_DedupesTickers(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL", "AAPL", "AAPL"}, Options{})
	require.Contains(t, result, "AAPL")
	assert.Len(t, api.calls, 1)
}

func TestFetch_CacheLookupErrorFallsBackToRemote(t *testing.T) {
	repo := newFakeRepo()
	api := newFakeAPI()

	repo.getErr = errors.New("connection reset")
	api.records["AAPL"] = completeRecord("AAPL", time.Time{})

	f := New(repo, api, 24*time.Hour, logger.NewNop())

	result := f.Fetch(context.Background(), []string{"AAPL"}, Options{})
	require.Contains(t, result, "AAPL")
	assert.Equal(t, []string{"AAPL"}, api.calls)
}
