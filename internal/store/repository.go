package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/fairval/internal/contracts"
)

// Repository implements contracts.StockRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new stock repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `ticker, price, shares, fcf, sector, eps,
	growth_rate, external_dcf, exchange, intrinsic_value, score, updated_at`

func scanRecord(row pgx.Row) (*contracts.StockRecord, error) {
	var rec contracts.StockRecord
	err := row.Scan(
		&rec.Ticker, &rec.Price, &rec.Shares, &rec.FCF, &rec.Sector, &rec.EPS,
		&rec.GrowthRate, &rec.ExternalDCF, &rec.Exchange,
		&rec.IntrinsicValue, &rec.Score, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// Get returns the stored record for a ticker, or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, ticker string) (*contracts.StockRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_data WHERE ticker = $1`, recordColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, ticker))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record for %s: %w", ticker, err)
	}
	return rec, nil
}

// Upsert stores the full record, replacing any existing row for the same
// ticker. The refresh timestamp is stamped here, in UTC.
func (r *Repository) Upsert(ctx context.Context, record *contracts.StockRecord) error {
	query := `
		INSERT INTO stock_data (
			ticker, price, shares, fcf, sector, eps,
			growth_rate, external_dcf, exchange, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ticker) DO UPDATE SET
			price = EXCLUDED.price,
			shares = EXCLUDED.shares,
			fcf = EXCLUDED.fcf,
			sector = EXCLUDED.sector,
			eps = EXCLUDED.eps,
			growth_rate = EXCLUDED.growth_rate,
			external_dcf = EXCLUDED.external_dcf,
			exchange = EXCLUDED.exchange,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	record.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		record.Ticker, record.Price, record.Shares, record.FCF, record.Sector,
		record.EPS, record.GrowthRate, record.ExternalDCF, record.Exchange, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record for %s: %w", record.Ticker, err)
	}
	return nil
}

// SaveIntrinsicValue updates only the derived intrinsic value.
func (r *Repository) SaveIntrinsicValue(ctx context.Context, ticker string, value float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stock_data SET intrinsic_value = $1 WHERE ticker = $2`,
		value, ticker,
	)
	if err != nil {
		return fmt.Errorf("failed to save intrinsic value for %s: %w", ticker, err)
	}
	return nil
}

// SaveScore updates only the derived score.
func (r *Repository) SaveScore(ctx context.Context, ticker string, score float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stock_data SET score = $1 WHERE ticker = $2`,
		score, ticker,
	)
	if err != nil {
		return fmt.Errorf("failed to save score for %s: %w", ticker, err)
	}
	return nil
}

// SaveListing caches a screener discovery: sector and exchange only.
// Fundamentals already stored for the same ticker are left untouched.
func (r *Repository) SaveListing(ctx context.Context, listing contracts.Listing) error {
	query := `
		INSERT INTO stock_data (ticker, sector, exchange, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO UPDATE SET
			sector = EXCLUDED.sector,
			exchange = EXCLUDED.exchange
	`

	_, err := r.pool.Exec(ctx, query,
		listing.Symbol, listing.Sector, listing.Exchange, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save listing for %s: %w", listing.Symbol, err)
	}
	return nil
}

// Query returns records matching the filter, in ticker order.
func (r *Repository) Query(ctx context.Context, filter contracts.QueryFilter) ([]*contracts.StockRecord, error) {
	conditions := []string{}
	args := []interface{}{}

	if len(filter.Tickers) > 0 {
		args = append(args, filter.Tickers)
		conditions = append(conditions, fmt.Sprintf("ticker = ANY($%d)", len(args)))
	}
	if len(filter.Sectors) > 0 {
		args = append(args, filter.Sectors)
		conditions = append(conditions, fmt.Sprintf("sector = ANY($%d)", len(args)))
	}
	if filter.MinFCF != nil {
		args = append(args, *filter.MinFCF)
		conditions = append(conditions, fmt.Sprintf("fcf >= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM stock_data`, recordColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ticker"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*contracts.StockRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, nil
}

// PurgeOlderThan deletes records last refreshed before the cutoff.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stock_data WHERE updated_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge outdated records: %w", err)
	}
	return tag.RowsAffected(), nil
}
