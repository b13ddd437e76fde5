// Package analysis ranks a batch of tickers by how far their blended
// intrinsic value sits above the market price.
package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/internal/fetch"
	"github.com/quantlab/fairval/pkg/logger"
)

// DataSource supplies fundamentals for a ticker batch. Satisfied by
// *fetch.Fetcher.
type DataSource interface {
	Fetch(ctx context.Context, tickers []string, opts fetch.Options) map[string]*contracts.StockRecord
}

// Valuer computes a blended per-share intrinsic value. Satisfied by
// *valuation.Engine.
type Valuer interface {
	IntrinsicValue(rec *contracts.StockRecord) *float64
}

// DerivedWriter persists analyzer output back onto the stored record.
type DerivedWriter interface {
	SaveIntrinsicValue(ctx context.Context, ticker string, value float64) error
	SaveScore(ctx context.Context, ticker string, score float64) error
}

// DefaultPEExemptions lists low-liquidity symbols whose EPS-derived P/E
// is unreliable. They pass the negative-P/E filter regardless of EPS.
// Policy data, overridable through FilterOptions.
func DefaultPEExemptions() []string {
	return []string{"ZDGE", "SGE", "WTT", "LGL"}
}

// FilterOptions enumerates the recognized ranking filters.
type FilterOptions struct {
	// ExcludeNegativePE drops tickers whose derived P/E is zero or
	// negative, unless the symbol is in PEExemptions.
	ExcludeNegativePE bool

	// MaxPE drops tickers whose derived P/E exceeds it. Nil disables
	// the bound.
	MaxPE *float64

	// PEExemptions overrides DefaultPEExemptions when non-nil.
	PEExemptions []string
}

func (f FilterOptions) exemptions() map[string]struct{} {
	list := f.PEExemptions
	if list == nil {
		list = DefaultPEExemptions()
	}
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

// Options configures one analysis run.
type Options struct {
	Filter FilterOptions

	// RequiredFields and SkipCache pass through to the fetch layer.
	RequiredFields []contracts.Field
	SkipCache      bool
}

// Analyzer orchestrates fetch, valuation, filtering and ranking.
type Analyzer struct {
	source DataSource
	valuer Valuer
	store  DerivedWriter
	log    *logger.Logger
}

func New(source DataSource, valuer Valuer, store DerivedWriter, log *logger.Logger) *Analyzer {
	return &Analyzer{
		source: source,
		valuer: valuer,
		store:  store,
		log:    log,
	}
}

// Analyze fetches the batch, values each ticker, applies the filters
// and returns a ranked list, highest score first. Tickers that cannot
// be fetched or valued do not appear at all. Equal scores keep the
// caller's request order.
func (a *Analyzer) Analyze(ctx context.Context, tickers []string, opts Options) []contracts.AnalysisResult {
	records := a.source.Fetch(ctx, tickers, fetch.Options{
		RequiredFields: opts.RequiredFields,
		SkipCache:      opts.SkipCache,
	})

	exempt := opts.Filter.exemptions()

	var results []contracts.AnalysisResult
	seen := make(map[string]struct{}, len(tickers))
	for _, ticker := range tickers {
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		rec, ok := records[ticker]
		if !ok {
			continue
		}

		iv := a.valuer.IntrinsicValue(rec)
		if iv != nil {
			if err := a.store.SaveIntrinsicValue(ctx, ticker, *iv); err != nil {
				a.log.WithField("ticker", ticker).WithError(err).Warn("failed to save intrinsic value")
			}
		}
		if iv == nil || *iv <= 0 {
			a.log.WithField("ticker", ticker).Debug("excluded: no positive intrinsic value")
			continue
		}

		pe := derivedPE(rec)
		if opts.Filter.ExcludeNegativePE && pe <= 0 {
			if _, ok := exempt[ticker]; !ok {
				a.log.WithField("ticker", ticker).Debug("excluded by negative-pe filter")
				continue
			}
		}
		if opts.Filter.MaxPE != nil && pe > *opts.Filter.MaxPE {
			a.log.WithFields(map[string]interface{}{
				"ticker": ticker,
				"pe":     pe,
			}).Debug("excluded by max-pe filter")
			continue
		}

		score := 0.0
		if rec.Price != nil && *rec.Price > 0 {
			score = *iv / *rec.Price
		}
		if err := a.store.SaveScore(ctx, ticker, score); err != nil {
			a.log.WithField("ticker", ticker).WithError(err).Warn("failed to save score")
		}

		price := 0.0
		if rec.Price != nil {
			price = *rec.Price
		}
		results = append(results, contracts.AnalysisResult{
			Ticker:         ticker,
			Score:          score,
			IntrinsicValue: *iv,
			Price:          price,
			Sector:         rec.SectorName(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	a.log.WithFields(map[string]interface{}{
		"requested": len(tickers),
		"ranked":    len(results),
	}).Info("analysis complete")
	return results
}

// AnalyzeBySector runs Analyze and partitions the ranked list into one
// list per requested sector. Sectors outside the requested set are
// dropped; a requested sector with no matches yields an empty list.
func (a *Analyzer) AnalyzeBySector(ctx context.Context, tickers []string, sectors []string, opts Options) map[string][]contracts.AnalysisResult {
	ranked := a.Analyze(ctx, tickers, opts)

	groups := make(map[string][]contracts.AnalysisResult, len(sectors))
	for _, s := range sectors {
		groups[s] = []contracts.AnalysisResult{}
	}
	for _, r := range ranked {
		if _, ok := groups[r.Sector]; ok {
			groups[r.Sector] = append(groups[r.Sector], r)
		}
	}
	return groups
}

// derivedPE is price over EPS when EPS is positive. Otherwise it is
// negative infinity, which fails any zero-lower-bound check but never
// trips an upper P/E bound.
func derivedPE(rec *contracts.StockRecord) float64 {
	if rec.EPS == nil || *rec.EPS <= 0 || rec.Price == nil {
		return math.Inf(-1)
	}
	return *rec.Price / *rec.EPS
}
