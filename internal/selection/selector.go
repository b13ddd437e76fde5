// Package selection builds candidate ticker lists from the cached
// inventory, topped up from the remote screener when the cache runs
// short.
package selection

import (
	"context"
	"math/rand"
	"time"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/pkg/logger"
)

// Options configures one selection run.
type Options struct {
	// Count is the number of symbols wanted. Fewer may come back when
	// the universe is exhausted; that is not an error.
	Count int

	// Sectors restricts the candidate universe.
	Sectors []string

	// Exchange, when non-empty, is preferred: symbols listed there are
	// drawn before any others.
	Exchange string

	// Seed makes the shuffle reproducible. Nil seeds from the clock.
	Seed *int64
}

// Selector draws symbols from the cached inventory first and consults
// the remote screener only for the shortfall. Newly discovered symbols
// are cached (sector and exchange only) for future runs.
type Selector struct {
	repo contracts.StockRepository
	api  contracts.MarketData
	log  *logger.Logger
}

func New(repo contracts.StockRepository, api contracts.MarketData, log *logger.Logger) *Selector {
	return &Selector{repo: repo, api: api, log: log}
}

// Select returns an ordered list of up to opts.Count symbols. The same
// seed against the same universe yields the same list.
func (s *Selector) Select(ctx context.Context, opts Options) ([]string, error) {
	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	cached, err := s.repo.Query(ctx, contracts.QueryFilter{Sectors: opts.Sectors})
	if err != nil {
		return nil, err
	}

	var priority, others []string
	for _, rec := range cached {
		if opts.Exchange != "" && rec.Exchange != nil && *rec.Exchange == opts.Exchange {
			priority = append(priority, rec.Ticker)
		} else {
			others = append(others, rec.Ticker)
		}
	}
	shuffle(rng, priority)
	shuffle(rng, others)

	selected := take(priority, opts.Count)
	selected = append(selected, take(others, opts.Count-len(selected))...)

	if len(selected) < opts.Count {
		needed := opts.Count - len(selected)
		topUp, err := s.screen(ctx, opts, rng, selected, needed)
		if err != nil {
			return nil, err
		}
		selected = append(selected, topUp...)
	}

	if len(selected) > opts.Count {
		selected = selected[:opts.Count]
	}
	s.log.WithFields(map[string]interface{}{
		"requested": opts.Count,
		"selected":  len(selected),
		"seed":      seed,
	}).Debug("ticker selection complete")
	return selected, nil
}

// screen asks the remote screener for twice the shortfall, caches the
// discoveries, and draws the missing symbols with the same exchange
// preference as the cached pass.
func (s *Selector) screen(ctx context.Context, opts Options, rng *rand.Rand, already []string, needed int) ([]string, error) {
	listings, err := s.api.Screen(ctx, opts.Sectors, needed*2)
	if err != nil {
		return nil, err
	}

	for _, l := range listings {
		if err := s.repo.SaveListing(ctx, l); err != nil {
			s.log.WithField("symbol", l.Symbol).WithError(err).Warn("failed to cache screener listing")
		}
	}

	taken := make(map[string]struct{}, len(already))
	for _, t := range already {
		taken[t] = struct{}{}
	}

	var priority, others []string
	for _, l := range listings {
		if _, dup := taken[l.Symbol]; dup {
			continue
		}
		taken[l.Symbol] = struct{}{}
		if opts.Exchange != "" && l.Exchange == opts.Exchange {
			priority = append(priority, l.Symbol)
		} else {
			others = append(others, l.Symbol)
		}
	}
	shuffle(rng, priority)
	shuffle(rng, others)

	out := take(priority, needed)
	out = append(out, take(others, needed-len(out))...)
	return out, nil
}

func shuffle(rng *rand.Rand, symbols []string) {
	rng.Shuffle(len(symbols), func(i, j int) {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})
}

func take(symbols []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(symbols) {
		n = len(symbols)
	}
	return symbols[:n]
}
