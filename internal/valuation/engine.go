package valuation

import (
	"math"

	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/internal/settings"
	"github.com/quantlab/fairval/pkg/logger"
)

// SectorSource resolves per-sector valuation defaults. Satisfied by
// *settings.Store.
type SectorSource interface {
	Sector(name string) (settings.SectorParams, bool)
}

// Config holds the fixed valuation parameters.
type Config struct {
	// Years is the DCF projection horizon.
	Years int

	// TerminalGrowth is the perpetual growth rate applied after the
	// projection horizon.
	TerminalGrowth float64

	// Fallbacks used when the sector is unrecognized.
	FallbackGrowth   float64
	FallbackDiscount float64
	FallbackPE       float64
}

// DefaultConfig returns the standard valuation parameters.
func DefaultConfig() Config {
	return Config{
		Years:            10,
		TerminalGrowth:   0.02,
		FallbackGrowth:   0.05,
		FallbackDiscount: 0.10,
		FallbackPE:       15.0,
	}
}

// Engine computes blended per-share intrinsic values from up to three
// independent estimates: a discounted-cash-flow projection, a
// growth-adjusted earnings multiple, and the provider's own estimate.
type Engine struct {
	cfg     Config
	sectors SectorSource
	logger  *logger.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(cfg Config, sectors SectorSource, log *logger.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		sectors: sectors,
		logger:  log,
	}
}

// Breakdown carries the individual sub-estimates for one record. Nil
// means the sub-estimate was not computable from the available inputs.
type Breakdown struct {
	DCF      *float64
	Multiple *float64
	External *float64
}

// Blend returns the arithmetic mean of the available sub-estimates, or
// nil when none are available.
func (b Breakdown) Blend() *float64 {
	sum := 0.0
	n := 0
	for _, v := range []*float64{b.DCF, b.Multiple, b.External} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return contracts.Float64(sum / float64(n))
}

// IntrinsicValue computes the blended per-share intrinsic value for a
// record. Nil means the ticker cannot be valued from the available data.
func (e *Engine) IntrinsicValue(rec *contracts.StockRecord) *float64 {
	return e.Estimate(rec).Blend()
}

// Estimate computes all sub-estimates for a record.
func (e *Engine) Estimate(rec *contracts.StockRecord) Breakdown {
	params, sectorKnown := e.sectors.Sector(rec.SectorName())

	// Growth fallback chain: ticker signal, then sector default, then
	// the fixed fallback.
	growth := e.cfg.FallbackGrowth
	if sectorKnown {
		growth = params.GrowthRate
	}
	if rec.GrowthRate != nil {
		growth = *rec.GrowthRate
	}

	discount := e.cfg.FallbackDiscount
	sectorPE := e.cfg.FallbackPE
	if sectorKnown {
		discount = params.DiscountRate
		sectorPE = params.PERatio
	}

	var b Breakdown

	// DCF per share. Zero free cash flow carries no projection signal;
	// negative does (it projects losses).
	if rec.FCF != nil && *rec.FCF != 0 && rec.Shares != nil && *rec.Shares > 0 {
		if total, ok := e.dcfTotal(*rec.FCF, growth, discount); ok {
			b.DCF = contracts.Float64(total / *rec.Shares)
		}
	}

	// Growth-adjusted multiple: fair P/E scaled by growth relative to
	// the sector, collapsing to the sector P/E when the sector growth
	// is non-positive.
	if rec.EPS != nil && *rec.EPS > 0 && growth > 0 {
		sectorGrowth := growth
		if sectorKnown {
			sectorGrowth = params.GrowthRate
		}

		fairPE := sectorPE
		if sectorGrowth > 0 {
			fairPE = sectorPE * (growth / sectorGrowth)
		}
		b.Multiple = contracts.Float64(fairPE * *rec.EPS)
	}

	// Externally supplied estimate passes through unchanged.
	if rec.ExternalDCF != nil {
		b.External = contracts.Float64(*rec.ExternalDCF)
	}

	e.logger.WithFields(map[string]interface{}{
		"ticker":       rec.Ticker,
		"growth":       growth,
		"discount":     discount,
		"sector_known": sectorKnown,
	}).Debug("Computed valuation estimates")

	return b
}

// dcfTotal projects free cash flow over the horizon and discounts it
// plus a capitalized terminal value back to present. ok is false when
// the discount rate does not exceed the terminal growth rate, which
// leaves the terminal value undefined.
func (e *Engine) dcfTotal(fcf, growth, discount float64) (float64, bool) {
	if discount <= e.cfg.TerminalGrowth {
		return 0, false
	}

	total := 0.0
	finalYear := 0.0
	for t := 1; t <= e.cfg.Years; t++ {
		projected := fcf * math.Pow(1+growth, float64(t))
		total += projected / math.Pow(1+discount, float64(t))
		finalYear = projected
	}

	terminal := finalYear * (1 + e.cfg.TerminalGrowth) / (discount - e.cfg.TerminalGrowth)
	total += terminal / math.Pow(1+discount, float64(e.cfg.Years))

	return total, true
}
