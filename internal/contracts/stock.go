package contracts

import "time"

// Field identifies one optional fundamental on a StockRecord. Fetch
// callers name the fields a record must carry to count as complete.
type Field string

const (
	FieldPrice  Field = "price"
	FieldShares Field = "shares"
	FieldFCF    Field = "fcf"
	FieldSector Field = "sector"
	FieldEPS    Field = "eps"
)

// DefaultRequiredFields is the completeness requirement used when the
// caller does not specify one.
func DefaultRequiredFields() []Field {
	return []Field{FieldPrice, FieldShares, FieldFCF}
}

// StockRecord is one row of fundamentals for a ticker symbol. Optional
// fields are pointers: nil means "unknown", which is distinct from zero.
type StockRecord struct {
	Ticker string `json:"ticker"`

	Price  *float64 `json:"price,omitempty"`
	Shares *float64 `json:"shares,omitempty"`
	FCF    *float64 `json:"fcf,omitempty"`
	Sector *string  `json:"sector,omitempty"`
	EPS    *float64 `json:"eps,omitempty"`

	// GrowthRate is a ticker-specific growth signal; when nil the
	// valuation engine falls back to the sector default.
	GrowthRate *float64 `json:"growth_rate,omitempty"`

	// ExternalDCF is a third-party per-share DCF estimate attached to
	// the record when the provider publishes one.
	ExternalDCF *float64 `json:"external_dcf,omitempty"`

	Exchange *string `json:"exchange,omitempty"`

	// Derived fields, written back by later pipeline stages.
	IntrinsicValue *float64 `json:"intrinsic_value,omitempty"`
	Score          *float64 `json:"score,omitempty"`

	// UpdatedAt is the last refresh instant, always UTC.
	UpdatedAt time.Time `json:"updated_at"`
}

// Has reports whether the given field carries a value.
func (r *StockRecord) Has(f Field) bool {
	switch f {
	case FieldPrice:
		return r.Price != nil
	case FieldShares:
		return r.Shares != nil
	case FieldFCF:
		return r.FCF != nil
	case FieldSector:
		return r.Sector != nil
	case FieldEPS:
		return r.EPS != nil
	default:
		return false
	}
}

// MissingFields returns the subset of required fields the record lacks.
func (r *StockRecord) MissingFields(required []Field) []Field {
	var missing []Field
	for _, f := range required {
		if !r.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// SectorName returns the sector, or "" when unknown.
func (r *StockRecord) SectorName() string {
	if r.Sector == nil {
		return ""
	}
	return *r.Sector
}

// Listing is a symbol discovered through the screener: classification
// only, no fundamentals.
type Listing struct {
	Symbol   string `json:"symbol"`
	Sector   string `json:"sector"`
	Exchange string `json:"exchange"`
}

// AnalysisResult is one row of analyzer output. It is ephemeral: built
// fresh per analysis run and never persisted as-is.
type AnalysisResult struct {
	Ticker         string  `json:"ticker"`
	Score          float64 `json:"score"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	Price          float64 `json:"price"`
	Sector         string  `json:"sector"`
}

// Float64 returns a pointer to v. Convenience for optional fields.
func Float64(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
