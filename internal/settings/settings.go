package settings

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// ValidationError rejects a settings mutation; the store is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SectorParams holds the valuation defaults for one sector.
type SectorParams struct {
	GrowthRate   float64 `json:"growth_rate"`   // ∈ [0, 1]
	PERatio      float64 `json:"pe_ratio"`      // > 0
	DiscountRate float64 `json:"discount_rate"` // ∈ [0, 1]
}

// SeedMode controls how the ticker selector obtains its shuffle seed.
type SeedMode string

const (
	SeedGenerate SeedMode = "generate" // new seed each run, remembered
	SeedReuse    SeedMode = "reuse"    // last generated seed
	SeedSpecify  SeedMode = "specify"  // fixed caller-provided seed
)

// SeedConfig holds the randomization policy.
type SeedConfig struct {
	Mode     SeedMode `json:"mode"`
	Value    *int64   `json:"value,omitempty"`
	LastUsed *int64   `json:"last_used,omitempty"`
}

// Settings is the persisted configuration document.
type Settings struct {
	Sectors     map[string]SectorParams `json:"sectors"`
	Seed        SeedConfig              `json:"random_seed"`
	LastUpdated time.Time               `json:"last_updated"`
}

// Store is a JSON-file-backed settings store. Not safe for concurrent
// writers; the application uses one store per process.
type Store struct {
	path     string
	settings Settings
}

// DefaultSectors returns the built-in sector parameter table.
func DefaultSectors() map[string]SectorParams {
	return map[string]SectorParams{
		"Technology":             {GrowthRate: 0.08, PERatio: 25.0, DiscountRate: 0.10},
		"Healthcare":             {GrowthRate: 0.06, PERatio: 20.0, DiscountRate: 0.09},
		"Financials":             {GrowthRate: 0.04, PERatio: 15.0, DiscountRate: 0.08},
		"Consumer Discretionary": {GrowthRate: 0.05, PERatio: 18.0, DiscountRate: 0.09},
		"Consumer Staples":       {GrowthRate: 0.03, PERatio: 16.0, DiscountRate: 0.07},
		"Energy":                 {GrowthRate: 0.04, PERatio: 12.0, DiscountRate: 0.10},
		"Utilities":              {GrowthRate: 0.02, PERatio: 14.0, DiscountRate: 0.06},
		"Industrials":            {GrowthRate: 0.04, PERatio: 17.0, DiscountRate: 0.08},
		"Materials":              {GrowthRate: 0.04, PERatio: 15.0, DiscountRate: 0.09},
		"Real Estate":            {GrowthRate: 0.03, PERatio: 16.0, DiscountRate: 0.07},
		"Communication Services": {GrowthRate: 0.06, PERatio: 20.0, DiscountRate: 0.09},
	}
}

// Load opens the settings file, creating it with defaults when absent.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.settings = Settings{
			Sectors:     DefaultSectors(),
			Seed:        SeedConfig{Mode: SeedGenerate},
			LastUpdated: time.Now().UTC(),
		}
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("failed to write default settings: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s.settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if s.settings.Sectors == nil {
		s.settings.Sectors = map[string]SectorParams{}
	}
	if s.settings.Seed.Mode == "" {
		s.settings.Seed.Mode = SeedGenerate
	}

	return s, nil
}

// save writes the settings atomically (temp file + rename).
func (s *Store) save() error {
	s.settings.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(&s.settings, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Clean(s.path))
}

// Sector returns the parameters for a sector, with ok=false when the
// sector is unrecognized.
func (s *Store) Sector(name string) (SectorParams, bool) {
	params, ok := s.settings.Sectors[name]
	return params, ok
}

// Sectors returns a copy of the full sector table.
func (s *Store) Sectors() map[string]SectorParams {
	out := make(map[string]SectorParams, len(s.settings.Sectors))
	for name, params := range s.settings.Sectors {
		out[name] = params
	}
	return out
}

// SectorUpdate carries a partial sector mutation; nil fields are kept.
type SectorUpdate struct {
	GrowthRate   *float64
	PERatio      *float64
	DiscountRate *float64
}

// SetSector validates and applies a partial update, then persists. On a
// validation error nothing is changed.
func (s *Store) SetSector(name string, update SectorUpdate) error {
	if name == "" {
		return ValidationError{"sector", "name is required"}
	}

	params := s.settings.Sectors[name]

	if update.GrowthRate != nil {
		if *update.GrowthRate < 0 || *update.GrowthRate > 1 {
			return ValidationError{"growth_rate", "must be between 0 and 1"}
		}
		params.GrowthRate = *update.GrowthRate
	}
	if update.PERatio != nil {
		if *update.PERatio <= 0 {
			return ValidationError{"pe_ratio", "must be positive"}
		}
		params.PERatio = *update.PERatio
	}
	if update.DiscountRate != nil {
		if *update.DiscountRate < 0 || *update.DiscountRate > 1 {
			return ValidationError{"discount_rate", "must be between 0 and 1"}
		}
		params.DiscountRate = *update.DiscountRate
	}

	s.settings.Sectors[name] = params
	return s.save()
}

// Seed resolves the shuffle seed per the configured mode.
func (s *Store) Seed() (int64, error) {
	switch s.settings.Seed.Mode {
	case SeedReuse:
		if s.settings.Seed.LastUsed != nil {
			return *s.settings.Seed.LastUsed, nil
		}
		return s.generateSeed()
	case SeedSpecify:
		if s.settings.Seed.Value == nil {
			return 0, ValidationError{"random_seed.value", "not specified"}
		}
		return *s.settings.Seed.Value, nil
	case SeedGenerate:
		return s.generateSeed()
	default:
		return 0, ValidationError{"random_seed.mode", fmt.Sprintf("unknown mode %q", s.settings.Seed.Mode)}
	}
}

// SetSeedMode changes the seed policy. A value is required for "specify".
func (s *Store) SetSeedMode(mode SeedMode, value *int64) error {
	switch mode {
	case SeedGenerate, SeedReuse:
	case SeedSpecify:
		if value == nil {
			return ValidationError{"random_seed.value", "required when mode is specify"}
		}
	default:
		return ValidationError{"random_seed.mode", fmt.Sprintf("unknown mode %q", mode)}
	}

	s.settings.Seed.Mode = mode
	if mode == SeedSpecify {
		s.settings.Seed.Value = value
	}
	return s.save()
}

func (s *Store) generateSeed() (int64, error) {
	seed := rand.Int63n(1_000_001)
	s.settings.Seed.LastUsed = &seed
	if err := s.save(); err != nil {
		return 0, err
	}
	return seed, nil
}
