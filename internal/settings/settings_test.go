package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sectors.json")
	store, err := Load(path)
	require.NoError(t, err)
	return store
}

func TestLoad_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.json")

	store, err := Load(path)
	require.NoError(t, err)

	// The file was written
	_, err = os.Stat(path)
	require.NoError(t, err)

	// All eleven built-in sectors are present
	assert.Len(t, store.Sectors(), 11)

	tech, ok := store.Sector("Technology")
	require.True(t, ok)
	assert.Equal(t, 0.08, tech.GrowthRate)
	assert.Equal(t, 25.0, tech.PERatio)
	assert.Equal(t, 0.10, tech.DiscountRate)
}

func TestLoad_ReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.json")

	first, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, first.SetSector("Technology", SectorUpdate{GrowthRate: f(0.12)}))

	second, err := Load(path)
	require.NoError(t, err)

	tech, ok := second.Sector("Technology")
	require.True(t, ok)
	assert.Equal(t, 0.12, tech.GrowthRate)
}

func TestSector_Unknown(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Sector("Shipping")
	assert.False(t, ok)
}

func TestSetSector_Validation(t *testing.T) {
	tests := []struct {
		name    string
		update  SectorUpdate
		wantErr string
	}{
		{"growth rate too high", SectorUpdate{GrowthRate: f(1.5)}, "growth_rate"},
		{"growth rate negative", SectorUpdate{GrowthRate: f(-0.1)}, "growth_rate"},
		{"zero pe", SectorUpdate{PERatio: f(0)}, "pe_ratio"},
		{"negative pe", SectorUpdate{PERatio: f(-5)}, "pe_ratio"},
		{"discount rate too high", SectorUpdate{DiscountRate: f(2)}, "discount_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			before, _ := store.Sector("Energy")

			err := store.SetSector("Energy", tt.update)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			// Store unchanged on rejection
			after, _ := store.Sector("Energy")
			assert.Equal(t, before, after)
		})
	}
}

func TestSetSector_PartialUpdate(t *testing.T) {
	store := newTestStore(t)

	err := store.SetSector("Utilities", SectorUpdate{PERatio: f(13.0)})
	require.NoError(t, err)

	params, ok := store.Sector("Utilities")
	require.True(t, ok)
	assert.Equal(t, 13.0, params.PERatio)
	assert.Equal(t, 0.02, params.GrowthRate) // untouched
}

func TestSetSector_NewSector(t *testing.T) {
	store := newTestStore(t)

	err := store.SetSector("Shipping", SectorUpdate{
		GrowthRate:   f(0.03),
		PERatio:      f(11.0),
		DiscountRate: f(0.09),
	})
	require.NoError(t, err)

	params, ok := store.Sector("Shipping")
	require.True(t, ok)
	assert.Equal(t, 11.0, params.PERatio)
}

func TestSeed_Generate(t *testing.T) {
	store := newTestStore(t)

	seed, err := store.Seed()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seed, int64(0))
	assert.LessOrEqual(t, seed, int64(1_000_000))
}

func TestSeed_Reuse(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetSeedMode(SeedReuse, nil))

	first, err := store.Seed()
	require.NoError(t, err)

	second, err := store.Seed()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSeed_Specify(t *testing.T) {
	store := newTestStore(t)

	v := int64(42)
	require.NoError(t, store.SetSeedMode(SeedSpecify, &v))

	seed, err := store.Seed()
	require.NoError(t, err)
	assert.Equal(t, int64(42), seed)
}

func TestSetSeedMode_Invalid(t *testing.T) {
	store := newTestStore(t)

	err := store.SetSeedMode(SeedMode("roulette"), nil)
	require.Error(t, err)

	err = store.SetSeedMode(SeedSpecify, nil)
	require.Error(t, err)
}

func f(v float64) *float64 { return &v }
