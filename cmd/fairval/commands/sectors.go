package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantlab/fairval/internal/settings"
	"github.com/quantlab/fairval/pkg/config"
)

var (
	sectorGrowth   float64
	sectorPE       float64
	sectorDiscount float64

	seedValue int64
)

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Inspect and update sector valuation parameters",
}

var sectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every sector's parameters",
	RunE:  runSectorsList,
}

var sectorsSetCmd = &cobra.Command{
	Use:   "set <sector>",
	Short: "Update one sector's parameters",
	Long: `Applies a partial update to one sector. Values outside their valid
range (growth and discount in [0,1], P/E positive) are rejected and
nothing is changed.

Examples:
  fairval sectors set Technology --growth 0.09
  fairval sectors set Energy --pe 12 --discount 0.11`,
	Args: cobra.ExactArgs(1),
	RunE: runSectorsSet,
}

var seedCmd = &cobra.Command{
	Use:   "seed <generate|reuse|specify>",
	Short: "Set the ticker-selection seed mode",
	Long: `Controls how the ticker selector obtains its shuffle seed:
generate draws a fresh seed each run, reuse repeats the last generated
seed, specify pins a fixed seed (requires --value).

Examples:
  fairval seed generate
  fairval seed specify --value 42`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(sectorsCmd)
	sectorsCmd.AddCommand(sectorsListCmd)
	sectorsCmd.AddCommand(sectorsSetCmd)

	sectorsSetCmd.Flags().Float64Var(&sectorGrowth, "growth", 0, "growth rate in [0,1]")
	sectorsSetCmd.Flags().Float64Var(&sectorPE, "pe", 0, "P/E ratio, positive")
	sectorsSetCmd.Flags().Float64Var(&sectorDiscount, "discount", 0, "discount rate in [0,1]")

	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Int64Var(&seedValue, "value", 0, "seed value, required for specify")
}

// openSettings loads just the settings store, without the database or
// remote stack.
func openSettings() (*settings.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings.Load(cfg.SettingsPath)
}

func runSectorsList(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	params := store.Sectors()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tGROWTH\tP/E\tDISCOUNT")
	for _, name := range names {
		p := params[name]
		fmt.Fprintf(tw, "%s\t%.3f\t%.1f\t%.3f\n", name, p.GrowthRate, p.PERatio, p.DiscountRate)
	}
	return tw.Flush()
}

func runSectorsSet(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	update := settings.SectorUpdate{}
	if cmd.Flags().Changed("growth") {
		update.GrowthRate = &sectorGrowth
	}
	if cmd.Flags().Changed("pe") {
		update.PERatio = &sectorPE
	}
	if cmd.Flags().Changed("discount") {
		update.DiscountRate = &sectorDiscount
	}
	if update.GrowthRate == nil && update.PERatio == nil && update.DiscountRate == nil {
		return fmt.Errorf("nothing to update: give --growth, --pe or --discount")
	}

	name := args[0]
	if err := store.SetSector(name, update); err != nil {
		return err
	}

	p, _ := store.Sector(name)
	fmt.Printf("%s: growth=%.3f pe=%.1f discount=%.3f\n",
		name, p.GrowthRate, p.PERatio, p.DiscountRate)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	mode := settings.SeedMode(args[0])
	var value *int64
	if cmd.Flags().Changed("value") {
		value = &seedValue
	}

	if err := store.SetSeedMode(mode, value); err != nil {
		return err
	}

	fmt.Printf("seed mode set to %s\n", mode)
	return nil
}
