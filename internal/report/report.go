// Package report renders analyzer output: console tables, CSV exports
// and per-sector summary metrics.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/quantlab/fairval/internal/contracts"
)

// Console writes a ranked table to out, highest score first.
func Console(out io.Writer, results []contracts.AnalysisResult) error {
	ranked := rank(results)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tSCORE\tINTRINSIC\tPRICE\tSECTOR")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%s\n",
			r.Ticker, r.Score, r.IntrinsicValue, r.Price, r.Sector)
	}
	return tw.Flush()
}

// WriteCSV exports results under dir. With groupBySector set it writes
// one <sector>.csv per sector; otherwise a single all_stocks.csv. It
// returns the paths written.
func WriteCSV(dir string, results []contracts.AnalysisResult, groupBySector bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ranked := rank(results)

	if !groupBySector {
		path := filepath.Join(dir, "all_stocks.csv")
		if err := writeCSVFile(path, ranked); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	groups := make(map[string][]contracts.AnalysisResult)
	for _, r := range ranked {
		groups[r.Sector] = append(groups[r.Sector], r)
	}

	sectors := make([]string, 0, len(groups))
	for s := range groups {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)

	paths := make([]string, 0, len(sectors))
	for _, sector := range sectors {
		name := sector
		if name == "" {
			name = "unclassified"
		}
		path := filepath.Join(dir, name+".csv")
		if err := writeCSVFile(path, groups[sector]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, results []contracts.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ticker", "sector", "score", "intrinsic_value", "price"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Ticker,
			r.Sector,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.FormatFloat(r.IntrinsicValue, 'f', -1, 64),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// SectorSummary aggregates a sector's ranked rows.
type SectorSummary struct {
	Sector   string
	Count    int
	AvgScore float64
	AvgPrice float64
	MinScore float64
	MaxScore float64
}

// Summarize computes per-sector metrics, ordered by sector name.
func Summarize(results []contracts.AnalysisResult) []SectorSummary {
	groups := make(map[string][]contracts.AnalysisResult)
	for _, r := range results {
		groups[r.Sector] = append(groups[r.Sector], r)
	}

	sectors := make([]string, 0, len(groups))
	for s := range groups {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)

	summaries := make([]SectorSummary, 0, len(sectors))
	for _, sector := range sectors {
		rows := groups[sector]
		s := SectorSummary{
			Sector:   sector,
			Count:    len(rows),
			MinScore: rows[0].Score,
			MaxScore: rows[0].Score,
		}
		var scoreSum, priceSum float64
		for _, r := range rows {
			scoreSum += r.Score
			priceSum += r.Price
			if r.Score < s.MinScore {
				s.MinScore = r.Score
			}
			if r.Score > s.MaxScore {
				s.MaxScore = r.Score
			}
		}
		s.AvgScore = scoreSum / float64(len(rows))
		s.AvgPrice = priceSum / float64(len(rows))
		summaries = append(summaries, s)
	}
	return summaries
}

// SummaryTable writes the per-sector metrics as a table.
func SummaryTable(out io.Writer, results []contracts.AnalysisResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tCOUNT\tAVG SCORE\tAVG PRICE\tMIN SCORE\tMAX SCORE")
	for _, s := range Summarize(results) {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.2f\t%.3f\t%.3f\n",
			s.Sector, s.Count, s.AvgScore, s.AvgPrice, s.MinScore, s.MaxScore)
	}
	return tw.Flush()
}

// rank returns a copy sorted descending by score, preserving input
// order among equal scores.
func rank(results []contracts.AnalysisResult) []contracts.AnalysisResult {
	out := make([]contracts.AnalysisResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
