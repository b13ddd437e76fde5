// Package handlers implements the HTTP endpoints.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/quantlab/fairval/internal/analysis"
	"github.com/quantlab/fairval/internal/contracts"
	"github.com/quantlab/fairval/pkg/logger"
)

// Ranker runs the analysis pipeline. Satisfied by *analysis.Analyzer.
type Ranker interface {
	Analyze(ctx context.Context, tickers []string, opts analysis.Options) []contracts.AnalysisResult
	AnalyzeBySector(ctx context.Context, tickers []string, sectors []string, opts analysis.Options) map[string][]contracts.AnalysisResult
}

// RankingHandler serves ranked analysis results.
type RankingHandler struct {
	ranker Ranker
	log    *logger.Logger
}

func NewRankingHandler(ranker Ranker, log *logger.Logger) *RankingHandler {
	return &RankingHandler{ranker: ranker, log: log}
}

// GetRanking runs the pipeline for the requested tickers.
//
//	GET /api/ranking?tickers=AAPL,MSFT[&sectors=Technology][&max_pe=30]
//	    [&exclude_negative_pe=true][&skip_cache=true]
//
// With sectors set the response is a sector-keyed mapping of ranked
// lists; otherwise a single ranked list.
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	tickers := splitParam(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers parameter is required")
		return
	}

	opts := analysis.Options{}

	if v := r.URL.Query().Get("exclude_negative_pe"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid exclude_negative_pe")
			return
		}
		opts.Filter.ExcludeNegativePE = b
	}
	if v := r.URL.Query().Get("max_pe"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid max_pe")
			return
		}
		opts.Filter.MaxPE = &f
	}
	if v := r.URL.Query().Get("skip_cache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid skip_cache")
			return
		}
		opts.SkipCache = b
	}

	sectors := splitParam(r.URL.Query().Get("sectors"))
	if len(sectors) > 0 {
		groups := h.ranker.AnalyzeBySector(r.Context(), tickers, sectors, opts)
		respondJSON(w, http.StatusOK, groups)
		return
	}

	respondJSON(w, http.StatusOK, h.ranker.Analyze(r.Context(), tickers, opts))
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
