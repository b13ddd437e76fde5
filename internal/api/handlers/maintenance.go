package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/quantlab/fairval/pkg/logger"
)

// Purger deletes records last refreshed before the cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceHandler serves cache maintenance operations.
type MaintenanceHandler struct {
	purger        Purger
	retentionDays int
	log           *logger.Logger
}

func NewMaintenanceHandler(purger Purger, retentionDays int, log *logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		purger:        purger,
		retentionDays: retentionDays,
		log:           log,
	}
}

// Cleanup purges records untouched for longer than the retention
// window. The default window can be overridden per request.
//
//	POST /api/cleanup[?days=30]
func (h *MaintenanceHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := h.retentionDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	removed, err := h.purger.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		h.log.WithError(err).Error("cleanup failed")
		respondError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"days":    days,
	})
}
