package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quantlab/fairval/internal/settings"
	"github.com/quantlab/fairval/pkg/logger"
)

// SectorsHandler serves the sector parameter store.
type SectorsHandler struct {
	store *settings.Store
	log   *logger.Logger
}

func NewSectorsHandler(store *settings.Store, log *logger.Logger) *SectorsHandler {
	return &SectorsHandler{store: store, log: log}
}

// List returns every sector's parameters.
//
//	GET /api/sectors
func (h *SectorsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Sectors())
}

// Get returns one sector's parameters.
//
//	GET /api/sectors/{sector}
func (h *SectorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["sector"]

	params, ok := h.store.Sector(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown sector: "+name)
		return
	}
	respondJSON(w, http.StatusOK, params)
}

type sectorUpdateRequest struct {
	GrowthRate   *float64 `json:"growth_rate"`
	PERatio      *float64 `json:"pe_ratio"`
	DiscountRate *float64 `json:"discount_rate"`
}

// Update applies a partial update to one sector's parameters. Invalid
// values are rejected with 400 and the store is left unchanged.
//
//	PUT /api/sectors/{sector}
func (h *SectorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["sector"]

	var req sectorUpdateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.store.SetSector(name, settings.SectorUpdate{
		GrowthRate:   req.GrowthRate,
		PERatio:      req.PERatio,
		DiscountRate: req.DiscountRate,
	})
	if err != nil {
		var verr settings.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.log.WithField("sector", name).WithError(err).Error("failed to update sector parameters")
		respondError(w, http.StatusInternalServerError, "failed to update sector parameters")
		return
	}

	params, _ := h.store.Sector(name)
	respondJSON(w, http.StatusOK, params)
}
