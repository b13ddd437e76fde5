package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quantlab/fairval/internal/scheduler"
	"github.com/quantlab/fairval/pkg/logger"
)

// JobRunner exposes the scheduler's read and trigger surface. Satisfied
// by *scheduler.Scheduler.
type JobRunner interface {
	JobStats() map[string]scheduler.Stats
	RunJob(name string) error
}

// JobsHandler serves scheduled-job status and manual triggers. A nil
// runner means the process is serving without a scheduler.
type JobsHandler struct {
	runner JobRunner
	log    *logger.Logger
}

func NewJobsHandler(runner JobRunner, log *logger.Logger) *JobsHandler {
	return &JobsHandler{runner: runner, log: log}
}

// List returns per-job run statistics.
//
//	GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}
	respondJSON(w, http.StatusOK, h.runner.JobStats())
}

// Run triggers a registered job outside its schedule.
//
//	POST /api/jobs/{job}/run
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}

	name := mux.Vars(r)["job"]
	if err := h.runner.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.log.WithField("job", name).Info("job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "triggered",
	})
}
