// Package handlers exposes the worker's operational endpoints: job status
// inspection and manual run triggering. It serves operators, not analysts;
// the data itself is queried in the warehouse.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/retail-etl/internal/api/middleware"
	"github.com/dvloznov/retail-etl/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JobsHandler handles load-job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// ListJobs handles GET /api/jobs. Supports ?status=, ?triggered_by= and
// ?limit= query parameters.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		TriggeredBy: r.URL.Query().Get("triggered_by"),
		Status:      jobs.JobStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/jobs/{jobID}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// TriggerRun handles POST /api/jobs. It enqueues one incremental load run
// outside the regular schedule; the queue still serializes it against any
// scheduled run in flight.
func (h *JobsHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	job := &jobs.LoadBatchJob{
		JobID:       uuid.New().String(),
		TriggeredBy: "manual",
		Status:      jobs.JobStatusPending,
		CreatedAt:   time.Now(),
		MaxRetries:  2,
	}

	if err := h.publisher.PublishLoadBatch(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to publish load job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue run")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Manual load run enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Routes mounts the operational endpoints on mux.
func (h *JobsHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Health)
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListJobs(w, r)
		case http.MethodPost:
			h.TriggerRun(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.GetJob(w, r, r.URL.Path[len("/api/jobs/"):])
	})
}
