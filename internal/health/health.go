// Package health serves liveness, readiness and pipeline progress over HTTP
// while a long batch run is in flight.
//
// Routes registered by [Handler.Register]:
//
//   - /healthz: always 200 while the process serves HTTP.
//   - /readyz: 200 only when every [Checker] passes (report sinks reachable).
//   - /status: the per-stage [Progress] snapshot.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail").
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named dependency probe. Check returns nil when healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type statusResult struct {
	Status string        `json:"status"`
	Stages []StageStatus `json:"stages"`
}

// Handler serves the health routes. The checker list is fixed at
// construction time.
type Handler struct {
	progress *Progress
	checkers []Checker
}

// New creates a Handler reporting progress and evaluating checkers on each
// /readyz request. progress may be nil.
func New(progress *Progress, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{progress: progress, checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes within checkTimeout.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true
	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Status reports the stage snapshot. The status is "fail" once any stage
// failed.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	res := statusResult{Status: "ok", Stages: []StageStatus{}}
	if h.progress != nil {
		res.Stages = h.progress.Snapshot()
	}
	for _, s := range res.Stages {
		if s.State == StateFailed {
			res.Status = "fail"
			break
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /status", h.Status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
