// Package httpapi serves a read-only view of a checking pass: liveness,
// progress, the incorrect puzzles recorded so far and prometheus metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/checker"
	"github.com/freeeve/puzzlecheck/internal/metrics"
)

// StatusSource reports the progress of a checking pass.
type StatusSource interface {
	GetStatus() checker.Status
}

// IncorrectSource lists the puzzles recorded with a finding.
type IncorrectSource interface {
	Incorrect() ([]string, error)
}

// Handler holds the sources the endpoints read from.
type Handler struct {
	status    StatusSource
	incorrect IncorrectSource
	log       zerolog.Logger
}

// NewRouter creates the HTTP router. status may be nil when no pass runs in
// this process.
func NewRouter(log zerolog.Logger, status StatusSource, incorrect IncorrectSource) http.Handler {
	h := &Handler{
		status:    status,
		incorrect: incorrect,
		log:       log,
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(h.health))
	mux.Handle("/readyz", http.HandlerFunc(h.ready))
	mux.Handle("/v1/status", http.HandlerFunc(h.checkStatus))
	mux.Handle("/v1/incorrect", http.HandlerFunc(h.incorrectIDs))
	mux.Handle("/metrics", metrics.Handler())

	return RequestID(AccessLog(log, mux))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ready fails once the ledger can no longer be read.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.incorrect.Incorrect(); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "ledger unreadable: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) checkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var resp StatusResponse
	if h.status != nil {
		resp.Status = h.status.GetStatus()
	}
	resp.Remaining = resp.Total - resp.Processed - resp.Failed
	if resp.Running && !resp.StartedAt.IsZero() {
		resp.ElapsedSec = time.Since(resp.StartedAt).Seconds()
	}
	writeJSON(w, resp)
}

func (h *Handler) incorrectIDs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ids, err := h.incorrect.Incorrect()
	if err != nil {
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("list incorrect puzzles")
		writeError(w, r, http.StatusInternalServerError, "cannot read ledger")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, IncorrectResponse{Count: len(ids), IDs: ids})
}
