package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/puzzlecheck/internal/checker"
)

// StatusResponse is the JSON body of /v1/status.
type StatusResponse struct {
	checker.Status
	Remaining  int64   `json:"remaining"`
	ElapsedSec float64 `json:"elapsed_sec,omitempty"`
}

// IncorrectResponse is the JSON body of /v1/incorrect.
type IncorrectResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

type errorResponse struct {
	Error string `json:"error"`
	RID   string `json:"rid,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, RID: GetRequestID(r.Context())})
}
