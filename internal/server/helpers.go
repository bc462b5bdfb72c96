package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cwbudde/stride/internal/runner"
)

// writeJSON encodes v as the JSON response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// stateFromReason maps a termination reason to the run state shown to clients
func stateFromReason(reason runner.Reason) RunState {
	switch reason {
	case runner.ReasonStepFailed:
		return StateFailed
	case runner.ReasonCancelled:
		return StateCancelled
	default:
		return StateCompleted
	}
}
