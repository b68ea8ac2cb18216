package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GerganaNoneva/beautysalon/internal/scheduling"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps scheduling errors onto HTTP statuses. Only
// unexpected failures are logged.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, err error, args ...any) {
	switch scheduling.Outcome(err) {
	case "invalid":
		jsonError(w, err.Error(), http.StatusBadRequest)
	case "not_found":
		jsonError(w, "not found", http.StatusNotFound)
	case "conflict":
		jsonError(w, conflictMessage(err), http.StatusConflict)
	default:
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("scheduling request failed", append(args, "error", err)...)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}
