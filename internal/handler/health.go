package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks that a backing store is reachable.
type Pinger func(ctx context.Context) error

// NewHealthHandler reports ok while every pinger succeeds.
func NewHealthHandler(pingers ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, ping := range pingers {
			if err := ping(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
