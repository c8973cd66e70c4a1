package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// Health returns a handler reporting service liveness, version, and
// uptime.
func Health(version string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]interface{}{
			"version":   version,
			"uptime":    fmt.Sprintf("%d seconds", int(time.Since(startedAt).Seconds())),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, "greenhouse IoT API is running")
	}
}
