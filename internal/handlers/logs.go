package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/types"
)

const (
	auditLogLimit  = 10
	systemLogLimit = 50
)

// LogsHandler provides the log read endpoints.
type LogsHandler struct {
	logs *services.LogService
}

func NewLogsHandler(logs *services.LogService) *LogsHandler {
	return &LogsHandler{logs: logs}
}

// LogsRouter registers the log routes. System logs are admin-only.
func LogsRouter(r chi.Router, logs *services.LogService, authn *Authenticator) {
	handler := NewLogsHandler(logs)

	r.Use(authn.RequireAuth)
	r.Get("/sensor-logs", handler.SensorLogs)
	r.Get("/audit-logs", handler.AuditLogs)
	r.With(RequireRole(types.RoleAdmin)).Get("/system-logs", handler.SystemLogs)
}

func (h *LogsHandler) SensorLogs(w http.ResponseWriter, r *http.Request) {
	records, err := h.logs.SensorLogs(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve sensor logs")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "no sensor data found for the last 7 days")
		return
	}
	writeSuccess(w, http.StatusOK, records, "sensor data for the last 7 days retrieved")
}

func (h *LogsHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	views, err := h.logs.AuditLogs(r.Context(), auditLogLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve audit logs")
		return
	}
	if len(views) == 0 {
		writeError(w, http.StatusNotFound, "no audit log data found")
		return
	}
	writeSuccess(w, http.StatusOK, views, "audit log data retrieved")
}

func (h *LogsHandler) SystemLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.SystemLogs(r.Context(), systemLogLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve system logs")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "no system log data found")
		return
	}
	writeSuccess(w, http.StatusOK, entries, "system log data retrieved")
}
