package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/types"
)

// IoTHandler provides live sensor and actuator endpoints.
type IoTHandler struct {
	iot *services.IoTService
}

func NewIoTHandler(iot *services.IoTService) *IoTHandler {
	return &IoTHandler{iot: iot}
}

// IoTRouter registers the live state routes. Reads are open to every
// authenticated account; actuator writes are admin-only.
func IoTRouter(r chi.Router, iot *services.IoTService, authn *Authenticator) {
	handler := NewIoTHandler(iot)

	r.Use(authn.RequireAuth)
	r.Get("/status", handler.Status)
	r.Get("/config", handler.Config)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(types.RoleAdmin))
		r.Post("/automation", handler.SetAutomation)
		r.Post("/blower", handler.SetBlower)
		r.Post("/maxtemp", handler.SetMaxTemp)
	})
}

type SetSwitchRequest struct {
	Status *bool `json:"status"`
}

type SetMaxTempRequest struct {
	Temp *float64 `json:"temp"`
}

func (h *IoTHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.iot.Status(r.Context())
	if err != nil {
		if errors.Is(err, livestate.ErrNoData) {
			writeError(w, http.StatusNotFound, "no live sensor data found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read sensor data")
		return
	}
	writeSuccess(w, http.StatusOK, snapshot, "sensor data retrieved")
}

func (h *IoTHandler) Config(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.iot.Config(r.Context())
	if err != nil {
		if errors.Is(err, livestate.ErrNoData) {
			writeError(w, http.StatusNotFound, "no config data found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read config")
		return
	}
	writeSuccess(w, http.StatusOK, snapshot, "config retrieved")
}

func (h *IoTHandler) SetAutomation(w http.ResponseWriter, r *http.Request) {
	var req SetSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == nil {
		writeError(w, http.StatusBadRequest, `request body must be {"status": true/false}`)
		return
	}

	if err := h.iot.SetAutomation(r.Context(), actorUID(r.Context()), *req.Status); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update automation")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"automation": *req.Status}, "automation updated")
}

func (h *IoTHandler) SetBlower(w http.ResponseWriter, r *http.Request) {
	var req SetSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == nil {
		writeError(w, http.StatusBadRequest, `request body must be {"status": true/false}`)
		return
	}

	if err := h.iot.SetBlower(r.Context(), actorUID(r.Context()), *req.Status); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update blower")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"blower": *req.Status}, "blower updated")
}

func (h *IoTHandler) SetMaxTemp(w http.ResponseWriter, r *http.Request) {
	var req SetMaxTempRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Temp == nil {
		writeError(w, http.StatusBadRequest, `request body must be {"temp": (number)}`)
		return
	}

	if err := h.iot.SetMaxTemp(r.Context(), actorUID(r.Context()), *req.Temp); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update max temp")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]float64{"maxTemp": *req.Temp}, "max temp updated")
}
