package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/types"
)

// MachineHandler provides the shared-secret endpoints: device
// telemetry ingest and the aggregation job trigger. Neither goes
// through the identity provider.
type MachineHandler struct {
	iot         *services.IoTService
	aggregation *services.AggregationService
}

func NewMachineHandler(iot *services.IoTService, aggregation *services.AggregationService) *MachineHandler {
	return &MachineHandler{iot: iot, aggregation: aggregation}
}

// MachineRouter registers the machine routes behind the shared-secret
// check.
func MachineRouter(r chi.Router, iot *services.IoTService, aggregation *services.AggregationService, secret string) {
	handler := NewMachineHandler(iot, aggregation)

	r.Use(RequireSharedSecret(secret))
	r.Post("/events", handler.IngestEvent)
	r.Post("/jobs/daily-aggregation", handler.RunDailyAggregation)
}

type DeviceEventRequest struct {
	Temp  *float64 `json:"temp"`
	Humbd *float64 `json:"humbd"`
	Hic   *float64 `json:"hic"`
}

// IngestEvent writes a device telemetry sample into the live state
// tree.
func (h *MachineHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req DeviceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Temp == nil || req.Humbd == nil {
		writeError(w, http.StatusBadRequest, "temp and humbd are required")
		return
	}

	reading := types.SensorReading{
		Temperature: *req.Temp,
		Humidity:    *req.Humbd,
	}
	if req.Hic != nil {
		reading.HeatIndex = *req.Hic
	}

	if err := h.iot.IngestReading(r.Context(), reading, req.Hic != nil); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record reading")
		return
	}
	writeSuccess(w, http.StatusOK, reading, "reading recorded")
}

// RunDailyAggregation triggers one aggregation pass for the current
// day. Retry policy lives with the calling scheduler, not here.
func (h *MachineHandler) RunDailyAggregation(w http.ResponseWriter, r *http.Request) {
	result, err := h.aggregation.Run(r.Context(), time.Now().UTC())
	if err != nil {
		if errors.Is(err, livestate.ErrNoData) {
			writeError(w, http.StatusNotFound, "no live sensor data found")
			return
		}
		writeError(w, http.StatusInternalServerError, "daily aggregation failed")
		return
	}
	writeSuccess(w, http.StatusOK, result, "daily aggregation complete")
}
