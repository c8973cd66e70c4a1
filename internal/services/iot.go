package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/types"
)

// Live state tree paths. The device owns the sensor leaves; the config
// subtree is written by the actuator endpoints and read by the device.
const (
	LiveSensorPath = "iot1"
	liveConfigPath = "iot1/config"

	automationLeaf = "iot1/config/automation"
	blowerLeaf     = "iot1/config/blower"
	maxTempLeaf    = "iot1/config/maxTemp"

	temperatureLeaf = "iot1/temp"
	humidityLeaf    = "iot1/humbd"
	heatIndexLeaf   = "iot1/hic"
)

// IoTService encapsulates live sensor and actuator use-cases.
type IoTService struct {
	tree  livestate.Tree
	audit AuditRecorder
	log   logrus.FieldLogger
}

func NewIoTService(tree livestate.Tree, audit AuditRecorder, log logrus.FieldLogger) *IoTService {
	return &IoTService{tree: tree, audit: audit, log: log}
}

// Status returns the full live sensor subtree.
func (s *IoTService) Status(ctx context.Context) (map[string]interface{}, error) {
	return s.tree.Snapshot(ctx, LiveSensorPath)
}

// Config returns the actuator configuration subtree.
func (s *IoTService) Config(ctx context.Context) (map[string]interface{}, error) {
	return s.tree.Snapshot(ctx, liveConfigPath)
}

func (s *IoTService) SetAutomation(ctx context.Context, actorUID string, status bool) error {
	if err := s.tree.SetLeaf(ctx, automationLeaf, status); err != nil {
		return err
	}
	s.recordAudit(ctx, "iot.set_automation", actorUID, map[string]interface{}{"automation": status})
	return nil
}

func (s *IoTService) SetBlower(ctx context.Context, actorUID string, status bool) error {
	if err := s.tree.SetLeaf(ctx, blowerLeaf, status); err != nil {
		return err
	}
	s.recordAudit(ctx, "iot.set_blower", actorUID, map[string]interface{}{"blower": status})
	return nil
}

func (s *IoTService) SetMaxTemp(ctx context.Context, actorUID string, temp float64) error {
	if err := s.tree.SetLeaf(ctx, maxTempLeaf, temp); err != nil {
		return err
	}
	s.recordAudit(ctx, "iot.set_max_temp", actorUID, map[string]interface{}{"maxTemp": temp})
	return nil
}

// IngestReading writes a device telemetry sample into the sensor
// leaves. Leaves are written individually so the config subtree is
// never touched.
func (s *IoTService) IngestReading(ctx context.Context, reading types.SensorReading, withHeatIndex bool) error {
	if err := s.tree.SetLeaf(ctx, temperatureLeaf, reading.Temperature); err != nil {
		return err
	}
	if err := s.tree.SetLeaf(ctx, humidityLeaf, reading.Humidity); err != nil {
		return err
	}
	if withHeatIndex {
		if err := s.tree.SetLeaf(ctx, heatIndexLeaf, reading.HeatIndex); err != nil {
			return err
		}
	}
	return nil
}

func (s *IoTService) recordAudit(ctx context.Context, action, actorUID string, payload map[string]interface{}) {
	entry := types.AuditLogEntry{
		Action:    action,
		ActorUID:  actorUID,
		NewValue:  payload,
		Timestamp: time.Now().UTC(),
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("failed to append audit log entry")
	}
}
