package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

// retentionDays is how long daily sensor records are kept before the
// aggregation run prunes them.
const retentionDays = 14

// DailyRecordStore defines the persistence operations the aggregation
// job needs.
type DailyRecordStore interface {
	Get(ctx context.Context, dateKey string) (types.DailySensorRecord, error)
	Upsert(ctx context.Context, record types.DailySensorRecord) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time, excludeKey string) (int, error)
}

// SystemRecorder appends system log entries.
type SystemRecorder interface {
	AppendSystem(ctx context.Context, entry types.SystemLogEntry) error
}

// AggregationService folds live sensor readings into per-day maximum
// records and prunes expired ones. Runs are triggered externally by a
// scheduler; concurrent runs on the same day are not serialized. The
// fold is max(), so overlapping runs still converge on the true daily
// maximum whichever order their writes land in, though the deleted
// count and createdAt bookkeeping can race.
type AggregationService struct {
	tree    livestate.Tree
	records DailyRecordStore
	system  SystemRecorder
	log     logrus.FieldLogger
}

func NewAggregationService(tree livestate.Tree, records DailyRecordStore, system SystemRecorder, log logrus.FieldLogger) *AggregationService {
	return &AggregationService{tree: tree, records: records, system: system, log: log}
}

// Run executes one aggregation pass for the calendar day of now (UTC).
//
// It samples the live sensor snapshot, raises the day's stored maxima
// to at least the observed values, and deletes records created more
// than the retention window ago. Today's own record is never deleted,
// even if a skewed clock would select it. The upsert and the prune are
// two separate writes: if the upsert fails the prune never runs, and a
// prune failure leaves the already-landed upsert in place.
func (s *AggregationService) Run(ctx context.Context, now time.Time) (types.AggregationResult, error) {
	snapshot, err := s.tree.Snapshot(ctx, LiveSensorPath)
	if err != nil {
		if errors.Is(err, livestate.ErrNoData) {
			return types.AggregationResult{}, err
		}
		return types.AggregationResult{}, s.fail(ctx, fmt.Errorf("read live snapshot: %w", err))
	}

	observedTemp := numericField(snapshot, "temp")
	observedHumidity := numericField(snapshot, "humbd")

	dateKey := now.UTC().Format("2006-01-02")

	existing, err := s.records.Get(ctx, dateKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.AggregationResult{}, s.fail(ctx, fmt.Errorf("load daily record %s: %w", dateKey, err))
	}

	record := types.DailySensorRecord{
		DateKey:        dateKey,
		MaxTemperature: max(observedTemp, existing.MaxTemperature),
		MaxHumidity:    max(observedHumidity, existing.MaxHumidity),
		LastUpdatedAt:  now,
		CreatedAt:      existing.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if err := s.records.Upsert(ctx, record); err != nil {
		return types.AggregationResult{}, s.fail(ctx, fmt.Errorf("upsert daily record %s: %w", dateKey, err))
	}

	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.records.DeleteCreatedBefore(ctx, cutoff, dateKey)
	if err != nil {
		return types.AggregationResult{}, s.fail(ctx, fmt.Errorf("prune expired records: %w", err))
	}

	result := types.AggregationResult{
		DateKey:             dateKey,
		MaxTemperature:      record.MaxTemperature,
		MaxHumidity:         record.MaxHumidity,
		ObservedTemperature: observedTemp,
		ObservedHumidity:    observedHumidity,
		Deleted:             deleted,
	}

	s.log.WithFields(logrus.Fields{
		"dateKey": dateKey,
		"maxTemp": record.MaxTemperature,
		"maxHum":  record.MaxHumidity,
		"deleted": deleted,
	}).Info("daily aggregation run complete")

	s.recordSystem(ctx, "aggregation.run", map[string]interface{}{
		"dateKey":        result.DateKey,
		"maxTemperature": result.MaxTemperature,
		"maxHumidity":    result.MaxHumidity,
		"deleted":        result.Deleted,
	})
	return result, nil
}

func (s *AggregationService) fail(ctx context.Context, err error) error {
	s.log.WithError(err).Error("daily aggregation run failed")
	s.recordSystem(ctx, "aggregation.failed", map[string]interface{}{
		"error": err.Error(),
	})
	return err
}

func (s *AggregationService) recordSystem(ctx context.Context, action string, payload map[string]interface{}) {
	entry := types.SystemLogEntry{
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if err := s.system.AppendSystem(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("failed to append system log entry")
	}
}

// numericField reads a numeric leaf from a decoded snapshot,
// defaulting to 0 when the field is absent or not a number.
func numericField(snapshot map[string]interface{}, key string) float64 {
	switch v := snapshot[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
