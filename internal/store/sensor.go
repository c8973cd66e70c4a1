package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/smartfarm-iot/apiserver/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sensorLogsCollection = "sensor_logs"

// DailyRecordRepository handles persistence for the per-day sensor
// aggregates. Documents are keyed by the ISO date key.
type DailyRecordRepository struct {
	db      *firestore.Client
	timeout time.Duration
}

func NewDailyRecordRepository(db *firestore.Client, timeout time.Duration) *DailyRecordRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DailyRecordRepository{db: db, timeout: timeout}
}

func (r *DailyRecordRepository) Get(ctx context.Context, dateKey string) (types.DailySensorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.db.Collection(sensorLogsCollection).Doc(dateKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.DailySensorRecord{}, ErrNotFound
		}
		return types.DailySensorRecord{}, err
	}

	var record types.DailySensorRecord
	if err := snap.DataTo(&record); err != nil {
		return types.DailySensorRecord{}, err
	}
	return record, nil
}

// dailyRecordData flattens a record into the document field map. The
// client rejects MergeAll writes of struct data, so the merge has to go
// through a map.
func dailyRecordData(record types.DailySensorRecord) map[string]interface{} {
	return map[string]interface{}{
		"dateKey":        record.DateKey,
		"maxTemperature": record.MaxTemperature,
		"maxHumidity":    record.MaxHumidity,
		"timestamp":      record.LastUpdatedAt,
		"createdAt":      record.CreatedAt,
	}
}

// Upsert merges the record into its document, creating it if absent.
func (r *DailyRecordRepository) Upsert(ctx context.Context, record types.DailySensorRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Collection(sensorLogsCollection).Doc(record.DateKey).
		Set(ctx, dailyRecordData(record), firestore.MergeAll)
	return err
}

// DeleteCreatedBefore removes every record created strictly before
// cutoff, except the one keyed excludeKey, as one atomic batch. It
// returns the number of records deleted.
func (r *DailyRecordRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time, excludeKey string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.db.Collection(sensorLogsCollection).
		Where("createdAt", "<", cutoff).
		Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		if snap.Ref.ID == excludeKey {
			continue
		}
		refs = append(refs, snap.Ref)
	}

	if len(refs) == 0 {
		return 0, nil
	}

	batch := r.db.Batch()
	for _, ref := range refs {
		batch.Delete(ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}
	return len(refs), nil
}

// ListSince returns records last updated at or after since, newest
// first.
func (r *DailyRecordRepository) ListSince(ctx context.Context, since time.Time) ([]types.DailySensorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.db.Collection(sensorLogsCollection).
		Where("timestamp", ">=", since).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var records []types.DailySensorRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var record types.DailySensorRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
