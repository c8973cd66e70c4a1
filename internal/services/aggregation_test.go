package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTree struct {
	snapshot    map[string]interface{}
	snapshotErr error
	leaves      map[string]interface{}
	setErr      error
}

func newFakeTree() *fakeTree {
	return &fakeTree{leaves: map[string]interface{}{}}
}

func (t *fakeTree) Snapshot(ctx context.Context, path string) (map[string]interface{}, error) {
	if t.snapshotErr != nil {
		return nil, t.snapshotErr
	}
	if len(t.snapshot) == 0 {
		return nil, livestate.ErrNoData
	}
	return t.snapshot, nil
}

func (t *fakeTree) SetLeaf(ctx context.Context, path string, value interface{}) error {
	if t.setErr != nil {
		return t.setErr
	}
	t.leaves[path] = value
	return nil
}

type fakeDailyStore struct {
	records   map[string]types.DailySensorRecord
	upsertErr error
	deleteErr error
	deleted   []string
}

func newFakeDailyStore() *fakeDailyStore {
	return &fakeDailyStore{records: map[string]types.DailySensorRecord{}}
}

func (s *fakeDailyStore) Get(ctx context.Context, dateKey string) (types.DailySensorRecord, error) {
	record, ok := s.records[dateKey]
	if !ok {
		return types.DailySensorRecord{}, store.ErrNotFound
	}
	return record, nil
}

func (s *fakeDailyStore) Upsert(ctx context.Context, record types.DailySensorRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[record.DateKey] = record
	return nil
}

func (s *fakeDailyStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time, excludeKey string) (int, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	count := 0
	for key, record := range s.records {
		if key == excludeKey {
			continue
		}
		if record.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			s.deleted = append(s.deleted, key)
			count++
		}
	}
	return count, nil
}

func (s *fakeDailyStore) ListSince(ctx context.Context, since time.Time) ([]types.DailySensorRecord, error) {
	var out []types.DailySensorRecord
	for _, record := range s.records {
		if !record.LastUpdatedAt.Before(since) {
			out = append(out, record)
		}
	}
	return out, nil
}

type fakeLogSink struct {
	audit  []types.AuditLogEntry
	system []types.SystemLogEntry
}

func (s *fakeLogSink) AppendAudit(ctx context.Context, entry types.AuditLogEntry) error {
	s.audit = append(s.audit, entry)
	return nil
}

func (s *fakeLogSink) AppendSystem(ctx context.Context, entry types.SystemLogEntry) error {
	s.system = append(s.system, entry)
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newAggregation(tree livestate.Tree, records DailyRecordStore) (*AggregationService, *fakeLogSink) {
	sink := &fakeLogSink{}
	return NewAggregationService(tree, records, sink, testLogger()), sink
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestAggregationFirstRunCreatesDailyMax(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 31.0, "humbd": 77.0, "hic": 33.5}
	records := newFakeDailyStore()
	svc, sink := newAggregation(tree, records)

	now := day("2024-06-01").Add(10 * time.Hour)
	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01", result.DateKey)
	assert.Equal(t, 31.0, result.MaxTemperature)
	assert.Equal(t, 77.0, result.MaxHumidity)
	assert.Equal(t, 31.0, result.ObservedTemperature)
	assert.Equal(t, 77.0, result.ObservedHumidity)
	assert.Equal(t, 0, result.Deleted)

	stored := records.records["2024-06-01"]
	assert.Equal(t, 31.0, stored.MaxTemperature)
	assert.Equal(t, 77.0, stored.MaxHumidity)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, now, stored.LastUpdatedAt)

	require.Len(t, sink.system, 1)
	assert.Equal(t, "aggregation.run", sink.system[0].Action)
}

func TestAggregationSecondRunFoldsMax(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 31.0, "humbd": 77.0}
	records := newFakeDailyStore()
	svc, _ := newAggregation(tree, records)

	first := day("2024-06-01").Add(8 * time.Hour)
	_, err := svc.Run(context.Background(), first)
	require.NoError(t, err)

	// A later run with a lower temperature and higher humidity raises
	// only the humidity.
	tree.snapshot = map[string]interface{}{"temp": 29.0, "humbd": 80.0}
	second := day("2024-06-01").Add(16 * time.Hour)
	result, err := svc.Run(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, 31.0, result.MaxTemperature)
	assert.Equal(t, 80.0, result.MaxHumidity)

	stored := records.records["2024-06-01"]
	assert.Equal(t, 31.0, stored.MaxTemperature)
	assert.Equal(t, 80.0, stored.MaxHumidity)
	assert.Equal(t, first, stored.CreatedAt, "createdAt preserved across runs")
	assert.Equal(t, second, stored.LastUpdatedAt)
}

func TestAggregationIdempotentUnderNonIncreasingReadings(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 30.0, "humbd": 70.0}
	records := newFakeDailyStore()
	svc, _ := newAggregation(tree, records)

	now := day("2024-06-02").Add(6 * time.Hour)
	_, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	tree.snapshot = map[string]interface{}{"temp": 28.0, "humbd": 65.0}
	result, err := svc.Run(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 30.0, result.MaxTemperature)
	assert.Equal(t, 70.0, result.MaxHumidity)
}

func TestAggregationMonotonicOverSequence(t *testing.T) {
	tree := newFakeTree()
	records := newFakeDailyStore()
	svc, _ := newAggregation(tree, records)

	readings := []float64{25, 31, 27, 30.5, 29}
	base := day("2024-06-03")
	for i, temp := range readings {
		tree.snapshot = map[string]interface{}{"temp": temp, "humbd": 50.0}
		_, err := svc.Run(context.Background(), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	assert.Equal(t, 31.0, records.records["2024-06-03"].MaxTemperature)
}

func TestAggregationRetention(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 20.0, "humbd": 40.0}
	records := newFakeDailyStore()
	svc, _ := newAggregation(tree, records)

	today := day("2024-06-20")
	seed := map[string]int{
		"2024-05-31": 20, // D-20
		"2024-06-05": 15, // D-15
		"2024-06-06": 14, // D-14
		"2024-06-19": 1,  // D-1
	}
	for key, age := range seed {
		records.records[key] = types.DailySensorRecord{
			DateKey:   key,
			CreatedAt: today.AddDate(0, 0, -age),
		}
	}
	// Today's record predates the window (e.g. a skewed clock wrote
	// it early); it must survive regardless.
	records.records["2024-06-20"] = types.DailySensorRecord{
		DateKey:   "2024-06-20",
		CreatedAt: today.AddDate(0, 0, -30),
	}

	result, err := svc.Run(context.Background(), today)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Deleted)
	assert.NotContains(t, records.records, "2024-05-31")
	assert.NotContains(t, records.records, "2024-06-05")
	assert.Contains(t, records.records, "2024-06-06")
	assert.Contains(t, records.records, "2024-06-19")
	assert.Contains(t, records.records, "2024-06-20")
}

func TestAggregationNoLiveData(t *testing.T) {
	tree := newFakeTree()
	records := newFakeDailyStore()
	svc, sink := newAggregation(tree, records)

	_, err := svc.Run(context.Background(), day("2024-06-01"))
	require.ErrorIs(t, err, livestate.ErrNoData)
	assert.Empty(t, records.records, "nothing written without live data")
	assert.Empty(t, sink.system)
}

func TestAggregationDefaultsMissingFieldsToZero(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"hic": 30.0}
	records := newFakeDailyStore()
	svc, _ := newAggregation(tree, records)

	result, err := svc.Run(context.Background(), day("2024-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.MaxTemperature)
	assert.Equal(t, 0.0, result.MaxHumidity)
}

func TestAggregationUpsertFailureSkipsPrune(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 25.0, "humbd": 60.0}
	records := newFakeDailyStore()
	records.upsertErr = errors.New("write failed")
	records.records["2024-05-01"] = types.DailySensorRecord{
		DateKey:   "2024-05-01",
		CreatedAt: day("2024-05-01"),
	}
	svc, sink := newAggregation(tree, records)

	_, err := svc.Run(context.Background(), day("2024-06-10"))
	require.Error(t, err)
	assert.Contains(t, records.records, "2024-05-01", "prune must not run after a failed upsert")

	require.Len(t, sink.system, 1)
	assert.Equal(t, "aggregation.failed", sink.system[0].Action)
}

func TestAggregationPruneFailureKeepsUpsert(t *testing.T) {
	tree := newFakeTree()
	tree.snapshot = map[string]interface{}{"temp": 25.0, "humbd": 60.0}
	records := newFakeDailyStore()
	records.deleteErr = errors.New("batch failed")
	svc, _ := newAggregation(tree, records)

	now := day("2024-06-10")
	_, err := svc.Run(context.Background(), now)
	require.Error(t, err)

	stored, ok := records.records["2024-06-10"]
	require.True(t, ok, "the upsert has already landed when the prune fails")
	assert.Equal(t, 25.0, stored.MaxTemperature)
}
