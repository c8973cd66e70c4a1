package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

const sensorLogWindow = 7 * 24 * time.Hour

// DailyRecordReader lists daily sensor records for the read endpoint.
type DailyRecordReader interface {
	ListSince(ctx context.Context, since time.Time) ([]types.DailySensorRecord, error)
}

// LogReader reads the append-only log collections.
type LogReader interface {
	RecentAudit(ctx context.Context, limit int) ([]types.AuditLogEntry, error)
	RecentSystem(ctx context.Context, limit int) ([]types.SystemLogEntry, error)
}

// AccountGetter is the read-only slice of the account repository the
// audit log join needs.
type AccountGetter interface {
	GetByUID(ctx context.Context, uid string) (types.Account, error)
}

// LogService encapsulates the log read endpoints.
type LogService struct {
	records  DailyRecordReader
	logs     LogReader
	accounts AccountGetter
	log      logrus.FieldLogger
}

func NewLogService(records DailyRecordReader, logs LogReader, accounts AccountGetter, log logrus.FieldLogger) *LogService {
	return &LogService{records: records, logs: logs, accounts: accounts, log: log}
}

// SensorLogs returns the daily sensor records of the last seven days,
// newest first.
func (s *LogService) SensorLogs(ctx context.Context, now time.Time) ([]types.DailySensorRecord, error) {
	return s.records.ListSince(ctx, now.Add(-sensorLogWindow))
}

// AuditLogs returns the newest audit entries with the actor joined in
// from the live account documents at read time. The join degrades
// instead of failing: a missing or unreadable actor yields a
// placeholder, never an error for the whole request.
func (s *LogService) AuditLogs(ctx context.Context, limit int) ([]types.AuditLogView, error) {
	entries, err := s.logs.RecentAudit(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]types.AuditLogView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, types.AuditLogView{
			AuditLogEntry: entry,
			User:          s.joinActor(ctx, entry.ActorUID),
		})
	}
	return views, nil
}

func (s *LogService) joinActor(ctx context.Context, uid string) types.AuditActor {
	if uid == "" {
		return types.AuditActor{Name: "Unknown User"}
	}

	account, err := s.accounts.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.AuditActor{Name: "User Not Found"}
		}
		s.log.WithError(err).WithField("uid", uid).Warn("audit log actor join failed")
		return types.AuditActor{Name: "Error Fetching User"}
	}

	return types.AuditActor{
		Email:    account.Email,
		Name:     account.Name,
		Phone:    account.Phone,
		Role:     account.Role,
		Username: account.Username,
	}
}

// SystemLogs returns the newest system entries.
func (s *LogService) SystemLogs(ctx context.Context, limit int) ([]types.SystemLogEntry, error) {
	return s.logs.RecentSystem(ctx, limit)
}
