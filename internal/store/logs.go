package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/smartfarm-iot/apiserver/types"
	"google.golang.org/api/iterator"
)

const (
	auditLogsCollection  = "audit_logs"
	systemLogsCollection = "system_logs"
)

// LogRepository handles the append-only audit and system log
// collections. Entries are never updated or deleted.
type LogRepository struct {
	db      *firestore.Client
	timeout time.Duration
}

func NewLogRepository(db *firestore.Client, timeout time.Duration) *LogRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LogRepository{db: db, timeout: timeout}
}

func (r *LogRepository) AppendAudit(ctx context.Context, entry types.AuditLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.db.Collection(auditLogsCollection).Doc(entry.ID).Create(ctx, entry)
	return err
}

func (r *LogRepository) RecentAudit(ctx context.Context, limit int) ([]types.AuditLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.db.Collection(auditLogsCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var entries []types.AuditLogEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var entry types.AuditLogEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *LogRepository) AppendSystem(ctx context.Context, entry types.SystemLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.db.Collection(systemLogsCollection).Doc(entry.ID).Create(ctx, entry)
	return err
}

func (r *LogRepository) RecentSystem(ctx context.Context, limit int) ([]types.SystemLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.db.Collection(systemLogsCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var entries []types.SystemLogEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var entry types.SystemLogEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
