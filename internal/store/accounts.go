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

const (
	accountsCollection = "users"
	archivedCollection = "deleted_users"
)

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db      *firestore.Client
	timeout time.Duration
}

func NewAccountRepository(db *firestore.Client, timeout time.Duration) *AccountRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AccountRepository{db: db, timeout: timeout}
}

func (r *AccountRepository) GetByUID(ctx context.Context, uid string) (types.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.db.Collection(accountsCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}

	var account types.Account
	if err := snap.DataTo(&account); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Collection(accountsCollection).Doc(account.UID).Set(ctx, account)
	return err
}

// UpdateFields applies a partial update to the account document.
func (r *AccountRepository) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	_, err := r.db.Collection(accountsCollection).Doc(uid).Update(ctx, updates)
	if err != nil && status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (r *AccountRepository) List(ctx context.Context) ([]types.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.db.Collection(accountsCollection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var accounts []types.Account
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var account types.Account
		if err := snap.DataTo(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// UsernameTaken reports whether the username is used by any account
// other than excludeUID, across both live and archived documents.
// This is a read-then-write uniqueness check with no transactional
// guard; two concurrent writers can both pass it (accepted limitation).
func (r *AccountRepository) UsernameTaken(ctx context.Context, username, excludeUID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, collection := range []string{accountsCollection, archivedCollection} {
		// Limit(2): one matching doc may be the excluded account
		// itself, and a duplicate holder behind it must still be seen.
		iter := r.db.Collection(collection).
			Where("username", "==", username).
			Limit(2).
			Documents(ctx)

		var holders []types.Account
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return false, err
			}
			var account types.Account
			if err := snap.DataTo(&account); err != nil {
				iter.Stop()
				return false, err
			}
			holders = append(holders, account)
		}
		iter.Stop()

		if heldByOther(holders, excludeUID) {
			return true, nil
		}
	}
	return false, nil
}

// heldByOther reports whether any of the fetched holders is an account
// other than excludeUID.
func heldByOther(holders []types.Account, excludeUID string) bool {
	for _, holder := range holders {
		if holder.UID != excludeUID {
			return true
		}
	}
	return false
}

// SoftDelete copies the account into the archival collection and flags
// the live document, in a single atomic batch. The live document is
// never removed.
func (r *AccountRepository) SoftDelete(ctx context.Context, account types.Account, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	account.IsDeleted = true
	account.DeletedAt = now

	batch := r.db.Batch()
	batch.Set(r.db.Collection(archivedCollection).Doc(account.UID), account)
	batch.Update(r.db.Collection(accountsCollection).Doc(account.UID), []firestore.Update{
		{Path: "isDeleted", Value: true},
		{Path: "deletedAt", Value: now},
	})
	_, err := batch.Commit(ctx)
	if err != nil && status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}
