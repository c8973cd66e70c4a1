package livestate

import (
	"context"
	"errors"
	"time"

	"firebase.google.com/go/v4/db"
)

// ErrNoData is returned when the requested subtree does not exist.
var ErrNoData = errors.New("no data at live path")

// Tree defines the realtime key-path operations used by the app:
// read a subtree, write a leaf. State under the tree is owned by the
// devices and the actuator config endpoints; the app never caches it.
type Tree interface {
	// Snapshot reads the subtree rooted at path.
	Snapshot(ctx context.Context, path string) (map[string]interface{}, error)

	// SetLeaf overwrites the value at path.
	SetLeaf(ctx context.Context, path string, value interface{}) error
}

// RealtimeTree implements Tree on the Firebase Realtime Database.
type RealtimeTree struct {
	client  *db.Client
	timeout time.Duration
}

// NewRealtimeTree constructs a RealtimeTree from the shared client.
func NewRealtimeTree(client *db.Client, timeout time.Duration) *RealtimeTree {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RealtimeTree{client: client, timeout: timeout}
}

func (t *RealtimeTree) Snapshot(ctx context.Context, path string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var snapshot map[string]interface{}
	if err := t.client.NewRef(path).Get(ctx, &snapshot); err != nil {
		return nil, err
	}
	// A missing subtree reads back as null, not as an error.
	if len(snapshot) == 0 {
		return nil, ErrNoData
	}
	return snapshot, nil
}

func (t *RealtimeTree) SetLeaf(ctx context.Context, path string, value interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.client.NewRef(path).Set(ctx, value)
}

var _ Tree = (*RealtimeTree)(nil)
