package firebase

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"github.com/smartfarm-iot/apiserver/config"
	"google.golang.org/api/option"
)

// Clients bundles the Firebase Admin SDK handles used by the app.
// It is constructed once at process start and passed down explicitly;
// nothing resolves it through package-level state.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
	Database  *db.Client
}

// NewClients initializes the Admin SDK and derives the auth,
// Firestore, and realtime database clients from it.
func NewClients(ctx context.Context, cfg config.FirebaseConfig) (*Clients, error) {
	if len(cfg.ServiceAccountJSON) == 0 {
		return nil, errors.New("firebase service account is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("firebase database url is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
	}, option.WithCredentialsJSON(cfg.ServiceAccountJSON))
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}

	dbClient, err := app.Database(ctx)
	if err != nil {
		_ = firestoreClient.Close()
		return nil, err
	}

	return &Clients{
		Auth:      authClient,
		Firestore: firestoreClient,
		Database:  dbClient,
	}, nil
}

// Close releases the underlying client connections.
func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
