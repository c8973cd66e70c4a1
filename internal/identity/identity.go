package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a bearer token fails verification:
// expired, malformed, revoked, or badly signed.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrInvalidCredentials is returned when password sign-in is rejected.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when account creation collides with an
// existing email.
var ErrEmailTaken = errors.New("email already in use")

// Token is a verified bearer token.
type Token struct {
	// UID is the token subject.
	UID string

	// Claims carries the raw verified claims, including any custom
	// role or isDeleted claim set by this system.
	Claims map[string]interface{}
}

// Session is the result of a successful password sign-in.
type Session struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	UID          string `json:"uid"`
}

// Gateway defines the identity-provider operations used by the app.
// Credential storage, token issuance, and verification all live on the
// provider side; this interface is the app's only view of them.
type Gateway interface {
	// VerifyToken verifies a bearer token, including a revocation
	// check so that tokens issued before the account's most recent
	// forced invalidation are rejected.
	VerifyToken(ctx context.Context, idToken string) (Token, error)

	// SignIn exchanges an email/password pair for a session.
	SignIn(ctx context.Context, email, password string) (Session, error)

	// CreateAccount provisions a new identity and returns its uid.
	CreateAccount(ctx context.Context, email, password, name string) (string, error)

	// SetClaims replaces the custom claims embedded in future tokens.
	SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error

	// UpdatePassword replaces the account's password.
	UpdatePassword(ctx context.Context, uid, newPassword string) error

	// RevokeTokens forces invalidation of all outstanding tokens.
	RevokeTokens(ctx context.Context, uid string) error

	// Disable blocks the account from signing in.
	Disable(ctx context.Context, uid string) error
}
