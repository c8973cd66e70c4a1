package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/smartfarm-iot/apiserver/config"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// FirebaseGateway implements Gateway on top of the Firebase Admin SDK
// and the Identity Toolkit REST API. The Admin SDK has no password
// sign-in, so SignIn goes through the REST endpoint with the web API
// key, the same call the web clients make.
type FirebaseGateway struct {
	auth       *auth.Client
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewFirebaseGateway constructs a gateway from the shared auth client.
func NewFirebaseGateway(authClient *auth.Client, cfg config.FirebaseConfig, timeout time.Duration) *FirebaseGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FirebaseGateway{
		auth:       authClient,
		apiKey:     cfg.WebAPIKey,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

func (g *FirebaseGateway) VerifyToken(ctx context.Context, idToken string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	verified, err := g.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Token{UID: verified.UID, Claims: verified.Claims}, nil
}

func (g *FirebaseGateway) SignIn(ctx context.Context, email, password string) (Session, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return Session{}, err
	}

	url := fmt.Sprintf("%s?key=%s", signInEndpoint, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	var body struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		LocalID      string `json:"localId"`
		Error        *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Session{}, err
	}

	if resp.StatusCode != http.StatusOK || body.Error != nil {
		message := ""
		if body.Error != nil {
			message = body.Error.Message
		}
		if isCredentialRejection(message) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("identity toolkit sign-in failed: %s", message)
	}

	return Session{
		IDToken:      body.IDToken,
		RefreshToken: body.RefreshToken,
		UID:          body.LocalID,
	}, nil
}

// isCredentialRejection recognizes the Identity Toolkit error codes
// that mean the caller's credentials were wrong rather than the call
// itself failing.
func isCredentialRejection(message string) bool {
	switch {
	case strings.HasPrefix(message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(message, "INVALID_PASSWORD"),
		strings.HasPrefix(message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(message, "USER_DISABLED"):
		return true
	}
	return false
}

func (g *FirebaseGateway) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name)

	record, err := g.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return record.UID, nil
}

func (g *FirebaseGateway) SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.auth.SetCustomUserClaims(ctx, uid, claims)
}

func (g *FirebaseGateway) UpdatePassword(ctx context.Context, uid, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.auth.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(newPassword))
	return err
}

func (g *FirebaseGateway) RevokeTokens(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.auth.RevokeRefreshTokens(ctx, uid)
}

func (g *FirebaseGateway) Disable(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.auth.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Disabled(true))
	return err
}

var _ Gateway = (*FirebaseGateway)(nil)
