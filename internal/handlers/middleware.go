package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

// Authenticator is the request authorization pipeline: it verifies the
// bearer token against the identity provider and cross-checks the
// persisted account record before attaching an AuthContext to the
// request.
type Authenticator struct {
	gateway  identity.Gateway
	accounts services.AccountGetter
	log      logrus.FieldLogger
}

func NewAuthenticator(gateway identity.Gateway, accounts services.AccountGetter, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{gateway: gateway, accounts: accounts, log: log}
}

// RequireAuth verifies the bearer token (with revocation check), then
// layers the soft-delete checks: the token's isDeleted claim is a fast
// path, and the persisted record is the authoritative signal since
// claim changes do not propagate into already-issued tokens. A missing
// account record is not fatal here; downstream handlers decide.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or malformed authorization token")
			return
		}

		verified, err := a.gateway.VerifyToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if claimBool(verified.Claims, "isDeleted") {
			writeError(w, http.StatusForbidden, "account disabled")
			return
		}

		authCtx := types.AuthContext{
			UID:    verified.UID,
			Role:   claimString(verified.Claims, "role"),
			Claims: verified.Claims,
		}

		account, err := a.accounts.GetByUID(r.Context(), verified.UID)
		switch {
		case err == nil:
			if account.IsDeleted {
				writeError(w, http.StatusForbidden, "account disabled")
				return
			}
			// Record role wins over the token claim: record edits
			// take effect without re-issuing tokens.
			if account.Role != "" {
				authCtx.Role = account.Role
			}
		case errors.Is(err, store.ErrNotFound):
			// Keep the token-derived role.
		default:
			a.log.WithError(err).WithField("uid", verified.UID).Error("account lookup failed during authentication")
			writeError(w, http.StatusInternalServerError, "failed to authenticate request")
			return
		}

		next.ServeHTTP(w, r.WithContext(withAuthContext(r.Context(), authCtx)))
	})
}

// RequireRole gates a route on the effective role from the
// AuthContext. Pure comparison, no I/O.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, ok := AuthFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing or malformed authorization token")
				return
			}
			if authCtx.Role != role {
				writeError(w, http.StatusForbidden, "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSharedSecret authenticates machine-to-machine calls by
// comparing the bearer token against a pre-shared secret. It never
// touches the identity provider or the record store. The comparison is
// constant-time to avoid trivially leaking a prefix match.
func RequireSharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil || secret == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// actorUID is a convenience for handlers that only need the subject.
func actorUID(ctx context.Context) string {
	authCtx, _ := AuthFromContext(ctx)
	return authCtx.UID
}

func claimBool(claims map[string]interface{}, key string) bool {
	v, _ := claims[key].(bool)
	return v
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
