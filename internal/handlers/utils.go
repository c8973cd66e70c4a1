package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smartfarm-iot/apiserver/types"
)

type contextKey string

const contextAuthKey contextKey = "auth"

// Envelope is the uniform response body used by every endpoint.
// Data is null on errors.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Envelope{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: "error", Message: message, Data: nil})
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// AuthFromContext returns the authenticated identity attached by the
// authorization pipeline.
func AuthFromContext(ctx context.Context) (types.AuthContext, bool) {
	authCtx, ok := ctx.Value(contextAuthKey).(types.AuthContext)
	return authCtx, ok
}

func withAuthContext(ctx context.Context, authCtx types.AuthContext) context.Context {
	return context.WithValue(ctx, contextAuthKey, authCtx)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
