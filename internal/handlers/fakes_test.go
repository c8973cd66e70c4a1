package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	tokens   map[string]identity.Token
	sessions map[string]identity.Session
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		tokens:   map[string]identity.Token{},
		sessions: map[string]identity.Session{},
	}
}

func (g *fakeGateway) VerifyToken(ctx context.Context, idToken string) (identity.Token, error) {
	token, ok := g.tokens[idToken]
	if !ok {
		return identity.Token{}, identity.ErrInvalidToken
	}
	return token, nil
}

func (g *fakeGateway) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	session, ok := g.sessions[email]
	if !ok {
		return identity.Session{}, identity.ErrInvalidCredentials
	}
	return session, nil
}

func (g *fakeGateway) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	return "uid-created", nil
}

func (g *fakeGateway) SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	return nil
}

func (g *fakeGateway) UpdatePassword(ctx context.Context, uid, newPassword string) error {
	return nil
}

func (g *fakeGateway) RevokeTokens(ctx context.Context, uid string) error { return nil }

func (g *fakeGateway) Disable(ctx context.Context, uid string) error { return nil }

type fakeAccounts struct {
	accounts map[string]types.Account
	lookups  int
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[string]types.Account{}}
}

func (a *fakeAccounts) GetByUID(ctx context.Context, uid string) (types.Account, error) {
	a.lookups++
	if a.err != nil {
		return types.Account{}, a.err
	}
	account, ok := a.accounts[uid]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (a *fakeAccounts) Create(ctx context.Context, account types.Account) error {
	a.accounts[account.UID] = account
	return nil
}

func (a *fakeAccounts) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	if _, ok := a.accounts[uid]; !ok {
		return store.ErrNotFound
	}
	return nil
}

func (a *fakeAccounts) List(ctx context.Context) ([]types.Account, error) {
	var out []types.Account
	for _, account := range a.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (a *fakeAccounts) UsernameTaken(ctx context.Context, username, excludeUID string) (bool, error) {
	for _, account := range a.accounts {
		if account.Username == username && account.UID != excludeUID {
			return true, nil
		}
	}
	return false, nil
}

func (a *fakeAccounts) SoftDelete(ctx context.Context, account types.Account, now time.Time) error {
	live := a.accounts[account.UID]
	live.IsDeleted = true
	live.DeletedAt = now
	a.accounts[account.UID] = live
	return nil
}

type fakeTree struct {
	snapshots map[string]map[string]interface{}
	leaves    map[string]interface{}
	setErr    error
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		snapshots: map[string]map[string]interface{}{},
		leaves:    map[string]interface{}{},
	}
}

func (t *fakeTree) Snapshot(ctx context.Context, path string) (map[string]interface{}, error) {
	snapshot, ok := t.snapshots[path]
	if !ok || len(snapshot) == 0 {
		return nil, livestate.ErrNoData
	}
	return snapshot, nil
}

func (t *fakeTree) SetLeaf(ctx context.Context, path string, value interface{}) error {
	if t.setErr != nil {
		return t.setErr
	}
	t.leaves[path] = value
	return nil
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

type fakeDailyStore struct {
	records map[string]types.DailySensorRecord
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
	s.records[record.DateKey] = record
	return nil
}

func (s *fakeDailyStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time, excludeKey string) (int, error) {
	count := 0
	for key, record := range s.records {
		if key != excludeKey && record.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			count++
		}
	}
	return count, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// decodeEnvelope reads the uniform response body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var envelope Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func doRequest(handler http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
