package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// iotFixture wires the IoT routes behind the real authorization
// pipeline with an admin and a farmer token.
func iotFixture(t *testing.T) (*chi.Mux, *fakeTree, *fakeLogSink) {
	t.Helper()

	gateway := newFakeGateway()
	gateway.tokens["admin-token"] = identity.Token{
		UID: "admin-1", Claims: map[string]interface{}{"role": types.RoleAdmin},
	}
	gateway.tokens["farmer-token"] = identity.Token{
		UID: "farmer-1", Claims: map[string]interface{}{"role": types.RoleFarmer},
	}
	accounts := newFakeAccounts()
	accounts.accounts["admin-1"] = types.Account{UID: "admin-1", Role: types.RoleAdmin}
	accounts.accounts["farmer-1"] = types.Account{UID: "farmer-1", Role: types.RoleFarmer}

	tree := newFakeTree()
	sink := &fakeLogSink{}
	iot := services.NewIoTService(tree, sink, testLogger())
	authn := NewAuthenticator(gateway, accounts, testLogger())

	router := chi.NewRouter()
	router.Route("/iot", func(r chi.Router) {
		IoTRouter(r, iot, authn)
	})
	return router, tree, sink
}

func TestIoTStatus(t *testing.T) {
	router, tree, _ := iotFixture(t)
	tree.snapshots["iot1"] = map[string]interface{}{"temp": 28.0, "humbd": 80.0, "hic": 32.0}

	rec := doRequest(router, http.MethodGet, "/iot/status", "farmer-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "success", envelope.Status)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, 28.0, data["temp"])
}

func TestIoTStatusNoData(t *testing.T) {
	router, _, _ := iotFixture(t)

	rec := doRequest(router, http.MethodGet, "/iot/status", "farmer-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "error", envelope.Status)
	assert.Nil(t, envelope.Data)
}

func TestIoTWritesAreAdminOnly(t *testing.T) {
	router, tree, _ := iotFixture(t)

	body := `{"status": true}`
	rec := doRequest(router, http.MethodPost, "/iot/blower", "farmer-token", strings.NewReader(body))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, tree.leaves, "iot1/config/blower")

	rec = doRequest(router, http.MethodPost, "/iot/blower", "admin-token", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, tree.leaves["iot1/config/blower"])
}

func TestIoTSetMaxTempValidation(t *testing.T) {
	router, tree, sink := iotFixture(t)

	rec := doRequest(router, http.MethodPost, "/iot/maxtemp", "admin-token", strings.NewReader(`{"temp": "hot"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/iot/maxtemp", "admin-token", strings.NewReader(`{"temp": 30}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, tree.leaves["iot1/config/maxTemp"])

	require.Len(t, sink.audit, 1)
	assert.Equal(t, "iot.set_max_temp", sink.audit[0].Action)
	assert.Equal(t, "admin-1", sink.audit[0].ActorUID)
}

func TestIoTSetAutomationRequiresBoolean(t *testing.T) {
	router, _, _ := iotFixture(t)

	rec := doRequest(router, http.MethodPost, "/iot/automation", "admin-token", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
