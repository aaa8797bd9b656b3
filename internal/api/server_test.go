package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/monitoring"
	"github.com/tres-passos/marketplace/internal/store"
	"github.com/tres-passos/marketplace/internal/users"
)

type fakeCatalog struct {
	services  []model.Service
	cleared   int
	lastScope model.CatalogScope
}

func (f *fakeCatalog) GetAllServices(context.Context) []model.Service { return f.services }

func (f *fakeCatalog) ClearCache() { f.cleared++ }

func (f *fakeCatalog) GetQuestions(_ context.Context, scope model.CatalogScope) []model.Question {
	f.lastScope = scope
	return []model.Question{{ID: "q1", Question: "Qual o tamanho?"}}
}

func (f *fakeCatalog) GetServiceItems(_ context.Context, scope model.CatalogScope) []model.ServiceItem {
	f.lastScope = scope
	return []model.ServiceItem{{ID: "i1", Name: "Tomada"}}
}

type fakeMatcher struct {
	matches   []model.ProviderMatch
	details   map[string]*model.ProviderDetails
	send      model.SendResult
	lastQuote model.QuoteDetails
	lastID    string
}

func (f *fakeMatcher) FindMatchingProviders(_ context.Context, q model.QuoteDetails) []model.ProviderMatch {
	f.lastQuote = q
	return f.matches
}

func (f *fakeMatcher) GetProviderDetails(_ context.Context, id string) (*model.ProviderDetails, bool) {
	d, ok := f.details[id]
	return d, ok
}

func (f *fakeMatcher) SendQuoteToProvider(_ context.Context, q model.QuoteDetails, id string) model.SendResult {
	f.lastQuote, f.lastID = q, id
	return f.send
}

type fakeUsers struct {
	list      []model.UserListItem
	updateErr error
	updated   model.ProfileUpdate
}

func (f *fakeUsers) List(context.Context) []model.UserListItem { return f.list }

func (f *fakeUsers) UpdateProfile(_ context.Context, _ string, u model.ProfileUpdate) error {
	if u.Empty() {
		return users.ErrEmptyUpdate
	}
	f.updated = u
	return f.updateErr
}

type fakeHealth struct{ status monitoring.Status }

func (f fakeHealth) Status() monitoring.Status { return f.status }

type testServer struct {
	catalog *fakeCatalog
	matcher *fakeMatcher
	users   *fakeUsers
	handler http.Handler
}

func newTestServer(health Health) *testServer {
	ts := &testServer{
		catalog: &fakeCatalog{services: []model.Service{{ID: "s1", Name: "Pintura"}}},
		matcher: &fakeMatcher{details: map[string]*model.ProviderDetails{}},
		users:   &fakeUsers{},
	}
	ts.handler = NewRouter(Deps{
		Catalog: ts.catalog,
		Matcher: ts.matcher,
		Users:   ts.users,
		Health:  health,
	}, []string{"https://3passos.com.br"})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	rec := newTestServer(nil).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]any](t, rec)["status"])

	healthy := fakeHealth{monitoring.Status{Healthy: true, CheckedAt: time.Now()}}
	rec = newTestServer(healthy).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := fakeHealth{monitoring.Status{Healthy: false, Error: "connection refused"}}
	rec = newTestServer(down).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["store"].(map[string]any)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	ts.do(t, http.MethodGet, "/api/services", "")

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marketplace_http_requests_total{method="GET",route="/api/services",status="200"}`)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/services", nil)
	req.Header.Set("Origin", "https://3passos.com.br")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://3passos.com.br", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(t, http.MethodGet, "/api/services", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pintura", decodeBody[[]model.Service](t, rec)[0].Name)

	rec = ts.do(t, http.MethodDelete, "/api/services/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, ts.catalog.cleared)

	rec = ts.do(t, http.MethodGet, "/api/questions?sub_service_id=ss1&specialty_id=sp1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CatalogScope{SubServiceID: "ss1", SpecialtyID: "sp1"}, ts.catalog.lastScope)
	assert.Len(t, decodeBody[[]model.Question](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/service-items?service_id=s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tomada", decodeBody[[]model.ServiceItem](t, rec)[0].Name)

	for _, path := range []string{"/api/questions", "/api/service-items?service_id=%20"} {
		rec = ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decodeBody[errorBody](t, rec).Error, "required")
	}
}

func TestMatchRoute(t *testing.T) {
	ts := newTestServer(nil)
	ts.matcher.matches = []model.ProviderMatch{{Provider: model.Provider{UserID: "p1"}, IsWithinRadius: true}}

	rec := ts.do(t, http.MethodPost, "/api/matches", `{"serviceId":"s1","specialtyId":"sp1","address":{"city":"São Paulo"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]model.ProviderMatch](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].Provider.UserID)
	assert.Equal(t, "sp1", ts.matcher.lastQuote.SpecialtyID)
	assert.Equal(t, "São Paulo", ts.matcher.lastQuote.Address.City)

	rec = ts.do(t, http.MethodPost, "/api/matches", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/matches", `{"serviceId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeBody[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/api/matches", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is empty", decodeBody[errorBody](t, rec).Error)
}

func TestProviderRoute(t *testing.T) {
	ts := newTestServer(nil)
	ts.matcher.details["p1"] = &model.ProviderDetails{
		ProviderMatch: model.ProviderMatch{Provider: model.Provider{UserID: "p1", Name: "Maria"}},
		Rating:        4.5,
	}

	rec := ts.do(t, http.MethodGet, "/api/providers/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[model.ProviderDetails](t, rec)
	assert.Equal(t, "Maria", got.Provider.Name)
	assert.Equal(t, 4.5, got.Rating)

	rec = ts.do(t, http.MethodGet, "/api/providers/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendQuoteRoute(t *testing.T) {
	tests := []struct {
		name   string
		result model.SendResult
		status int
	}{
		{"login required", model.SendResult{Message: "login required", RequiresLogin: true}, http.StatusUnauthorized},
		{"failed", model.SendResult{Message: "failed to send quote to provider"}, http.StatusInternalServerError},
		{"sent", model.SendResult{Success: true, Message: "quote sent", QuoteID: "q1"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			ts.matcher.send = tt.result

			rec := ts.do(t, http.MethodPost, "/api/providers/p9/quotes", `{"quoteId":"q1","clientId":"c1"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.result, decodeBody[model.SendResult](t, rec))
			assert.Equal(t, "p9", ts.matcher.lastID)
			assert.Equal(t, "q1", ts.matcher.lastQuote.QuoteID)
		})
	}
}

func TestUsersRoutes(t *testing.T) {
	ts := newTestServer(nil)
	ts.users.list = []model.UserListItem{
		{ID: "u1", Name: "José", Email: "jose@example.com", Role: model.RoleClient},
		{ID: "u2", Name: "Ana", Email: "ana@example.com", Role: model.RoleAdmin},
	}

	rec := ts.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.UserListItem](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/users?search=jose", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]model.UserListItem](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/users?search=ana&format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheet[users.SheetName].Rows, 2)
}

func TestUpdateProfileRoute(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(t, http.MethodPatch, "/api/users/u1/profile", `{"name":"Maria Souza"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, ts.users.updated.Name)
	assert.Equal(t, "Maria Souza", *ts.users.updated.Name)

	rec = ts.do(t, http.MethodPatch, "/api/users/u1/profile", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.users.updateErr = store.ErrNotFound
	rec = ts.do(t, http.MethodPatch, "/api/users/ghost/profile", `{"phone":"11 9999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.users.updateErr = errors.New("boom")
	rec = ts.do(t, http.MethodPatch, "/api/users/u1/profile", `{"phone":"11 9999"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to update profile", decodeBody[errorBody](t, rec).Error)
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	ts := newTestServer(nil)
	big := `{"serviceId":"` + string(bytes.Repeat([]byte("x"), maxBodyBytes)) + `"}`
	rec := ts.do(t, http.MethodPost, "/api/matches", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
