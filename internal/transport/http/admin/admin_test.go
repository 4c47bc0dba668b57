package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/exclusionsvc"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	excluded product.IDSet
	resolved []string
	day      time.Time
}

func (f *fakeAdmin) ListExcluded(context.Context) (product.IDSet, error) {
	return f.excluded, nil
}

func (f *fakeAdmin) ReplaceExcluded(_ context.Context, ids []string) (product.IDSet, error) {
	f.excluded = product.NewIDSet(ids...)

	return f.excluded, nil
}

func (f *fakeAdmin) ListProducts(context.Context) ([]exclusionsvc.CatalogueEntry, error) {
	return nil, nil
}

func (f *fakeAdmin) ListWarnings(context.Context) ([]timing.OrderTiming, error) {
	return []timing.OrderTiming{{OrderID: "o1", Status: timing.StatusWarning}}, nil
}

func (f *fakeAdmin) DailyStats(_ context.Context, day time.Time) (*timing.Stats, error) {
	f.day = day

	return &timing.Stats{Day: day.Format(time.DateOnly), TotalOrders: 4}, nil
}

func (f *fakeAdmin) ResolveWarning(_ context.Context, orderID, reason, actor string) (*timing.OrderTiming, error) {
	if orderID != "o1" {
		return nil, timing.ErrNotInWarning
	}
	f.resolved = append(f.resolved, orderID+"|"+reason+"|"+actor)

	return &timing.OrderTiming{OrderID: orderID, Status: timing.StatusArchived}, nil
}

func (f *fakeAdmin) ReopenWarning(_ context.Context, orderID string) (*timing.OrderTiming, error) {
	return &timing.OrderTiming{OrderID: orderID, Status: timing.StatusActive}, nil
}

var creds = Credentials{Username: "manager", Password: "s3cret", Secret: []byte("jwt"), TTL: time.Hour}

func router(svc *fakeAdmin) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/admin/token", func(w http.ResponseWriter, r *http.Request) { IssueToken(w, r, creds) })
	r.Group(func(r chi.Router) {
		r.Use(auth.NewAuthMiddleware(creds.Secret, auth.RoleAdmin))
		r.Get("/api/admin/excluded", func(w http.ResponseWriter, r *http.Request) { ListExcluded(w, r, svc) })
		r.Put("/api/admin/excluded", func(w http.ResponseWriter, r *http.Request) { ReplaceExcluded(w, r, svc) })
		r.Get("/api/admin/products", func(w http.ResponseWriter, r *http.Request) { ListProducts(w, r, svc) })
		r.Get("/api/admin/warnings", func(w http.ResponseWriter, r *http.Request) { ListWarnings(w, r, svc) })
		r.Post("/api/admin/warnings/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
			ResolveWarning(w, r, svc)
		})
		r.Post("/api/admin/warnings/{id}/reopen", func(w http.ResponseWriter, r *http.Request) {
			ReopenWarning(w, r, svc)
		})
		r.Get("/api/admin/stats", func(w http.ResponseWriter, r *http.Request) { Stats(w, r, svc) })
	})

	return r
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(h, http.MethodPost, "/api/admin/token", "", `{"username":"manager","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	return resp.Token
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	h := router(&fakeAdmin{})

	assert.Equal(t, http.StatusUnauthorized,
		do(h, http.MethodPost, "/api/admin/token", "", `{"username":"manager","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(h, http.MethodPost, "/api/admin/token", "", `{"username":"manager"}`).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := router(&fakeAdmin{})

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/admin/warnings", "", "").Code)
}

func TestExcludedRoundTrip(t *testing.T) {
	svc := &fakeAdmin{excluded: product.NewIDSet()}
	h := router(svc)
	token := login(t, h)

	rec := do(h, http.MethodPut, "/api/admin/excluded", token, `{"product_ids":["p2","p1","p2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"product_ids":["p1","p2"]}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/admin/excluded", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"product_ids":["p1","p2"]}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/admin/products", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestResolveWarningUsesTokenSubject(t *testing.T) {
	svc := &fakeAdmin{}
	h := router(svc)
	token := login(t, h)

	rec := do(h, http.MethodPost, "/api/admin/warnings/o1/resolve", token, `{"reason":"guest left"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"o1|guest left|manager"}, svc.resolved)

	rec = do(h, http.MethodPost, "/api/admin/warnings/o1/resolve", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1||manager", svc.resolved[1])

	rec = do(h, http.MethodPost, "/api/admin/warnings/o2/resolve", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodPost, "/api/admin/warnings/o2/reopen", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats(t *testing.T) {
	svc := &fakeAdmin{}
	h := router(svc)
	token := login(t, h)

	rec := do(h, http.MethodGet, "/api/admin/stats?day=2024-03-10", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-10", svc.day.Format(time.DateOnly))
	assert.Contains(t, rec.Body.String(), `"total_orders":4`)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/admin/stats?day=10.03.2024", token, "").Code)
}
