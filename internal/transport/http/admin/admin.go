package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/exclusionsvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

const defaultActor = "admin"

var errBadCredentials = errors.New("invalid credentials")

type exclusions interface {
	ListExcluded(ctx context.Context) (product.IDSet, error)
	ReplaceExcluded(ctx context.Context, ids []string) (product.IDSet, error)
	ListProducts(ctx context.Context) ([]exclusionsvc.CatalogueEntry, error)
}

type warnings interface {
	ListWarnings(ctx context.Context) ([]timing.OrderTiming, error)
	DailyStats(ctx context.Context, day time.Time) (*timing.Stats, error)
}

type workflow interface {
	ResolveWarning(ctx context.Context, orderID, reason, actor string) (*timing.OrderTiming, error)
	ReopenWarning(ctx context.Context, orderID string) (*timing.OrderTiming, error)
}

// Credentials configure token issuing for the admin screen.
type Credentials struct {
	Username string
	Password string
	Secret   []byte
	TTL      time.Duration
}

var validate = validator.New()

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return reflect.Value{}
		}

		return reflect.ValueOf(t)
	})

	return d
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken handles POST /api/admin/token.
func IssueToken(w http.ResponseWriter, r *http.Request, creds Credentials) {
	req := tokenRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err, "Error decoding token request")

		return
	}
	if err := validate.Struct(&req); err != nil {
		respond.BadRequest(w, r, err, "Error validating token request")

		return
	}

	if creds.Password == "" ||
		subtle.ConstantTimeCompare([]byte(req.Username), []byte(creds.Username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(creds.Password)) != 1 {
		http.Error(w, errBadCredentials.Error(), http.StatusUnauthorized)

		return
	}

	token, err := auth.GenerateToken(creds.Secret, req.Username, auth.RoleAdmin, creds.TTL)
	if err != nil {
		respond.Error(w, r, err, "Error signing token")

		return
	}

	respond.JSON(w, r, http.StatusOK, tokenResponse{Token: token, ExpiresAt: time.Now().Add(creds.TTL)})
}

type excludedResponse struct {
	ProductIDs []string `json:"product_ids"`
}

func newExcludedResponse(set product.IDSet) excludedResponse {
	ids := set.Slice()
	sort.Strings(ids)

	return excludedResponse{ProductIDs: ids}
}

// ListExcluded handles GET /api/admin/excluded.
func ListExcluded(w http.ResponseWriter, r *http.Request, service exclusions) {
	set, err := service.ListExcluded(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Error listing excluded products")

		return
	}

	respond.JSON(w, r, http.StatusOK, newExcludedResponse(set))
}

type replaceExcludedRequest struct {
	ProductIDs []string `json:"product_ids" validate:"dive,max=128"`
}

// ReplaceExcluded handles PUT /api/admin/excluded. An empty list clears the set.
func ReplaceExcluded(w http.ResponseWriter, r *http.Request, service exclusions) {
	req := replaceExcludedRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err, "Error decoding excluded products")

		return
	}
	if err := validate.Struct(&req); err != nil {
		respond.BadRequest(w, r, err, "Error validating excluded products")

		return
	}

	set, err := service.ReplaceExcluded(r.Context(), req.ProductIDs)
	if err != nil {
		respond.Error(w, r, err, "Error replacing excluded products")

		return
	}

	respond.JSON(w, r, http.StatusOK, newExcludedResponse(set))
}

// ListProducts handles GET /api/admin/products.
func ListProducts(w http.ResponseWriter, r *http.Request, service exclusions) {
	entries, err := service.ListProducts(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Error listing products")

		return
	}
	if entries == nil {
		entries = []exclusionsvc.CatalogueEntry{}
	}

	respond.JSON(w, r, http.StatusOK, entries)
}

// ListWarnings handles GET /api/admin/warnings.
func ListWarnings(w http.ResponseWriter, r *http.Request, service warnings) {
	list, err := service.ListWarnings(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Error listing warnings")

		return
	}
	if list == nil {
		list = []timing.OrderTiming{}
	}

	respond.JSON(w, r, http.StatusOK, list)
}

type resolveRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ResolveWarning handles POST /api/admin/warnings/{id}/resolve. The body is optional.
func ResolveWarning(w http.ResponseWriter, r *http.Request, service workflow) {
	req := resolveRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.BadRequest(w, r, err, "Error decoding resolve request")

		return
	}
	if err := validate.Struct(&req); err != nil {
		respond.BadRequest(w, r, err, "Error validating resolve request")

		return
	}

	t, err := service.ResolveWarning(r.Context(), chi.URLParam(r, "id"), req.Reason, auth.Actor(r.Context(), defaultActor))
	if err != nil {
		respond.Error(w, r, err, "Error resolving warning")

		return
	}

	respond.JSON(w, r, http.StatusOK, t)
}

// ReopenWarning handles POST /api/admin/warnings/{id}/reopen.
func ReopenWarning(w http.ResponseWriter, r *http.Request, service workflow) {
	t, err := service.ReopenWarning(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err, "Error reopening warning")

		return
	}

	respond.JSON(w, r, http.StatusOK, t)
}

type statsRequest struct {
	Day time.Time `schema:"day"`
}

// Stats handles GET /api/admin/stats?day=YYYY-MM-DD, defaulting to today.
func Stats(w http.ResponseWriter, r *http.Request, service warnings) {
	req := statsRequest{}
	if err := decoder.Decode(&req, r.URL.Query()); err != nil {
		respond.BadRequest(w, r, err, "Error decoding stats request")

		return
	}

	day := req.Day
	if day.IsZero() {
		day = time.Now()
	}

	stats, err := service.DailyStats(r.Context(), day)
	if err != nil {
		respond.Error(w, r, err, "Error loading stats")

		return
	}

	respond.JSON(w, r, http.StatusOK, stats)
}
