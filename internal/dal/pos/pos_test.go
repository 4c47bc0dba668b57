package pos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(
		WithBaseURL(srv.URL),
		WithCredentials("42", "refresh"),
		WithHTTPClient(srv.Client()),
	)
}

func tokenHandler(t *testing.T, issued *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "User refresh", r.Header.Get("Authorization"))

		var req tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "42", req.CloudID)

		n := issued.Add(1)
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-" + strconv.Itoa(int(n))})
	}
}

func TestListOrdersFollowsPages(t *testing.T) {
	var issued atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/signin/token", tokenHandler(t, &issued))
	mux.HandleFunc("/v2/clouds/42/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("filter"), "created|gteq|")
		assert.Equal(t, "100", r.URL.Query().Get("perPage"))

		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"data":[{"id":1001,"created":"2024-05-01T10:00:00Z","note":"wolt","_tableId":"7"}],"nextPage":"2"}`))
		case "2":
			_, _ = w.Write([]byte(`{"data":[{"id":"1002","created":"2024-05-01T11:00:00Z","_tableId":null}],"nextPage":null}`))
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
	})

	c := newTestClient(t, mux)

	orders, err := c.ListOrders(t.Context(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, Text("1001"), orders[0].ID)
	assert.Equal(t, Text("7"), orders[0].TableID)
	assert.Equal(t, Text("1002"), orders[1].ID)
	assert.Empty(t, orders[1].TableID)
	assert.Equal(t, int32(1), issued.Load())
}

func TestListProductsStopsAtPageCap(t *testing.T) {
	var issued, pages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/signin/token", tokenHandler(t, &issued))
	mux.HandleFunc("/v2/clouds/42/products", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":     []map[string]any{{"id": page, "name": "p", "_categoryId": 3}},
			"nextPage": page + 1,
		})
	})

	c := newTestClient(t, mux)

	products, err := c.ListProducts(t.Context())
	require.NoError(t, err)
	assert.Len(t, products, MaxProductPages)
	assert.Equal(t, int32(MaxProductPages), pages.Load())
	assert.Equal(t, Text("3"), products[0].CategoryID)
}

func TestReauthenticatesOnceOnUnauthorized(t *testing.T) {
	var issued atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/signin/token", tokenHandler(t, &issued))
	mux.HandleFunc("/v2/clouds/42/order-items", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}
		assert.Equal(t, "_orderId|eq|1001", r.URL.Query().Get("filter"))
		_, _ = w.Write([]byte(`{"data":[{"id":5,"_orderId":1001,"_productId":9,"name":"Soup","quantity":2.0,
			"kitchenStatus":"COMPLETED","orderItemCustomizations":[{"name":"extra","quantity":1}]}]}`))
	})

	c := newTestClient(t, mux)

	items, err := c.ListOrderItems(t.Context(), "1001")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), issued.Load())
	assert.Equal(t, 2, Quantity(items[0].Quantity))
	assert.Equal(t, Text("COMPLETED"), items[0].KitchenStatus)
	require.Len(t, items[0].Customizations, 1)
	assert.Equal(t, "extra", items[0].Customizations[0].Name)
}

func TestAuthenticateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/signin/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := newTestClient(t, mux)

	_, err := c.ListOrders(t.Context(), time.Now(), time.Now())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
}

func TestTableNameSwallowsErrors(t *testing.T) {
	var issued atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/signin/token", tokenHandler(t, &issued))
	mux.HandleFunc("/v2/clouds/42/tables/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Terrace 7"}`))
	})
	mux.HandleFunc("/v2/clouds/42/tables/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)

	assert.Equal(t, "Terrace 7", c.TableName(t.Context(), "7"))
	assert.Empty(t, c.TableName(t.Context(), "8"))
	assert.Empty(t, c.TableName(t.Context(), ""))
}

func TestQuantity(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{2, 2},
		{1.6, 2},
		{0.3, 1},
		{0.5, 1},
		{0, 0},
		{-1, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Quantity(tc.in), "quantity %v", tc.in)
	}
}
