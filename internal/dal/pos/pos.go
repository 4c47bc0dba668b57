package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBaseURL = "https://api.dotykacka.cz"
	perPage        = 100

	MaxOrderPages   = 10
	MaxItemPages    = 10
	MaxProductPages = 20
)

var (
	ErrUnauthorized = errors.New("pos: unauthorized")
	ErrNoToken      = errors.New("pos: no access token received")
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pos: %s returned %d: %s", e.Path, e.Code, e.Body)
}

// Client talks to the POS cloud API. The access token is obtained lazily and
// refreshed once when a request comes back 401.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	cloudID      string
	refreshToken string

	mu          sync.Mutex
	accessToken string
}

// option is a function that configures the Client.
type option func(*Client)

// NewClient creates a POS client.
func NewClient(opts ...option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// MustNewClient creates a POS client from config. The refresh token is read from POS_REFRESH_TOKEN.
func MustNewClient() *Client {
	cloudID := viper.GetString("pos.cloud_id")
	refreshToken := os.Getenv("POS_REFRESH_TOKEN")
	if cloudID == "" || refreshToken == "" {
		panic("pos.cloud_id and POS_REFRESH_TOKEN must be set")
	}

	opts := []option{WithCredentials(cloudID, refreshToken)}
	if baseURL := viper.GetString("pos.base_url"); baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}
	if timeout := viper.GetInt("pos.timeout_seconds"); timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: time.Duration(timeout) * time.Second}))
	}

	return NewClient(opts...)
}

// WithBaseURL sets the API root.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBaseURL(baseURL string) option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithCredentials sets the cloud id and the long-lived refresh token.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCredentials(cloudID, refreshToken string) option {
	return func(c *Client) {
		c.cloudID = cloudID
		c.refreshToken = refreshToken
	}
}

// WithHTTPClient replaces the default http client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHTTPClient(httpClient *http.Client) option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Authenticate exchanges the refresh token for a new access token.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, span := otel.Tracer("pos").Start(ctx, "Client.Authenticate")
	defer span.End()

	body, err := json.Marshal(tokenRequest{CloudID: c.cloudID})
	if err != nil {
		return fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/signin/token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", "User "+c.refreshToken)

	var token tokenResponse
	if err := c.do(req, &token); err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	if token.AccessToken == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.mu.Unlock()

	return nil
}

// ListOrders returns orders created in [from, to).
func (c *Client) ListOrders(ctx context.Context, from, to time.Time) ([]Order, error) {
	ctx, span := otel.Tracer("pos").Start(ctx, "Client.ListOrders")
	defer span.End()

	query := url.Values{}
	query.Set("filter", fmt.Sprintf(
		"created|gteq|%s;created|lt|%s",
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	))

	orders, err := listPages[Order](ctx, c, "orders", query, MaxOrderPages)
	span.SetAttributes(attribute.Int("orders", len(orders)))

	return orders, err
}

// ListOrderItems returns the items of one order.
func (c *Client) ListOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	ctx, span := otel.Tracer("pos").Start(ctx, "Client.ListOrderItems")
	defer span.End()

	query := url.Values{}
	query.Set("filter", "_orderId|eq|"+orderID)

	return listPages[OrderItem](ctx, c, "order-items", query, MaxItemPages)
}

// ListProducts returns the product catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	ctx, span := otel.Tracer("pos").Start(ctx, "Client.ListProducts")
	defer span.End()

	return listPages[Product](ctx, c, "products", url.Values{}, MaxProductPages)
}

// TableName resolves a table reference. Any failure yields an empty name.
func (c *Client) TableName(ctx context.Context, tableID string) string {
	if tableID == "" {
		return ""
	}

	var table Table
	if err := c.get(ctx, "tables/"+url.PathEscape(tableID), nil, &table); err != nil {
		slog.Debug("Table lookup failed", "table_id", tableID, "error", err)

		return ""
	}

	return table.Name
}

// listPages follows nextPage until the listing ends or maxPages pages were read.
// An empty page, 204 or 404 ends the listing.
func listPages[T any](ctx context.Context, c *Client, resource string, query url.Values, maxPages int) ([]T, error) {
	var all []T
	page := 1
	for read := 0; read < maxPages; read++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(perPage))

		var p Page[T]
		err := c.get(ctx, resource, q, &p)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", resource, page, err)
		}
		if len(p.Data) == 0 {
			break
		}
		all = append(all, p.Data...)

		next := p.Next()
		if next == 0 {
			break
		}
		page = next
	}

	return all, nil
}

// get performs an authorized GET against the cloud, re-authenticating once on 401.
func (c *Client) get(ctx context.Context, resource string, query url.Values, out any) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	if token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	err := c.getOnce(ctx, resource, query, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	if err := c.Authenticate(ctx); err != nil {
		return err
	}

	return c.getOnce(ctx, resource, query, out)
}

func (c *Client) getOnce(ctx context.Context, resource string, query url.Values, out any) error {
	u := fmt.Sprintf("%s/v2/clouds/%s/%s", c.baseURL, url.PathEscape(c.cloudID), resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	c.mu.Unlock()
	req.Header.Set("Accept", "application/json; charset=UTF-8")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &StatusError{Path: req.URL.Path, Code: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
