// Package supabase is the remote data client for the hosted BatteryFi
// backend: PostgREST for collection reads and writes, GoTrue for auth.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound is returned when a single-row query matched nothing.
	ErrNotFound = errors.New("supabase: no rows")

	// ErrMissingURL and ErrMissingKey are returned by New for incomplete config.
	ErrMissingURL = errors.New("supabase: URL is required")
	ErrMissingKey = errors.New("supabase: anon key is required")
)

// Client is a PostgREST/GoTrue client bound to one project.
type Client struct {
	baseURL     string
	anonKey     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// Config holds client configuration.
type Config struct {
	URL     string
	AnonKey string

	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// New creates a client for the project at cfg.URL.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.AnonKey == "" {
		return nil, ErrMissingKey
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

// WithAccessToken returns a copy of the client that authorizes requests as
// the signed-in user, so row-level security applies to them.
func (c *Client) WithAccessToken(token string) *Client {
	cp := *c
	cp.accessToken = token
	return &cp
}

// From starts a query against a collection.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	single  bool
}

// Select sets the column list.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, "eq."+formatValue(value))
	return q
}

// Order appends an ORDER BY term.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Single expects exactly one row; zero rows yield ErrNotFound.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Execute runs a SELECT and decodes the rows into dest.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}

	req, err := q.client.newRequest(ctx, http.MethodGet, q.tableURL(params), nil)
	if err != nil {
		return err
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	resp, err := q.client.do(req)
	if err != nil {
		return err
	}
	if q.single && resp.StatusCode == http.StatusNotAcceptable {
		return fmt.Errorf("%s: %w", q.table, ErrNotFound)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	if dest == nil {
		return nil
	}
	return resp.JSON(dest)
}

// Insert posts one record (or a slice of records) and decodes the stored
// representation into dest when dest is non-nil.
func (q *QueryBuilder) Insert(ctx context.Context, record, dest any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", q.table, err)
	}
	req, err := q.client.newRequest(ctx, http.MethodPost, q.tableURL(nil), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := q.client.do(req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("insert %s: %w", q.table, err)
	}
	if dest == nil {
		return nil
	}
	return resp.JSON(dest)
}

// Update patches the rows matched by the builder's filters.
func (q *QueryBuilder) Update(ctx context.Context, patch any) error {
	if len(q.filters) == 0 {
		return fmt.Errorf("update %s: refusing to patch without filters", q.table)
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal %s patch: %w", q.table, err)
	}
	req, err := q.client.newRequest(ctx, http.MethodPatch, q.tableURL(q.filters), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	resp, err := q.client.do(req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("update %s: %w", q.table, err)
	}
	return nil
}

func (q *QueryBuilder) tableURL(params url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Err returns an error carrying the backend's message if the status is a failure.
// PostgREST reports "message", GoTrue uses "msg" or "error_description".
func (r *Response) Err() error {
	if r.StatusCode < 400 {
		return nil
	}
	for _, path := range []string{"message", "msg", "error_description", "error"} {
		if v := gjson.GetBytes(r.Body, path); v.Exists() && v.String() != "" {
			return &APIError{StatusCode: r.StatusCode, Message: v.String()}
		}
	}
	return &APIError{StatusCode: r.StatusCode, Message: http.StatusText(r.StatusCode)}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.StatusCode)
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	bearer := c.anonKey
	if c.accessToken != "" {
		bearer = c.accessToken
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
