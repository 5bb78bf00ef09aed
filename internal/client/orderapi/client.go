// Package orderapi is the HTTP client for the bakery orders API.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	operatorhttpmapper "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/http/mapper"
	orderhttpmapper "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// IdempotencyKeyHeader matches the header the server deduplicates creates on.
const IdempotencyKeyHeader = "Idempotency-Key"

// HttpRequestDoer performs HTTP requests. *http.Client satisfies it.
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestEditorFn may mutate a request before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// ClientOption configures a Client.
type ClientOption func(*Client) error

func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(c *Client) error {
		c.client = doer
		return nil
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) error {
		c.requestEditors = append(c.requestEditors, fn)
		return nil
	}
}

// WithSession shares an existing session, e.g. between a client and a websocket transport.
func WithSession(session *Session) ClientOption {
	return func(c *Client) error {
		if session == nil {
			return errors.New("session is nil")
		}
		c.session = session
		return nil
	}
}

// Client talks to the orders API on behalf of one logged-in operator.
type Client struct {
	server         string
	client         HttpRequestDoer
	requestEditors []RequestEditorFn
	session        *Session
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("orders API base URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{server: baseURL}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.session == nil {
		c.session = &Session{}
	}
	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges credentials for a session token and stores it on the client's session.
func (c *Client) Login(ctx context.Context, username, password string) (operatorhttpmapper.Session, error) {
	var session operatorhttpmapper.Session
	body := operatorhttpmapper.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, body, http.StatusOK, &session); err != nil {
		return operatorhttpmapper.Session{}, err
	}
	c.session.set(session)
	return session, nil
}

// Logout revokes the current session. The local session is cleared even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	if !c.session.Authenticated() {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil, http.StatusNoContent, nil)
}

func (c *Client) Products(ctx context.Context) ([]ordersdomain.Product, error) {
	var products []orderhttpmapper.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, http.StatusOK, &products); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainProducts(products), nil
}

// OrdersForDay lists the orders picked up on day's calendar date, ordered by pickup time.
func (c *Client) OrdersForDay(ctx context.Context, day time.Time) ([]*ordersdomain.Order, error) {
	query, err := queryParam("date", day.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	var groups [][]orderhttpmapper.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", query, nil, http.StatusOK, &groups); err != nil {
		return nil, err
	}
	orders := make([]*ordersdomain.Order, 0)
	for _, group := range orderhttpmapper.ToDomainOrderGroups(groups) {
		orders = append(orders, group...)
	}
	return orders, nil
}

// Upcoming lists orders from today onwards grouped by pickup day.
func (c *Client) Upcoming(ctx context.Context) ([][]*ordersdomain.Order, error) {
	var groups [][]orderhttpmapper.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, nil, http.StatusOK, &groups); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainOrderGroups(groups), nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	path, err := orderPath(id)
	if err != nil {
		return nil, err
	}
	var order orderhttpmapper.Order
	if err := c.do(ctx, http.MethodGet, path, nil, nil, http.StatusOK, &order); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainOrder(order), nil
}

// CreateOrder posts a new order. A non-empty idempotencyKey makes retries return the first result.
func (c *Client) CreateOrder(ctx context.Context, order *ordersdomain.Order, idempotencyKey string) (*ordersdomain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if order.ID != 0 {
		return nil, errors.New("order already has an id")
	}
	var editors []RequestEditorFn
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		editors = append(editors, func(_ context.Context, req *http.Request) error {
			req.Header.Set(IdempotencyKeyHeader, key)
			return nil
		})
	}
	var created orderhttpmapper.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, orderhttpmapper.FromDomainOrder(order), http.StatusCreated, &created, editors...); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainOrder(created), nil
}

// UpdateOrder replaces the order with the same id.
func (c *Client) UpdateOrder(ctx context.Context, order *ordersdomain.Order) (*ordersdomain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	path, err := orderPath(order.ID)
	if err != nil {
		return nil, err
	}
	var updated orderhttpmapper.Order
	if err := c.do(ctx, http.MethodPut, path, nil, orderhttpmapper.FromDomainOrder(order), http.StatusOK, &updated); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainOrder(updated), nil
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	path, err := orderPath(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent, nil)
}

// UpdateLineProgress toggles the fulfillment flags of one line; nil flags are left unchanged.
func (c *Client) UpdateLineProgress(ctx context.Context, orderID, lineID int64, progress orderhttpmapper.LineProgress) (*ordersdomain.Order, error) {
	path, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	lineParam, err := runtime.StyleParamWithLocation("simple", false, "lineId", runtime.ParamLocationPath, lineID)
	if err != nil {
		return nil, err
	}
	var updated orderhttpmapper.Order
	if err := c.do(ctx, http.MethodPatch, path+"/lines/"+lineParam, nil, progress, http.StatusOK, &updated); err != nil {
		return nil, err
	}
	return orderhttpmapper.ToDomainOrder(updated), nil
}

func orderPath(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("invalid order id %d", id)
	}
	param, err := runtime.StyleParamWithLocation("simple", false, "orderId", runtime.ParamLocationPath, id)
	if err != nil {
		return "", err
	}
	return "/api/orders/" + param, nil
}

func queryParam(name string, value any) (url.Values, error) {
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(frag)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, want int, out any, editors ...RequestEditorFn) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if err := c.applyEditors(ctx, req, editors); err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := decodeError(resp)
		if apiErr.StatusCode == http.StatusUnauthorized {
			c.session.Clear()
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	serverURL, err := url.Parse(c.server)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, "/") {
		path = "." + path
	}
	queryURL, err := serverURL.Parse(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		queryURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, queryURL.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/problem+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) applyEditors(ctx context.Context, req *http.Request, additional []RequestEditorFn) error {
	for _, r := range c.requestEditors {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	for _, r := range additional {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
