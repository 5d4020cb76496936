// Package client talks to the order store's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orderqueue/pkg/order"
)

// StatusError is returned when the store answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.Code, e.Message)
}

// Unwrap maps the store's 404 bodies back onto the order sentinels so callers
// can use errors.Is across the wire.
func (e *StatusError) Unwrap() error {
	if e.Code != http.StatusNotFound {
		return nil
	}
	switch e.Message {
	case "Order not found":
		return order.ErrOrderNotFound
	case "Item not found":
		return order.ErrItemNotFound
	}
	return nil
}

// Client is an HTTP client for the order store.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the store at baseURL ("http://host:port").
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListOrders fetches the store's order list.
func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetItemStatus updates one item on the store.
func (c *Client) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	path := fmt.Sprintf("/api/orders/%d/items/%d/status", orderID, itemIndex)
	return c.do(ctx, http.MethodPost, path, map[string]order.Status{"status": status}, nil)
}

// Replace overwrites the store's list with orders.
func (c *Client) Replace(ctx context.Context, orders []order.Order) error {
	if orders == nil {
		orders = []order.Order{}
	}
	return c.do(ctx, http.MethodPost, "/api/orders/sync", map[string][]order.Order{"orders": orders}, nil)
}

// Reset asks the store to restore its seed.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/orders/reset", nil, nil)
}

// Health probes the store's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(b))
		}
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
