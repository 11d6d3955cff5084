// Package upstream talks to the central sale API. It distinguishes two
// failure classes because the orchestrator treats them differently: a
// network failure (request never got an answer) halts a drain pass, a
// server rejection (answered, declined) only fails the one ticket.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tillpoint/till/pkg/pos"
)

// RejectedError is a reachable server declining a sale submission.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream: server rejected sale (status %d): %s", e.Status, e.Body)
}

// IsRejection reports whether err is a server rejection rather than a
// network-level failure.
func IsRejection(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// Client submits sales to the central server.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. A hung request counts as a
// network failure; without a bound a dead connection would stall the whole
// drain pass.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a client for the sale API at baseURL. token is attached as a
// bearer credential on every request; empty means no auth.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	Invoice  pos.Invoice `json:"invoice"`
	TicketID string      `json:"ticketId"`
}

// Submit posts one sale with the ticket ID as its idempotency key. The
// server collapses repeated submissions under the same key into one
// invoice, so retrying after a lost response can never double-create.
func (c *Client) Submit(ctx context.Context, ticketID string, sale pos.Sale) (*pos.Invoice, error) {
	sale.TicketID = ticketID
	payload, err := json.Marshal(sale)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal sale: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sale", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", ticketID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: post sale: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectedError{Status: resp.StatusCode, Body: string(body)}
	}

	var out submitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("upstream: decode response: %w", err)
	}
	if out.Invoice.InvoiceNo == 0 {
		return nil, &RejectedError{Status: resp.StatusCode, Body: "response missing invoice number"}
	}
	return &out.Invoice, nil
}

// Healthy probes the server's health endpoint. The connectivity watcher
// polls this to detect offline/online transitions.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode < 500
}
