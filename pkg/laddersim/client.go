// Package laddersim is a Go client for the laddersim HTTP API.
package laddersim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/simapi"
)

// Client provides a Go SDK for interacting with a laddersim server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new laddersim API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("laddersim: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// State returns the account, holdings and next-day actions.
func (c *Client) State(ctx context.Context) (*simapi.StateResponse, error) {
	var out simapi.StateResponse
	return &out, c.do(ctx, http.MethodGet, "/api/state", nil, &out)
}

// Dates returns the trading calendar.
func (c *Client) Dates(ctx context.Context) (*simapi.DatesResponse, error) {
	var out simapi.DatesResponse
	return &out, c.do(ctx, http.MethodGet, "/api/dates", nil, &out)
}

// Ladder returns the ladder candidates of date (current day when empty),
// filtered by streak length (0 for all).
func (c *Client) Ladder(ctx context.Context, date string, days int) (*simapi.LadderResponse, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	q.Set("days", strconv.Itoa(days))
	var out simapi.LadderResponse
	return &out, c.do(ctx, http.MethodGet, "/api/ladder?"+q.Encode(), nil, &out)
}

// Series returns up to days bars of code ending on end (current day when empty).
func (c *Client) Series(ctx context.Context, code, end string, days int) (*simapi.SeriesResponse, error) {
	q := url.Values{}
	if end != "" {
		q.Set("end", end)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out simapi.SeriesResponse
	return &out, c.do(ctx, http.MethodGet, "/api/series/"+url.PathEscape(code)+"?"+q.Encode(), nil, &out)
}

// PlaceDeferredBuy places a buy that fills at the next day's open.
func (c *Client) PlaceDeferredBuy(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error) {
	var out domain.Trade
	err := c.do(ctx, http.MethodPost, "/api/orders/deferred", simapi.OrderRequest{Code: code, Price: price, Quantity: qty}, &out)
	return out, err
}

// PlaceConditionalOrder places a next-day conditional buy. A zero trigger
// uses the limit-up price.
func (c *Client) PlaceConditionalOrder(ctx context.Context, code string, trigger float64, qty int64) (domain.ConditionalOrder, error) {
	var out domain.ConditionalOrder
	err := c.do(ctx, http.MethodPost, "/api/orders/conditional", simapi.OrderRequest{Code: code, TriggerPrice: trigger, Quantity: qty}, &out)
	return out, err
}

// Cancel cancels a pending conditional order.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(id), nil, nil)
}

// Sell sells qty shares at price; qty 0 sells the whole position at the close.
func (c *Client) Sell(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error) {
	var out domain.Trade
	err := c.do(ctx, http.MethodPost, "/api/sell", simapi.SellRequest{Code: code, Price: price, Quantity: qty}, &out)
	return out, err
}

// AdvanceTo moves the simulation to date.
func (c *Client) AdvanceTo(ctx context.Context, date string) (*simapi.AdvanceResponse, error) {
	var out simapi.AdvanceResponse
	return &out, c.do(ctx, http.MethodPost, "/api/advance", simapi.AdvanceRequest{Date: date}, &out)
}

// Step moves one trading day forward (+1) or back (-1).
func (c *Client) Step(ctx context.Context, step int) (*simapi.AdvanceResponse, error) {
	var out simapi.AdvanceResponse
	return &out, c.do(ctx, http.MethodPost, "/api/advance", simapi.AdvanceRequest{Step: step}, &out)
}

// Summary returns realized performance.
func (c *Client) Summary(ctx context.Context) (engine.Summary, error) {
	var out engine.Summary
	return out, c.do(ctx, http.MethodGet, "/api/summary", nil, &out)
}

// Trades returns the ledger filtered by status, date and code.
func (c *Client) Trades(ctx context.Context, f engine.Filter) (*simapi.HistoryResponse, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Date != "" {
		q.Set("date", f.Date)
	}
	if f.Code != "" {
		q.Set("code", f.Code)
	}
	var out simapi.HistoryResponse
	return &out, c.do(ctx, http.MethodGet, "/api/trades?"+q.Encode(), nil, &out)
}

// Reset starts the simulation over and returns the archived history.
func (c *Client) Reset(ctx context.Context) (*engine.Export, error) {
	var out engine.Export
	return &out, c.do(ctx, http.MethodPost, "/api/reset?export=true", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
