// Copyright 2025 Lumenaut Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package horizon implements a client for a Horizon-style ledger query API.
// Call builders accumulate path filters and query parameters, execute a
// single GET, and normalize the JSON response into records and pages with
// reified relation links.
package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultRequestTimeout is the timeout applied to one-shot requests when
	// no custom HTTP client is provided. Streams use their own client since
	// a request timeout would sever a long-lived connection
	DefaultRequestTimeout = 30 * time.Second
)

// Client issues requests against a Horizon-style query/submission endpoint
type Client struct {
	horizonURL string
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptionFunc is a function that modifies a Client during construction
type ClientOptionFunc func(*Client)

// NewClient creates a new Client with the provided options. An error is
// returned if no endpoint URL was provided or it cannot be parsed
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.horizonURL == "" {
		return nil, errors.New("no endpoint URL provided")
	}
	baseURL, err := url.Parse(c.horizonURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid endpoint URL: %s", c.horizonURL)
	}
	c.baseURL = baseURL
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// WithHorizonURL specifies the query endpoint base URL
func WithHorizonURL(horizonURL string) ClientOptionFunc {
	return func(c *Client) {
		c.horizonURL = horizonURL
	}
}

// WithHTTPClient specifies the HTTP client to use for one-shot requests.
// If none is provided, one will be created with a default timeout
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger specifies the logger to use. Defaults to slog.Default()
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// Transactions returns a call builder for the transactions endpoint
func (c *Client) Transactions() *CallBuilder {
	return newCallBuilder(c, "transactions")
}

// Accounts returns a call builder for the accounts endpoint
func (c *Client) Accounts() *CallBuilder {
	return newCallBuilder(c, "accounts")
}

// Account returns a call builder for a single account
func (c *Client) Account(accountID string) *CallBuilder {
	return newCallBuilder(c, "accounts", accountID)
}

// Ledgers returns a call builder for the ledgers endpoint
func (c *Client) Ledgers() *CallBuilder {
	return newCallBuilder(c, "ledgers")
}

// Operations returns a call builder for the operations endpoint
func (c *Client) Operations() *CallBuilder {
	return newCallBuilder(c, "operations")
}

// Payments returns a call builder for the payments endpoint
func (c *Client) Payments() *CallBuilder {
	return newCallBuilder(c, "payments")
}

// SubmitTransaction submits a base64-encoded transaction envelope and
// normalizes the response like any query result
func (c *Client) SubmitTransaction(
	ctx context.Context,
	envelope string,
) (*Record, error) {
	submitURL := c.baseURL.JoinPath("transactions").String()
	form := url.Values{}
	form.Set("tx", envelope)
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		submitURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(
		"transaction submitted",
		"url", submitURL,
	)
	return normalizeRecord(raw), nil
}

// getJSON issues a GET against the provided URL and decodes the JSON
// response, mapping failures into the error taxonomy
func (c *Client) getJSON(
	ctx context.Context,
	rawURL string,
) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NetworkError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NetworkError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapResponseError(resp.StatusCode, body)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, NetworkError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("failed to parse response: %w", err),
		}
	}
	return raw, nil
}
