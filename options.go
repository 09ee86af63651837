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

package gohorizon

import (
	"log/slog"
	"net/http"
)

// ClientOptionFunc is a type that represents functions that modify the
// Client config
type ClientOptionFunc func(*Client)

// WithNetwork specifies the network
func WithNetwork(network Network) ClientOptionFunc {
	return func(c *Client) {
		c.network = network
	}
}

// WithHorizonURL specifies the query endpoint URL, overriding the
// network's default
func WithHorizonURL(horizonURL string) ClientOptionFunc {
	return func(c *Client) {
		c.horizonURL = horizonURL
	}
}

// WithHTTPClient specifies the HTTP client to use. If none is provided,
// one will be created with a default timeout
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
