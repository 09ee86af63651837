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

package horizon

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Sort orders accepted by the query endpoint
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// joinableResources is the allow-list of side-loadable related resources
var joinableResources = []string{"transactions"}

// CallBuilder accumulates path filters and query parameters for a single
// query endpoint request. Modifier methods return the builder itself for
// chaining. Filter cardinality is only validated when the request URL is
// built, so misconfiguration surfaces at call time rather than on mutation
type CallBuilder struct {
	client *Client
	// Path segments of the endpoint URL at construction. Filters append to
	// this baseline
	baseSegments []string
	// Resource segments used when no filter is active
	defaultSegments []string
	filters         [][]string
	params          url.Values
}

func newCallBuilder(client *Client, segments ...string) *CallBuilder {
	base := []string{}
	for _, seg := range strings.Split(client.baseURL.Path, "/") {
		if seg != "" {
			base = append(base, seg)
		}
	}
	return &CallBuilder{
		client:          client,
		baseSegments:    base,
		defaultSegments: segments,
		params:          url.Values{},
	}
}

// Filter appends a candidate path filter. At most one filter may be active
// when the request is executed; pushing more than one is a configuration
// error reported at call time
func (b *CallBuilder) Filter(segments ...string) *CallBuilder {
	b.filters = append(b.filters, segments)
	return b
}

// ForAccount filters results to those for a single account
func (b *CallBuilder) ForAccount(accountID string) *CallBuilder {
	return b.Filter(
		append([]string{"accounts", accountID}, b.defaultSegments...)...,
	)
}

// ForLedger filters results to those in a single ledger
func (b *CallBuilder) ForLedger(sequence uint64) *CallBuilder {
	return b.Filter(
		append(
			[]string{"ledgers", strconv.FormatUint(sequence, 10)},
			b.defaultSegments...,
		)...,
	)
}

// ForTransaction filters results to those in a single transaction
func (b *CallBuilder) ForTransaction(hash string) *CallBuilder {
	return b.Filter(
		append([]string{"transactions", hash}, b.defaultSegments...)...,
	)
}

// Cursor sets the pagination cursor, an opaque token marking a position in
// the result stream
func (b *CallBuilder) Cursor(cursor string) *CallBuilder {
	b.params.Set("cursor", cursor)
	return b
}

// Limit sets the maximum number of records per page. The server default is
// used when unset
func (b *CallBuilder) Limit(limit uint) *CallBuilder {
	b.params.Set("limit", strconv.FormatUint(uint64(limit), 10))
	return b
}

// Order sets the result ordering, either OrderAsc or OrderDesc
func (b *CallBuilder) Order(order string) *CallBuilder {
	b.params.Set("order", order)
	return b
}

// Join requests that a related resource be embedded in each returned
// record. Only resources in the joinable allow-list are accepted
func (b *CallBuilder) Join(resource string) *CallBuilder {
	b.params.Set("join", resource)
	return b
}

// BuildURL freezes the builder state into a request URL. This is where
// deferred configuration checks run: filter cardinality, order values, and
// the join allow-list
func (b *CallBuilder) BuildURL() (string, error) {
	if len(b.filters) > 1 {
		return "", ConfigurationError{Reason: "too many filters specified"}
	}
	if order := b.params.Get("order"); order != "" &&
		order != OrderAsc && order != OrderDesc {
		return "", ConfigurationError{
			Reason: fmt.Sprintf("invalid order: %s", order),
		}
	}
	if join := b.params.Get("join"); join != "" &&
		!slices.Contains(joinableResources, join) {
		return "", ConfigurationError{
			Reason: fmt.Sprintf("unknown joinable resource: %s", join),
		}
	}
	segments := slices.Clone(b.baseSegments)
	if len(b.filters) == 1 {
		segments = append(segments, b.filters[0]...)
	} else {
		segments = append(segments, b.defaultSegments...)
	}
	requestURL := *b.client.baseURL
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
	}
	requestURL.Path = "/" + strings.Join(escaped, "/")
	requestURL.RawQuery = b.params.Encode()
	return requestURL.String(), nil
}

// Call executes the request and normalizes the response into a Record or a
// Page. Configuration errors are returned before any network I/O
func (b *CallBuilder) Call(ctx context.Context) (Response, error) {
	requestURL, err := b.BuildURL()
	if err != nil {
		return nil, err
	}
	raw, err := b.client.getJSON(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(b.client, raw), nil
}
