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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, horizonURL string) *Client {
	t.Helper()
	c, err := NewClient(WithHorizonURL(horizonURL))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient()
	assert.ErrorContains(t, err, "no endpoint URL")
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(WithHorizonURL("not a url"))
	assert.Error(t, err)
}

func TestBuildURLDefaultSegments(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	built, err := c.Transactions().BuildURL()
	require.NoError(t, err)
	assert.Equal(t, "https://horizon.example.org/transactions", built)
}

func TestBuildURLPreservesBasePath(t *testing.T) {
	c := testClient(t, "https://example.org/api")
	built, err := c.Ledgers().BuildURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api/ledgers", built)
}

func TestBuildURLWithAccountFilter(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	built, err := c.Transactions().ForAccount("acct1xyz").BuildURL()
	require.NoError(t, err)
	assert.Equal(
		t,
		"https://horizon.example.org/accounts/acct1xyz/transactions",
		built,
	)
}

func TestBuildURLWithLedgerFilter(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	built, err := c.Payments().ForLedger(12345).BuildURL()
	require.NoError(t, err)
	assert.Equal(
		t,
		"https://horizon.example.org/ledgers/12345/payments",
		built,
	)
}

func TestBuildURLQueryParams(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	built, err := c.Transactions().
		Cursor("now").
		Limit(10).
		Order(OrderDesc).
		Join("transactions").
		BuildURL()
	require.NoError(t, err)
	assert.Equal(
		t,
		"https://horizon.example.org/transactions?cursor=now&join=transactions&limit=10&order=desc",
		built,
	)
}

func TestTooManyFiltersFailsBeforeNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	_, err := c.Transactions().
		ForAccount("acct1xyz").
		ForLedger(5).
		Call(context.Background())
	var confErr ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "too many filters specified", confErr.Reason)
	assert.Equal(t, int64(0), requests.Load())
}

func TestInvalidOrder(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	_, err := c.Transactions().Order("sideways").BuildURL()
	var confErr ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestInvalidJoinResource(t *testing.T) {
	c := testClient(t, "https://horizon.example.org")
	_, err := c.Transactions().Join("ledgers").BuildURL()
	var confErr ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Reason, "unknown joinable resource")
}

func TestCallNotFound(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"Resource Missing"}`))
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	_, err := c.Transactions().Call(context.Background())
	var notFound NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, string(notFound.Body), "Resource Missing")
}

func TestCallServerError(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	_, err := c.Transactions().Call(context.Background())
	var netErr NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Equal(t, "boom", string(netErr.Body))
}

func TestCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := testClient(t, srv.URL)
	_, err := c.Transactions().Call(context.Background())
	var netErr NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.NotNil(t, netErr.Err)
}

func TestCallNormalizesSingleRecord(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/accounts/acct1xyz", r.URL.Path)
			_, _ = w.Write(
				[]byte(`{"id":"acct1xyz","sequence":"41","paging_token":"7"}`),
			)
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	resp, err := c.Account("acct1xyz").Call(context.Background())
	require.NoError(t, err)
	record, ok := resp.(*Record)
	require.True(t, ok)
	sequence, ok := record.GetString("sequence")
	require.True(t, ok)
	assert.Equal(t, "41", sequence)
	assert.Equal(t, "7", record.PagingToken())
}

func TestCallNormalizesPage(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"_links": {
					"next": {"href": "https://example.org/transactions?cursor=2"},
					"prev": {"href": "https://example.org/transactions?cursor=1&order=desc"}
				},
				"_embedded": {"records": [
					{"id": "tx1", "paging_token": "1"},
					{"id": "tx2", "paging_token": "2"}
				]}
			}`))
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	resp, err := c.Transactions().Call(context.Background())
	require.NoError(t, err)
	page, ok := resp.(*Page)
	require.True(t, ok)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "1", page.Records[0].PagingToken())
	assert.Equal(t, "https://example.org/transactions?cursor=2", page.NextHref)
}

func TestSubmitTransaction(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/transactions", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "dGVzdA==", r.PostForm.Get("tx"))
			_, _ = w.Write([]byte(`{"hash":"abc123","ledger":7}`))
		}),
	)
	defer srv.Close()
	c := testClient(t, srv.URL)
	record, err := c.SubmitTransaction(context.Background(), "dGVzdA==")
	require.NoError(t, err)
	hash, ok := record.GetString("hash")
	require.True(t, ok)
	assert.Equal(t, "abc123", hash)
}
