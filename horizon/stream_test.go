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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func streamTestClient(t *testing.T, horizonURL string) (*Client, *http.Transport) {
	t.Helper()
	transport := &http.Transport{}
	c, err := NewClient(
		WithHorizonURL(horizonURL),
		WithHTTPClient(&http.Client{Transport: transport}),
	)
	require.NoError(t, err)
	return c, transport
}

func writeEvent(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	require.NoError(t, err)
	flusher.Flush()
}

func TestStreamDeliversMessages(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			writeEvent(t, w, `"hello"`)
			writeEvent(t, w, `{"id":"tx1","paging_token":"1"}`)
			writeEvent(t, w, `{"id":"tx2","paging_token":"2"}`)
			<-r.Context().Done()
		}),
	)
	c, transport := streamTestClient(t, srv.URL)
	msgChan := make(chan *Record, 10)
	cfg := NewStreamConfig(
		WithMessageFunc(func(record *Record) error {
			msgChan <- record
			return nil
		}),
		WithErrorFunc(func(err error) {
			t.Errorf("unexpected stream error: %s", err)
		}),
	)
	stream, err := c.Transactions().Cursor("now").Stream(cfg)
	require.NoError(t, err)
	for _, expected := range []string{"tx1", "tx2"} {
		select {
		case record := <-msgChan:
			id, _ := record.GetString("id")
			assert.Equal(t, expected, id)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for stream message")
		}
	}
	stream.Close()
	transport.CloseIdleConnections()
	srv.Close()
}

func TestStreamSilentReconnectResumesCursor(t *testing.T) {
	defer goleak.VerifyNone(t)
	var connections atomic.Int64
	var secondCursor atomic.Value
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			switch connections.Add(1) {
			case 1:
				writeEvent(t, w, `{"id":"tx1","paging_token":"5"}`)
				// Go silent so the reconnect timer fires
			default:
				secondCursor.Store(r.URL.Query().Get("cursor"))
				writeEvent(t, w, `{"id":"tx2","paging_token":"6"}`)
			}
			<-r.Context().Done()
		}),
	)
	c, transport := streamTestClient(t, srv.URL)
	msgChan := make(chan *Record, 10)
	var errorCalls atomic.Int64
	cfg := NewStreamConfig(
		WithMessageFunc(func(record *Record) error {
			msgChan <- record
			return nil
		}),
		WithErrorFunc(func(err error) {
			errorCalls.Add(1)
		}),
		WithReconnectTimeout(100*time.Millisecond),
	)
	stream, err := c.Transactions().Stream(cfg)
	require.NoError(t, err)
	for _, expected := range []string{"tx1", "tx2"} {
		select {
		case record := <-msgChan:
			id, _ := record.GetString("id")
			assert.Equal(t, expected, id)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for stream message")
		}
	}
	// The reconnect resumed from the last seen pagination token
	assert.Equal(t, "5", secondCursor.Load())
	// A timeout-driven reconnect is a liveness guard, not an error
	assert.Equal(t, int64(0), errorCalls.Load())
	stream.Close()
	transport.CloseIdleConnections()
	srv.Close()
}

func TestStreamErrorCallback(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}),
	)
	c, transport := streamTestClient(t, srv.URL)
	errChan := make(chan error, 10)
	cfg := NewStreamConfig(
		WithErrorFunc(func(err error) {
			errChan <- err
		}),
	)
	stream, err := c.Transactions().Stream(cfg)
	require.NoError(t, err)
	select {
	case streamErr := <-errChan:
		var netErr NetworkError
		require.ErrorAs(t, streamErr, &netErr)
		assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for stream error")
	}
	stream.Close()
	transport.CloseIdleConnections()
	srv.Close()
}

func TestStreamConfigurationErrorBeforeConnect(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := testClient(t, "https://horizon.example.org")
	_, err := c.Transactions().
		ForAccount("acct1xyz").
		ForLedger(5).
		Stream(NewStreamConfig())
	var confErr ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestStreamCloseStopsCallbacks(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			i := 0
			for {
				select {
				case <-r.Context().Done():
					return
				case <-ticker.C:
					i++
					// The write fails once the client disconnects
					if _, err := fmt.Fprintf(
						w,
						"data: {\"id\":\"tx%d\",\"paging_token\":\"%d\"}\n\n",
						i,
						i,
					); err != nil {
						return
					}
					w.(http.Flusher).Flush()
				}
			}
		}),
	)
	c, transport := streamTestClient(t, srv.URL)
	var messages atomic.Int64
	cfg := NewStreamConfig(
		WithMessageFunc(func(record *Record) error {
			messages.Add(1)
			return nil
		}),
	)
	stream, err := c.Transactions().Stream(cfg)
	require.NoError(t, err)
	require.Eventually(
		t,
		func() bool { return messages.Load() > 0 },
		5*time.Second,
		10*time.Millisecond,
	)
	stream.Close()
	seen := messages.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, seen, messages.Load())
	transport.CloseIdleConnections()
	srv.Close()
}
