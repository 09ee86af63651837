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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultReconnectTimeout is how long a stream waits without receiving a
	// message before tearing down the connection and re-establishing it
	DefaultReconnectTimeout = 15 * time.Second

	// errorRetryDelay is the pause before reconnecting after a genuine
	// connection error, to avoid hammering an unreachable server
	errorRetryDelay = time.Second

	// streamScannerBufferSize is the max size of a single server-sent event
	streamScannerBufferSize = 1024 * 1024
)

// errStreamStalled signals that the reconnect timer tore down a connection
// that went silent. This is a liveness guard, not an error condition, so it
// never reaches the caller's error callback
var errStreamStalled = errors.New("stream stalled")

// Stream lifecycle states
type streamState int

const (
	streamStateConnecting streamState = iota
	streamStateStreaming
	streamStateReconnecting
	streamStateClosed
)

// StreamMessageFunc is a callback function type for handling stream
// messages. Returning an error tears down the connection and reports it to
// the error callback. Delivery is at-least-once across reconnect
// boundaries, so handlers must be idempotent
type StreamMessageFunc func(*Record) error

// StreamErrorFunc is a callback function type for handling connection-level
// stream errors
type StreamErrorFunc func(error)

// StreamConfig contains configuration options for a stream subscription
type StreamConfig struct {
	MessageFunc      StreamMessageFunc
	ErrorFunc        StreamErrorFunc
	ReconnectTimeout time.Duration
}

// StreamOptionFunc is a function that modifies a StreamConfig
type StreamOptionFunc func(*StreamConfig)

// NewStreamConfig creates a new StreamConfig with default values, applying
// any provided option functions
func NewStreamConfig(options ...StreamOptionFunc) StreamConfig {
	c := StreamConfig{
		ReconnectTimeout: DefaultReconnectTimeout,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithMessageFunc sets the message callback in the StreamConfig
func WithMessageFunc(messageFunc StreamMessageFunc) StreamOptionFunc {
	return func(c *StreamConfig) {
		c.MessageFunc = messageFunc
	}
}

// WithErrorFunc sets the error callback in the StreamConfig
func WithErrorFunc(errorFunc StreamErrorFunc) StreamOptionFunc {
	return func(c *StreamConfig) {
		c.ErrorFunc = errorFunc
	}
}

// WithReconnectTimeout sets the silent-reconnect timeout in the
// StreamConfig
func WithReconnectTimeout(timeout time.Duration) StreamOptionFunc {
	return func(c *StreamConfig) {
		c.ReconnectTimeout = timeout
	}
}

// Stream is a live server-push subscription against a query endpoint. It
// owns one connection and one reconnect timer at a time; the old connection
// is always torn down before a new one is established so a single cursor
// position is advanced by at most one reader
type Stream struct {
	client     *Client
	httpClient *http.Client
	config     StreamConfig
	requestURL url.URL

	cursor      string
	cursorMutex sync.Mutex

	state      streamState
	stateMutex sync.Mutex

	respBody  io.ReadCloser
	connMutex sync.Mutex

	timer      *time.Timer
	timerMutex sync.Mutex

	stalled   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	doneChan  chan struct{}
	onceClose sync.Once
	waitGroup sync.WaitGroup
}

// Stream opens a persistent server-push subscription for the builder's
// request. Configuration errors are returned before any connection is
// attempted. The returned Stream's Close method is the cancellation handle
func (b *CallBuilder) Stream(cfg StreamConfig) (*Stream, error) {
	requestURL, err := b.BuildURL()
	if err != nil {
		return nil, err
	}
	parsedURL, err := url.Parse(requestURL)
	if err != nil {
		return nil, ConfigurationError{Reason: err.Error()}
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = DefaultReconnectTimeout
	}
	s := &Stream{
		client: b.client,
		// The one-shot client's request timeout would sever a long-lived
		// stream, so share only its transport
		httpClient: &http.Client{Transport: b.client.httpClient.Transport},
		config:     cfg,
		requestURL: *parsedURL,
		cursor:     b.params.Get("cursor"),
		state:      streamStateConnecting,
		doneChan:   make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.waitGroup.Add(1)
	go s.run()
	return s, nil
}

// Close cancels the subscription: the reconnect timer is cleared and the
// connection torn down. A message arriving concurrently with cancellation
// may fire its callback once, but no callback fires after Close returns
func (s *Stream) Close() {
	s.onceClose.Do(func() {
		s.setState(streamStateClosed)
		close(s.doneChan)
		s.cancel()
		s.stopTimer()
		s.closeConn()
		s.waitGroup.Wait()
	})
}

func (s *Stream) run() {
	defer s.waitGroup.Done()
	for {
		select {
		case <-s.doneChan:
			return
		default:
		}
		err := s.connect()
		if s.closed() {
			return
		}
		if err == nil || errors.Is(err, errStreamStalled) {
			// Silent reconnect: either the server closed the stream cleanly
			// or the reconnect timer tore down a stalled connection
			s.setState(streamStateReconnecting)
			continue
		}
		s.client.logger.Debug(
			"stream connection error",
			"url", s.requestURL.String(),
			"error", err,
		)
		if s.config.ErrorFunc != nil {
			s.config.ErrorFunc(err)
		}
		select {
		case <-s.doneChan:
			return
		case <-time.After(errorRetryDelay):
		}
	}
}

// connect runs a single connection lifecycle: establish, read messages
// until the connection dies, classify why
func (s *Stream) connect() error {
	s.setState(streamStateConnecting)
	requestURL := s.requestURL
	query := requestURL.Query()
	if cursor := s.getCursor(); cursor != "" {
		query.Set("cursor", cursor)
	}
	requestURL.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(
		s.ctx,
		http.MethodGet,
		requestURL.String(),
		nil,
	)
	if err != nil {
		return NetworkError{Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if s.stalled.Swap(false) || s.closed() {
			return errStreamStalled
		}
		return NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return mapResponseError(resp.StatusCode, body)
	}
	if !s.storeConn(resp.Body) {
		// Closed while connecting
		resp.Body.Close()
		return nil
	}
	s.setState(streamStateStreaming)
	s.startTimer()
	readErr := s.readEvents(resp.Body)
	s.stopTimer()
	s.closeConn()
	if s.stalled.Swap(false) {
		return errStreamStalled
	}
	return readErr
}

// readEvents parses server-sent events off the connection until it dies.
// Every received event resets the reconnect timer
func (s *Stream) readEvents(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 4096), streamScannerBufferSize)
	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(dataLines) > 0 {
				if err := s.handleMessage(strings.Join(dataLines, "\n")); err != nil {
					return err
				}
				dataLines = dataLines[:0]
			}
			continue
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			dataLines = append(dataLines, strings.TrimPrefix(data, " "))
		}
		// Other SSE fields (event, id, retry, comments) are ignored
	}
	return scanner.Err()
}

// handleMessage normalizes one event payload exactly like a single query
// response and advances the cursor so a future reconnect resumes from the
// last seen position
func (s *Stream) handleMessage(payload string) error {
	s.startTimer()
	// The endpoint sends bare "hello"/"byebye" markers around the actual
	// records
	if payload == `"hello"` || payload == `"byebye"` {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		s.client.logger.Debug(
			"ignoring unparseable stream message",
			"error", err,
		)
		return nil
	}
	record := normalizeRecord(raw)
	if token := record.PagingToken(); token != "" {
		s.setCursor(token)
	}
	if s.closed() {
		return nil
	}
	if s.config.MessageFunc != nil {
		return s.config.MessageFunc(record)
	}
	return nil
}

// startTimer (re)schedules the reconnect timer. When it fires, the
// connection is torn down and silently re-established
func (s *Stream) startTimer() {
	s.timerMutex.Lock()
	defer s.timerMutex.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.config.ReconnectTimeout, func() {
		if s.closed() {
			return
		}
		s.stalled.Store(true)
		s.setState(streamStateReconnecting)
		s.closeConn()
	})
}

func (s *Stream) stopTimer() {
	s.timerMutex.Lock()
	defer s.timerMutex.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}

// storeConn records the live connection. It returns false if the stream
// was closed first, in which case the caller must not proceed
func (s *Stream) storeConn(body io.ReadCloser) bool {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()
	if s.closed() {
		return false
	}
	s.respBody = body
	return true
}

func (s *Stream) closeConn() {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()
	if s.respBody != nil {
		s.respBody.Close()
		s.respBody = nil
	}
}

func (s *Stream) getCursor() string {
	s.cursorMutex.Lock()
	defer s.cursorMutex.Unlock()
	return s.cursor
}

func (s *Stream) setCursor(cursor string) {
	s.cursorMutex.Lock()
	defer s.cursorMutex.Unlock()
	s.cursor = cursor
}

func (s *Stream) setState(state streamState) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	if s.state == streamStateClosed {
		return
	}
	s.state = state
}

func (s *Stream) closed() bool {
	select {
	case <-s.doneChan:
		return true
	default:
		return false
	}
}
