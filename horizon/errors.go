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
)

// ConfigurationError represents caller-side misuse of a call builder, such
// as multiple active filters. It is surfaced before any network I/O
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NotFoundError represents an HTTP 404 from the query endpoint. The raw
// response body is retained for the caller
type NotFoundError struct {
	Body []byte
}

func (e NotFoundError) Error() string {
	return "resource not found"
}

// NetworkError represents any other non-2xx response or a transport-level
// failure. For transport failures the underlying error is wrapped and no
// status code is available
type NetworkError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s", e.Err)
	}
	return fmt.Sprintf("network error: unexpected status %d", e.StatusCode)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// mapResponseError classifies a non-2xx response into the error taxonomy
func mapResponseError(statusCode int, body []byte) error {
	if statusCode == http.StatusNotFound {
		return NotFoundError{Body: body}
	}
	return NetworkError{StatusCode: statusCode, Body: body}
}
