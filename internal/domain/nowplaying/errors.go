// ABOUTME: Error kinds surfaced by the fetch client and the subscription session
// ABOUTME: Callers branch on kind with errors.As instead of matching strings
package nowplaying

import (
	"errors"
	"fmt"
)

// NetworkError reports a fetch that got no response or a non-2xx status.
// StatusCode is zero when no response was received.
type NetworkError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseValidationError reports a fetched body that is not JSON (Issues is
// empty and Err holds the parse error) or does not satisfy the schema.
type ResponseValidationError struct {
	URL    string
	Issues Issues
	Err    error
}

func (e *ResponseValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("invalid response from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("invalid response from %s: %v", e.URL, e.Issues)
}

func (e *ResponseValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Issues
}

// ConnectionError reports a transport failure or an undecodable frame on a
// subscription.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PayloadValidationError reports a pushed payload that failed the schema.
type PayloadValidationError struct {
	Issues Issues
}

func (e *PayloadValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %v", e.Issues)
}

func (e *PayloadValidationError) Unwrap() error { return e.Issues }

// Error kind labels, as reported by KindOf.
const (
	KindNetwork    = "network"
	KindResponse   = "response"
	KindConnection = "connection"
	KindPayload    = "payload"
	KindOther      = "other"
)

// KindOf names the error kind of err for counters and log fields.
func KindOf(err error) string {
	var (
		netErr  *NetworkError
		respErr *ResponseValidationError
		connErr *ConnectionError
		payErr  *PayloadValidationError
	)
	switch {
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &respErr):
		return KindResponse
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &payErr):
		return KindPayload
	default:
		return KindOther
	}
}
