package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Class is the retry classification of an error.
type Class int

const (
	// Terminal errors are never retried.
	Terminal Class = iota
	// Transient errors are safe to retry.
	Transient
)

// HTTPStatusError reports a non-2xx HTTP response. Its classification is
// derived purely from the status code, so Classify is a pure function of it.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// TransientError wraps an error that is known to be safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as explicitly transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// Classify maps an error to Transient or Terminal. retryUnknown decides the
// class of errors that match neither the HTTP nor the network rules.
//
// Rules: timeouts, connection resets, and HTTP 408/429/5xx are Transient.
// Any other HTTP 4xx, 403 included, is Terminal.
func Classify(err error, retryUnknown bool) Class {
	if err == nil {
		return Terminal
	}

	var se *HTTPStatusError
	if errors.As(err, &se) {
		if IsTransientHTTPStatus(se.StatusCode) {
			return Transient
		}
		return Terminal
	}

	var te *TransientError
	if errors.As(err, &te) {
		return Transient
	}

	if isNetworkTransient(err) {
		return Transient
	}

	if retryUnknown {
		return Transient
	}
	return Terminal
}

// IsTransient reports whether the error is retryable under the default
// policy (unknown errors are transient).
func IsTransient(err error) bool {
	return err != nil && Classify(err, true) == Transient
}

// isNetworkTransient matches network-level failures that are safe to retry.
func isNetworkTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	if statusCode >= 500 {
		return true
	}
	switch statusCode {
	case 408, // Request Timeout
		429: // Too Many Requests
		return true
	default:
		return false
	}
}
