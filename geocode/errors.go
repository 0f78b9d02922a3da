// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorType classifies a resolve failure.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit upstream throttled the request.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded upstream refused access.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the request did not complete in time.
	ErrorTypeTimeout
	// ErrorTypeNotFound upstream answered 404.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest upstream rejected the query.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport failure or unavailable service.
	ErrorTypeNetworkError
	// ErrorTypeMalformedResponse the body could not be interpreted.
	ErrorTypeMalformedResponse
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:           "unknown",
	ErrorTypeRateLimit:         "rate_limit",
	ErrorTypeQuotaExceeded:     "quota_exceeded",
	ErrorTypeTimeout:           "timeout",
	ErrorTypeNotFound:          "not_found",
	ErrorTypeInvalidRequest:    "invalid_request",
	ErrorTypeNetworkError:      "network_error",
	ErrorTypeMalformedResponse: "malformed_response",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// ResolveError is a failure to geocode a single query. It never aborts a
// batch; the Mapper drops the affected record and moves on.
type ResolveError struct {
	Type    ErrorType
	Query   string
	Message string
	Err     error
}

func (e *ResolveError) Error() string {
	msg := e.Message
	if e.Query != "" {
		msg = fmt.Sprintf("resolving %q: %s", e.Query, e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether err is an upstream throttling failure.
func IsRateLimitError(err error) bool {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) && resolveErr.Type == ErrorTypeTimeout {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps an unexpected upstream status code to a ResolveError.
func ClassifyHTTPError(statusCode int) *ResolveError {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &ResolveError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden:
		return &ResolveError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest:
		return &ResolveError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound:
		return &ResolveError{
			Type:    ErrorTypeNotFound,
			Message: "endpoint not found",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &ResolveError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &ResolveError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

// classifyTransportError wraps a failed round trip.
func classifyTransportError(query string, err error) *ResolveError {
	if IsTimeoutError(err) {
		return &ResolveError{
			Type:    ErrorTypeTimeout,
			Query:   query,
			Message: "request timed out",
			Err:     err,
		}
	}

	return &ResolveError{
		Type:    ErrorTypeNetworkError,
		Query:   query,
		Message: "request failed",
		Err:     err,
	}
}
