// Package resilience wraps every outbound Dynamics request with correlation,
// structured logging, rate limiting, classified retry and metrics.
package resilience

import (
	"errors"
	"net"
	"net/http"
)

// ErrorClass classifies a transport or HTTP-level failure for the retry
// policy.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassNetwork
	ClassTimeout
	ClassRateLimited
	ClassServerError
	ClassClientError
	ClassAuthError
)

// Retryable reports whether the retry loop should attempt this class again.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassNetwork, ClassTimeout, ClassRateLimited, ClassServerError:
		return true
	default:
		return false
	}
}

func (c ErrorClass) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	case ClassRateLimited:
		return "rate_limited"
	case ClassServerError:
		return "server_error"
	case ClassClientError:
		return "client_error"
	case ClassAuthError:
		return "auth_error"
	default:
		return "unknown"
	}
}

// Classify determines the ErrorClass for a completed HTTP round trip. Either
// transportErr or a non-nil *http.Response (never both meaningfully) is
// supplied by the caller.
func Classify(statusCode int, transportErr error) ErrorClass {
	if transportErr != nil {
		var netErr net.Error
		if errors.As(transportErr, &netErr) && netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	switch {
	case statusCode == http.StatusRequestTimeout:
		return ClassTimeout
	case statusCode == http.StatusTooManyRequests:
		return ClassRateLimited
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ClassAuthError
	case statusCode >= 500 && statusCode < 600:
		return ClassServerError
	case statusCode >= 400 && statusCode < 500:
		return ClassClientError
	default:
		return ClassUnknown
	}
}
