package driveeapi

import "fmt"

// AuthenticationError means the API rejected the credentials or the bearer
// token. It is the only error kind the request retry policy retries.
type AuthenticationError struct {
	Body string
}

func (e *AuthenticationError) Error() string {
	if e.Body == "" {
		return "drivee: authentication failed"
	}
	return fmt.Sprintf("drivee: authentication failed: %s", e.Body)
}

// APIError is any non-2xx response other than an expired token. Never retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drivee: api error %d: %s", e.StatusCode, e.Body)
}

// NetworkError wraps a transport-level failure, including timeouts. Not
// retried here; the polling cadence provides the natural retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("drivee: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// BusinessRuleError means a payload decoded fine but violates a domain
// invariant. The whole payload is rejected, never a partial entity.
type BusinessRuleError struct {
	Rule string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("drivee: business rule violated: %s", e.Rule)
}

// SessionError is raised synchronously when a charging command is issued
// without a known EVSE or session identifier.
type SessionError struct {
	Reason string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("drivee: session error: %s", e.Reason)
}

func businessRuleErrorf(format string, args ...any) error {
	return &BusinessRuleError{Rule: fmt.Sprintf(format, args...)}
}
