package gradingclient

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError covers timeouts, cancellation and connection failures.
type NetworkError struct {
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("grading request timed out: %v", e.Err)
	}
	return fmt.Sprintf("grading request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError is returned for non-2xx responses.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("grading service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("grading service returned status %d: %s", e.StatusCode, body)
}

// MalformedResponseError is returned when a 2xx body cannot be decoded.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed grading response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ProtocolError means the service answered but without a status field.
// It is not recovered by local grading.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "grading protocol error: " + e.Reason
}

// IsProtocolError reports whether err is a ProtocolError.
func IsProtocolError(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr)
}

func failureReason(err error) string {
	var (
		networkErr   *NetworkError
		serviceErr   *ServiceError
		malformedErr *MalformedResponseError
	)
	switch {
	case errors.As(err, &networkErr):
		if networkErr.Timeout {
			return "timeout"
		}
		return "network"
	case errors.As(err, &serviceErr):
		return "service"
	case errors.As(err, &malformedErr):
		return "malformed"
	default:
		return "other"
	}
}
