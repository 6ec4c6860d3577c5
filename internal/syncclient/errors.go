package syncclient

import "fmt"

// NetworkError wraps transport failures, timeouts, non-success statuses and
// malformed response bodies. Gating operations convert it into a locally
// computed result; non-gating operations surface it as retryable.
type NetworkError struct {
	Endpoint string
	Status   int
	Err      error
}

// Error renders the failure with its endpoint context.
func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("syncclient: %s failed with status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("syncclient: %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError carries a credential failure message, surfaced verbatim.
type AuthError struct {
	Message string
}

// Error returns the backend-provided message.
func (e *AuthError) Error() string {
	return "syncclient: " + e.Message
}
