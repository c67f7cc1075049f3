package model

import "fmt"

// NotFoundError reports a missing resource, like a reply's parent comment.
// The HTTP layer maps it to 404.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ValidationError reports rejected caller input. The HTTP layer maps it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a persistence failure. The HTTP layer maps it to 500 and
// keeps the wrapped diagnostics in the logs, never in the response body.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a failed provider call. Transient failures (5xx,
// transport errors, timeouts) are retried through queue redelivery; the rest
// are dropped to the DLQ.
type DeliveryError struct {
	Endpoint  string
	Status    int
	Msg       string
	Transient bool
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Endpoint, e.Msg)
}

// Retryable reports whether queue redelivery can fix this failure.
func (e *DeliveryError) Retryable() bool {
	return e.Transient
}
