package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeDuplicate represents id collisions on create
	ErrorTypeDuplicate ErrorType = "duplicate"
	// ErrorTypeNotFound represents lookups of absent nodes/edges
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeEndpoint represents edges referencing nonexistent nodes
	ErrorTypeEndpoint ErrorType = "endpoint_not_found"
	// ErrorTypeValidation represents malformed input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStore represents record store failures
	ErrorTypeStore ErrorType = "store"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

func (e *BaseError) errorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrDuplicateID is returned when a create names an id already present in the collection
type ErrDuplicateID struct {
	*BaseError
	Kind string // "node" or "edge"
	ID   string
}

func NewDuplicateID(kind, id string) *ErrDuplicateID {
	return &ErrDuplicateID{
		BaseError: NewBaseError(ErrorTypeDuplicate, fmt.Sprintf("%s already exists: %s", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

// ErrNotFound is returned when a referenced node or edge is absent
type ErrNotFound struct {
	*BaseError
	Kind string
	ID   string
}

func NewNotFound(kind, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

// ErrEndpointNotFound is returned when an edge references a node that does not exist
type ErrEndpointNotFound struct {
	*BaseError
	EdgeID string
	NodeID string
}

func NewEndpointNotFound(edgeID, nodeID string) *ErrEndpointNotFound {
	return &ErrEndpointNotFound{
		BaseError: NewBaseError(ErrorTypeEndpoint, fmt.Sprintf("edge %s references missing node: %s", edgeID, nodeID), nil),
		EdgeID:    edgeID,
		NodeID:    nodeID,
	}
}

// ErrValidation is returned when input is malformed
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrStore is returned when the record store fails; callers may retry
type ErrStore struct {
	*BaseError
	Op string
}

func NewStore(op string, err error) *ErrStore {
	return &ErrStore{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", op), err),
		Op:        op,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type. It sees through
// both the typed wrappers above (which embed *BaseError) and fmt.Errorf
// wrapping.
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ errorType() ErrorType }
	if errors.As(err, &typed) {
		return typed.errorType() == errType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Only record store failures are worth retrying; everything else
	// reflects the request itself.
	return IsErrorType(err, ErrorTypeStore)
}
