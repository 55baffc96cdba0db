package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeTransaction represents an aborted store transaction
	ErrorTypeTransaction ErrorType = "transaction"
	// ErrorTypeNotFound represents a missing user, group, join request or invitation
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeForbidden represents an acting user lacking the required role or membership
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeValidation represents malformed input that cannot be clamped
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
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

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Transaction Errors

// ErrTransactionFailed is returned when a store transaction aborts. The caller
// decides whether to retry; nothing below it retries partially.
type ErrTransactionFailed struct {
	*BaseError
	Operation string
}

func NewTransactionFailed(operation string, err error) *ErrTransactionFailed {
	return &ErrTransactionFailed{
		BaseError: NewBaseError(ErrorTypeTransaction, fmt.Sprintf("operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Unwrap exposes the BaseError so errors.As finds it through the wrapper
func (e *ErrTransactionFailed) Unwrap() error {
	return e.BaseError
}

// Lookup Errors

// ErrNotFound is returned when a referenced entity does not exist
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

func (e *ErrNotFound) Unwrap() error {
	return e.BaseError
}

// ErrForbidden is returned when the acting user lacks the required role
type ErrForbidden struct {
	*BaseError
	Action string
	Reason string
}

func NewForbidden(action, reason string) *ErrForbidden {
	return &ErrForbidden{
		BaseError: NewBaseError(ErrorTypeForbidden, fmt.Sprintf("not allowed to %s", action), nil),
		Action:    action,
		Reason:    reason,
	}
}

func (e *ErrForbidden) Unwrap() error {
	return e.BaseError
}

// ErrValidationFailed is returned for malformed identifiers and similar input
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

func (e *ErrValidationFailed) Unwrap() error {
	return e.BaseError
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

func (e *ErrGraphConnectionFailed) Unwrap() error {
	return e.BaseError
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

func (e *ErrGraphQueryFailed) Unwrap() error {
	return e.BaseError
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

func (e *ErrContextTimeout) Unwrap() error {
	return e.BaseError
}

// ErrContextCancelled is returned when the caller abandons an operation
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrContextCancelled) Unwrap() error {
	return e.BaseError
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

func (e *ErrConfigMissingRequired) Unwrap() error {
	return e.BaseError
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

func (e *ErrConfigValidationFailed) Unwrap() error {
	return e.BaseError
}

// Helper functions

// IsErrorType checks if an error is of a specific type anywhere in its chain
func IsErrorType(err error, errType ErrorType) bool {
	var baseErr *BaseError
	for err != nil {
		if !stderrors.As(err, &baseErr) {
			return false
		}
		if baseErr.Type == errType {
			return true
		}
		err = baseErr.Err
	}
	return false
}

// IsNotFound reports whether err carries ErrorTypeNotFound
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsForbidden reports whether err carries ErrorTypeForbidden
func IsForbidden(err error) bool {
	return IsErrorType(err, ErrorTypeForbidden)
}

// IsValidation reports whether err carries ErrorTypeValidation
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Aborted transactions and graph connection errors are retryable
	if IsErrorType(err, ErrorTypeTransaction) {
		return true
	}
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	return false
}
