package errors

import (
	stderrors "errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// StorageConflictError is returned once the store gave up retrying a
// transaction that kept conflicting with concurrent writers.
type StorageConflictError struct {
	Message  string
	Attempts int
	Cause    error
}

func (e *StorageConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s after %d attempts: %v", e.Message, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s after %d attempts", e.Message, e.Attempts)
}

func (e *StorageConflictError) Unwrap() error {
	return e.Cause
}

func NewStorageConflictError(message string, attempts int, cause error) *StorageConflictError {
	return &StorageConflictError{
		Message:  message,
		Attempts: attempts,
		Cause:    cause,
	}
}

func IsStorageConflictError(err error) (*StorageConflictError, bool) {
	var sce *StorageConflictError
	if stderrors.As(err, &sce) {
		return sce, true
	}
	return nil, false
}

// NotificationError wraps a failed outbound message. It is logged by the
// dispatcher and never returned to callers.
type NotificationError struct {
	To    string
	Cause error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.To, e.Cause)
}

func (e *NotificationError) Unwrap() error {
	return e.Cause
}

func NewNotificationError(to string, cause error) *NotificationError {
	return &NotificationError{To: to, Cause: cause}
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
