package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the tenancy core. Match them with errors.Is.
var (
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
	ErrInvariant           = errors.New("invariant_violation")
	ErrConflict            = errors.New("conflict")
	ErrPaymentNotSucceeded = errors.New("payment_not_succeeded")
	ErrExternalService     = errors.New("external_service_failure")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")
)

// Collaborator names used in ExternalServiceError.
const (
	CollaboratorDocumentGenerator = "document_generator"
	CollaboratorPaymentGateway    = "payment_gateway"
	CollaboratorNotifier          = "notifier"
	CollaboratorObjectStorage     = "object_storage"
)

// DomainError is the typed error returned by service operations.
type DomainError struct {
	Kind         error
	Message      string
	Collaborator string
	Err          error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Collaborator != "" {
		msg = e.Collaborator + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *DomainError) Is(target error) bool {
	return target == e.Kind
}

func (e *DomainError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...any) error {
	return &DomainError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &DomainError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInvariantError(format string, args ...any) error {
	return &DomainError{Kind: ErrInvariant, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) error {
	return &DomainError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NewPaymentNotSucceededError(reference, status string) error {
	return &DomainError{
		Kind:         ErrPaymentNotSucceeded,
		Message:      fmt.Sprintf("payment %s is %s", reference, status),
		Collaborator: CollaboratorPaymentGateway,
	}
}

func NewExternalServiceError(collaborator string, err error) error {
	return &DomainError{
		Kind:         ErrExternalService,
		Message:      "call failed",
		Collaborator: collaborator,
		Err:          err,
	}
}

// NewDocumentGenerationError wraps a lease rendering or upload failure.
func NewDocumentGenerationError(err error) error {
	return NewExternalServiceError(CollaboratorDocumentGenerator, err)
}

// CollaboratorOf returns the failing collaborator of an ExternalServiceError, if any.
func CollaboratorOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Collaborator
	}
	return ""
}

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// ToAppError maps a domain error onto an HTTP status and public code.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	status, code := http.StatusInternalServerError, ErrCodeInternal
	switch {
	case errors.Is(err, ErrValidation):
		status, code = http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, ErrInvariant):
		status, code = http.StatusUnprocessableEntity, ErrCodeInvariant
	case errors.Is(err, ErrConflict), errors.Is(err, ErrRowVersionConflict):
		status, code = http.StatusConflict, ErrCodeConflict
	case errors.Is(err, ErrPaymentNotSucceeded):
		status, code = http.StatusPaymentRequired, ErrCodePaymentNotSucceeded
	case errors.Is(err, ErrExternalService):
		status, code = http.StatusBadGateway, ErrCodeExternalServiceFailure
	}

	msg := "An unexpected error occurred"
	var de *DomainError
	if errors.As(err, &de) {
		msg = de.Message
		if de.Collaborator != "" {
			msg = de.Collaborator + ": " + msg
		}
	}
	return &AppError{StatusCode: status, Code: code, Message: msg, Err: err}
}

// HandleAppError centralizes responding to service errors.
func HandleAppError(w http.ResponseWriter, err error) {
	appErr := ToAppError(err)
	RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
}
