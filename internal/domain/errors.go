package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is the parent of every synchronous precondition rejection.
	// Operations failing with it performed no I/O.
	ErrPrecondition = errors.New("precondition failed")

	ErrUnsavedItem      = errors.New("save the structural item before saving its draft")
	ErrNothingToSave    = errors.New("editor has no unsaved changes")
	ErrNothingToPublish = errors.New("no draft that differs from the published content")
	ErrNotLoaded        = errors.New("no document is loaded")

	// ErrLoadTimeout is returned when a document fetch exceeds the fetch ceiling.
	// Selecting the document again retries the load.
	ErrLoadTimeout = errors.New("document load timed out")

	ErrCommitInProgress = errors.New("a commit is already in progress")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (table or entity type)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PreconditionError wraps one of the precondition sentinels with context.
type PreconditionError struct {
	Reason     error
	DocumentID string
}

func NewPreconditionError(reason error, documentID string) *PreconditionError {
	return &PreconditionError{Reason: reason, DocumentID: documentID}
}

func (e *PreconditionError) Error() string {
	if e.DocumentID == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("document %s: %s", e.DocumentID, e.Reason)
}

// StatusCode implements the HTTPError interface
func (e *PreconditionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}

// CommitPhase names a step of the ledger flush
type CommitPhase string

const (
	CommitPhaseDelete CommitPhase = "delete"
	CommitPhaseCreate CommitPhase = "create"
	CommitPhaseUpdate CommitPhase = "update"
)

// CommitError reports where a ledger flush stopped. Changes listed in Flushed
// reached the gateway before the failure; nothing is rolled back.
type CommitError struct {
	Phase     CommitPhase
	Table     string
	EntityIDs []string
	Flushed   []string // pending change IDs already persisted
	Err       error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("saving changes failed while applying %ss to %s (%s): %v",
		e.Phase, e.Table, strings.Join(e.EntityIDs, ", "), e.Err)
	if len(e.Flushed) > 0 {
		msg += fmt.Sprintf("; %d earlier change(s) were already saved", len(e.Flushed))
	}
	return msg
}

// StatusCode implements the HTTPError interface
func (e *CommitError) StatusCode() int {
	return http.StatusBadGateway
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
