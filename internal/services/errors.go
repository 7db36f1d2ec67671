package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"gorm.io/gorm"
)

// Error kinds. Match with errors.Is; the concrete *Error carries the message
// surfaced to the caller.
var (
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func notFoundError(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func authenticationError(msg string) error {
	return &Error{Kind: ErrAuthentication, Message: msg}
}

func authorizationError(msg string) error {
	return &Error{Kind: ErrAuthorization, Message: msg}
}

// RestrictionError is returned by the gate for a blocked account. It matches
// ErrAuthorization.
type RestrictionError struct {
	Status *BlockStatus
}

func (e *RestrictionError) Error() string {
	switch e.Status.Type {
	case models.RestrictionBanned:
		return "account has been permanently banned"
	case models.RestrictionSuspended:
		return "account is temporarily suspended"
	default:
		return "account has been blocked by an administrator"
	}
}

func (e *RestrictionError) Is(target error) bool {
	return target == ErrAuthorization
}

// BlockStatus is the caller-facing restriction payload.
type BlockStatus struct {
	IsBlocked bool                   `json:"is_blocked"`
	Type      models.RestrictionKind `json:"type,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	BlockedAt *time.Time             `json:"blocked_at,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	CanAppeal bool                   `json:"can_appeal,omitempty"`
	Warned    bool                   `json:"warned,omitempty"`
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
