package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrMissingTenant = errors.New("X-Organization-Id header is missing")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NotFoundError reports a resource that does not exist inside the caller's organization.
// A row owned by another organization is reported the same way.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s #%d not found in this organization", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ForbiddenError reports a role mismatch on a gated operation.
type ForbiddenError struct {
	Required Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied: requires %s role", e.Required)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
