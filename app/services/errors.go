package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/repositories"
)

var (
	ErrNotFound           = repositories.ErrNotFound
	ErrInsufficientStock  = inventory.ErrInsufficientStock
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries field → message pairs for business-rule failures
// that struct tags cannot express.
type ValidationError struct {
	Fields map[string]string
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// duplicate turns a repository duplicate into ErrConflict with msg.
func duplicate(err error, msg string) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
	return err
}

// found maps a repository not-found to a named one and passes other errors
// through.
func found(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(what)
	}
	return err
}
