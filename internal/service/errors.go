package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested item does not exist or is
	// hidden from the viewer.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when a mutation needs a logged-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotOwner is returned when the viewer tries to mutate someone else's content.
	ErrNotOwner = errors.New("not the owner")
	// ErrInvalidCredentials is returned by password checks.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationErrors maps form field names to messages.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field unless one is already present.
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// OrNil returns v as an error, or nil when it holds nothing.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidation extracts validation errors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
