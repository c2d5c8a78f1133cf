package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotUnavailable = errors.New("slot is no longer available")
	ErrNoEventTypes    = errors.New("no event types configured")
	ErrBookingNotFound = errors.New("booking not found")
)

// ValidationError collects client input problems keyed by field name.
type ValidationError struct {
	FieldErrors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{FieldErrors: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.FieldErrors[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.FieldErrors) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, e.FieldErrors[f])
	}
	return strings.Join(parts, "; ")
}

type RateLimitError struct {
	Policy     string
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s policy", e.Policy)
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// PersistenceError wraps a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
