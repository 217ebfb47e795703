// Package domain defines core types, interfaces, and errors for the ETL core.
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// NotFoundError indicates a required resource (file, dataset, run) was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input — a caller-side contract
// violation, not a data-quality event.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// FKValidationError indicates that a fact table contains foreign-key values
// absent from the dimension, raised under the strict validation strategy.
type FKValidationError struct {
	Table        string
	TotalInvalid int
	InvalidKeys  []int64
}

func (e *FKValidationError) Error() string {
	keys := make([]string, len(e.InvalidKeys))
	for i, k := range e.InvalidKeys {
		keys[i] = fmt.Sprintf("%d", k)
	}
	return fmt.Sprintf("table %q has %d record(s) referencing unknown keys [%s]",
		e.Table, e.TotalInvalid, strings.Join(keys, ", "))
}

// NewFKValidationError builds an FKValidationError from an invalid-key set.
// Keys are sorted so the message is deterministic.
func NewFKValidationError(table string, invalidKeys map[int64]struct{}, totalInvalid int) *FKValidationError {
	keys := make([]int64, 0, len(invalidKeys))
	for k := range invalidKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &FKValidationError{Table: table, TotalInvalid: totalInvalid, InvalidKeys: keys}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
