/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to insert an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional operation fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrStoreLoad is returned when a configured store cannot be loaded
	ErrStoreLoad = errors.New("store load failed")

	// ErrOperation is returned when a unit of work fails
	ErrOperation = errors.New("operation failed")

	// ErrConflict is returned when a save cannot reconcile with the stored state
	ErrConflict = errors.New("merge conflict")

	// ErrIncompatibleModel is returned when a store was created for a different model
	ErrIncompatibleModel = errors.New("incompatible model")

	// ErrClosed is returned when using a controller or store after Close
	ErrClosed = errors.New("closed")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// StoreLoadError identifies the store description that failed to load and why.
type StoreLoadError struct {
	// Index is the position of the failing spec in the controller's spec list.
	Index int
	// Store is a human readable rendering of the failing spec.
	Store string
	// Path is the resolved location of the store, if one was resolved.
	Path string
	Err  error
}

func (e *StoreLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to load store #%d (%s at %s): %v", e.Index, e.Store, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load store #%d (%s): %v", e.Index, e.Store, e.Err)
}

func (e *StoreLoadError) Is(target error) bool {
	return target == ErrStoreLoad
}

func (e *StoreLoadError) Unwrap() error {
	return e.Err
}

// OperationError attaches the name of the failing operation to an error.
// Controller.Save returns one when a commit fails.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ConflictError is returned when a save cannot be merged with the stored object.
type ConflictError struct {
	Type   string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s with key %q: %s", e.Type, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewStoreLoadError creates a new StoreLoadError
func NewStoreLoadError(index int, store, path string, err error) error {
	return &StoreLoadError{Index: index, Store: store, Path: path, Err: err}
}

// NewOperationError creates a new OperationError
func NewOperationError(op string, err error) error {
	return &OperationError{Op: op, Err: err}
}

// NewConflictError creates a new ConflictError
func NewConflictError(entityType, key, reason string) error {
	return &ConflictError{Type: entityType, Key: key, Reason: reason}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsStoreLoad checks if an error is a store load error
func IsStoreLoad(err error) bool {
	return errors.Is(err, ErrStoreLoad)
}

// IsOperation checks if an error is an operation error
func IsOperation(err error) bool {
	return errors.Is(err, ErrOperation)
}

// IsConflict checks if an error is a merge conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
