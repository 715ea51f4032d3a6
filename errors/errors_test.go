/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("Note", `title = "missing"`)

	expected := `Note with key "title = \"missing\"" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
	if IsOperation(err) {
		t.Error("NotFoundError must stay distinguishable from operation failures")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("Note", "n-1")

	expected := `Note with key "n-1" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "cloudContainerID",
			message:  "required for cloud stores",
			expected: `validation failed for field "cloudContainerID": required for cloud stores`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "no stores configured",
			expected: "validation failed: no stores configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}
			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestStoreLoadError(t *testing.T) {
	cause := fmt.Errorf("open: %w", fs.ErrPermission)

	t.Run("WithPath", func(t *testing.T) {
		err := NewStoreLoadError(1, "local(configuration=Default, file=local)", "/data/local.sqlite", cause)

		expected := "failed to load store #1 (local(configuration=Default, file=local) at /data/local.sqlite): open: permission denied"
		if err.Error() != expected {
			t.Errorf("Expected error message %q, got %q", expected, err.Error())
		}
		if !IsStoreLoad(err) {
			t.Error("IsStoreLoad should return true for StoreLoadError")
		}
		if !errors.Is(err, fs.ErrPermission) {
			t.Error("StoreLoadError should unwrap to its cause")
		}

		var sle *StoreLoadError
		if !errors.As(err, &sle) || sle.Index != 1 {
			t.Fatalf("Expected StoreLoadError for index 1, got %v", err)
		}
	})

	t.Run("WithoutPath", func(t *testing.T) {
		err := NewStoreLoadError(0, "cloud-private", "", cause)
		expected := "failed to load store #0 (cloud-private): open: permission denied"
		if err.Error() != expected {
			t.Errorf("Expected error message %q, got %q", expected, err.Error())
		}
	})
}

func TestOperationError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewOperationError("save", cause)

	if err.Error() != "save failed: disk full" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !IsOperation(err) || !errors.Is(err, cause) {
		t.Error("OperationError should match ErrOperation and its cause")
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("Note", "n-1", "object was deleted")

	expected := `conflict on Note with key "n-1": object was deleted`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsConflict(err) {
		t.Error("IsConflict should return true for ConflictError")
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("put", "attribute_not_exists(PK)")

	expected := "condition check failed for put operation: attribute_not_exists(PK)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("Note", "123")
	wrapped := fmt.Errorf("fetch first: %w", original)

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrStoreLoad,
		ErrOperation,
		ErrConflict,
		ErrIncompatibleModel,
		ErrClosed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
