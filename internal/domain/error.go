/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicateKey = errors.New("duplicate ledger key")
	ErrUnavailable  = errors.New("ledger unavailable")
	ErrRejected     = errors.New("rejected by ledger")
	ErrEncoding     = errors.New("input cannot be canonicalized")
	ErrNotFound     = errors.New("item not found")
	ErrRevoked      = errors.New("item revoked")
)

// Validation sub-kinds. errors.Is(err, ErrValidation) holds for each of them.
var (
	ErrMissingField = fmt.Errorf("%w: missing field", ErrValidation)
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", ErrValidation)
	ErrInvalidValue = fmt.Errorf("%w: invalid value", ErrValidation)
)

// FieldError names the input field a validation error refers to.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func MissingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func TypeMismatch(field string) error {
	return &FieldError{Field: field, Err: ErrTypeMismatch}
}

func InvalidValue(field, reason string) error {
	return &FieldError{Field: field, Err: fmt.Errorf("%w: %s", ErrInvalidValue, reason)}
}

// IsRetryable reports whether the caller may retry after a fresh lookup by key.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
