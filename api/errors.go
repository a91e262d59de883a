// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for lfbuddy.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeBackendExhausted
	ErrCodeInvalidOrder
	ErrCodeOutOfMemory
	ErrCodeDoubleFree
	ErrCodeForeignBlock
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeBackendExhausted:
		return "backend exhausted"
	case ErrCodeInvalidOrder:
		return "invalid order"
	case ErrCodeOutOfMemory:
		return "out of memory"
	case ErrCodeDoubleFree:
		return "double free"
	case ErrCodeForeignBlock:
		return "foreign block"
	default:
		return "internal"
	}
}

// Sentinel errors. Errors returned by the allocator carry extra context and
// match these through errors.Is by code.
var (
	ErrInvalidArgument  = NewError(ErrCodeInvalidArgument, "invalid argument")
	ErrBackendExhausted = NewError(ErrCodeBackendExhausted, "backend storage exhausted")
	ErrInvalidOrder     = NewError(ErrCodeInvalidOrder, "invalid order")
	ErrOutOfMemory      = NewError(ErrCodeOutOfMemory, "out of memory")
	ErrDoubleFree       = NewError(ErrCodeDoubleFree, "double free")
	ErrForeignBlock     = NewError(ErrCodeForeignBlock, "foreign block")
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Context) != 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf builds a fresh error of the sentinel's code with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
// Sentinels must not be decorated in place; decorate a fresh error instead.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause records the error that triggered e.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// CodeOf extracts the ErrorCode of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
