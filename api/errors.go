// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the hioload-mem allocator.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrExhausted          = errors.New("size class exhausted")
	ErrOversize           = errors.New("request exceeds largest size class")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidConfig      = errors.New("invalid allocator configuration")
	ErrDoubleFree         = errors.New("block freed twice")
	ErrAllocatorBreakdown = errors.New("allocator breakdown")
	ErrPoolClosed         = errors.New("pool is closed")
	ErrForeignBlock       = errors.New("block does not belong to this pool")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInvalidConfig
	ErrCodeExhausted
	ErrCodeOversize
	ErrCodeDoubleFree
	ErrCodeAllocatorBreakdown
	ErrCodePoolClosed
	ErrCodeForeignBlock
	ErrCodeInternal
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeInvalidArgument:    ErrInvalidArgument,
	ErrCodeInvalidConfig:      ErrInvalidConfig,
	ErrCodeExhausted:          ErrExhausted,
	ErrCodeOversize:           ErrOversize,
	ErrCodeDoubleFree:         ErrDoubleFree,
	ErrCodeAllocatorBreakdown: ErrAllocatorBreakdown,
	ErrCodePoolClosed:         ErrPoolClosed,
	ErrCodeForeignBlock:       ErrForeignBlock,
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel matching e.Code, so errors.Is works on structured errors.
func (e *Error) Unwrap() error {
	return codeSentinels[e.Code]
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRecoverable reports whether err is an ordinary allocation outcome the caller
// can react to (retry later, apply backpressure or resize the request).
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrExhausted) || errors.Is(err, ErrOversize)
}
