// Package errors provides sentinel errors which can wrap a cause
// without losing their identity.
//
// A sentinel declared with New remains comparable with errors.Is after
// being wrapped:
//
//	var ErrDownload = errors.New("download failed")
//	...
//	return ErrDownload.Wrap(err)
//
// Wrapping never mutates the sentinel: each call to Wrap returns a new
// error, so sentinels may safely be shared across goroutines.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a sentinel error which may carry a wrapped cause.
type Error struct {
	msg    string
	err    error
	parent *Error
}

// Error message, followed by the cause when there is one
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error. The returned error matches e with Is.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, parent: e.root()}
}

// Wrapf wraps a new error built from a format string
func (e *Error) Wrapf(format string, args ...interface{}) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || e.root() == t
}

func (e *Error) root() *Error {
	if e.parent != nil {
		return e.parent
	}
	return e
}

// As finds the first error in err's chain that matches target
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
