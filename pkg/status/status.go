// Package status defines the error kinds returned by table operations.
//
// Every error produced by the table layer is a *Error carrying a Code.
// Callers test for a kind with errors.Is against the sentinels below and
// read the not-found reason with ReasonOf.
package status

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code int

const (
	OK Code = iota
	InvalidArgument
	ObjectNotFound
	AlreadyExists
	NotSupported
	Unexpected
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid argument"
	case ObjectNotFound:
		return "object not found"
	case AlreadyExists:
		return "already exists"
	case NotSupported:
		return "not supported"
	case Unexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Reasons attached to ObjectNotFound by the indirection resolver.
const (
	ReasonMember       = "member"
	ReasonGroupMissing = "group-missing"
	ReasonGroupEmpty   = "group-empty"
	ReasonEntry        = "entry"
	ReasonField        = "field"
)

// Error is a classified table-layer error.
type Error struct {
	Code   Code
	Reason string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code. A target with a reason
// only matches errors carrying that reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument = &Error{Code: InvalidArgument}
	ErrObjectNotFound  = &Error{Code: ObjectNotFound}
	ErrAlreadyExists   = &Error{Code: AlreadyExists}
	ErrNotSupported    = &Error{Code: NotSupported}
	ErrUnexpected      = &Error{Code: Unexpected}
)

// Errorf builds an error of the given code.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Invalidf builds an InvalidArgument error.
func Invalidf(format string, args ...any) error {
	return Errorf(InvalidArgument, format, args...)
}

// NotFoundf builds an ObjectNotFound error with a reason.
func NotFoundf(reason, format string, args ...any) error {
	return &Error{Code: ObjectNotFound, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under code, keeping it in the chain.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Unexpectedf reports a broken internal invariant. Builds tagged with
// tblmgr_debug panic instead of returning.
func Unexpectedf(format string, args ...any) error {
	err := Errorf(Unexpected, format, args...)
	if debugAsserts {
		panic(err)
	}
	return err
}

// CodeOf returns the code of the first *Error in err's chain, OK for nil
// and Unexpected for errors that carry no code.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unexpected
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsNotFound reports whether err is ObjectNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrObjectNotFound) }
