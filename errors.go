package oci

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is. Every typed error in this
// package matches exactly one of them.
var (
	ErrArgument       = errors.New("oci: invalid argument")
	ErrConversion     = errors.New("oci: conversion failed")
	ErrNotImplemented = errors.New("oci: conversion not implemented")
	ErrCollaborator   = errors.New("oci: library call failed")
	ErrState          = errors.New("oci: invalid state")
)

// ArgumentError reports a bad position, name or size. It is always raised
// before any library call is made.
type ArgumentError struct {
	Op      string
	Arg     string
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("oci: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("oci: %s: %s: %s", e.Op, e.Arg, e.Message)
}

// Is reports whether target is ErrArgument
func (e *ArgumentError) Is(target error) bool { return target == ErrArgument }

func argumentError(op, arg, format string, args ...interface{}) error {
	return &ArgumentError{Op: op, Arg: arg, Message: fmt.Sprintf(format, args...)}
}

// ConversionReason classifies a failed conversion
type ConversionReason int

const (
	// ReasonMismatch means the host type cannot be stored in the wire type
	ReasonMismatch ConversionReason = iota
	// ReasonOverflow means the value is outside the target's range
	ReasonOverflow
	// ReasonFormat means the value could not be parsed
	ReasonFormat
	// ReasonTruncation means the value does not fit the buffer
	ReasonTruncation
)

func (r ConversionReason) String() string {
	switch r {
	case ReasonOverflow:
		return "overflow"
	case ReasonFormat:
		return "format"
	case ReasonTruncation:
		return "truncation"
	default:
		return "type mismatch"
	}
}

// ConversionError reports a host/wire conversion that cannot be performed
// for the given value.
type ConversionError struct {
	From   string
	To     string
	Value  interface{}
	Reason ConversionReason
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("oci: cannot convert %v (%s) to %s: %s", e.Value, e.From, e.To, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrConversion
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// Unwrap returns the underlying parse error, if any
func (e *ConversionError) Unwrap() error { return e.Err }

// NotImplementedError reports an accessor or assignment that the slot's
// wire type does not support.
type NotImplementedError struct {
	Op       string
	WireType WireType
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("oci: %s is not implemented for wire type %s", e.Op, e.WireType)
}

// Is reports whether target is ErrNotImplemented
func (e *NotImplementedError) Is(target error) bool { return target == ErrNotImplemented }

// DiagRecord is one diagnostic record read back from the library after a
// failing call.
type DiagRecord struct {
	Code    int32
	Message string
}

func (r DiagRecord) String() string {
	if r.Code == 0 {
		return r.Message
	}
	msg := strings.TrimSpace(r.Message)
	prefix := fmt.Sprintf("ORA-%05d", r.Code)
	if strings.HasPrefix(msg, prefix) {
		return msg
	}
	return prefix + ": " + msg
}

// CollaboratorError wraps a failing status from the client library
// together with its diagnostic records.
type CollaboratorError struct {
	Call    string
	Status  Status
	Records []DiagRecord
}

func (e *CollaboratorError) Error() string {
	if len(e.Records) == 0 {
		return fmt.Sprintf("oci: %s: %s", e.Call, e.Status)
	}
	var sb strings.Builder
	for i, rec := range e.Records {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(rec.String())
	}
	return fmt.Sprintf("oci: %s: %s", e.Call, sb.String())
}

// Is reports whether target is ErrCollaborator, or a CollaboratorError
// carrying the same native code.
func (e *CollaboratorError) Is(target error) bool {
	if target == ErrCollaborator {
		return true
	}
	if t, ok := target.(*CollaboratorError); ok {
		return t.Code() != 0 && e.Code() == t.Code()
	}
	return false
}

// Code returns the native code of the first diagnostic record, or 0
func (e *CollaboratorError) Code() int32 {
	if len(e.Records) == 0 {
		return 0
	}
	return e.Records[0].Code
}

// newCollaboratorError builds a CollaboratorError from the library's
// current diagnostics.
func newCollaboratorError(lib CallInterface, call string, st Status) error {
	return &CollaboratorError{Call: call, Status: st, Records: lib.Diagnostics()}
}

// StateError reports use of an object in a state that does not allow the
// operation, for example reading a column while no row is current or
// using a bind after its statement was closed.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("oci: %s not allowed: %s", e.Op, e.State)
}

// Is reports whether target is ErrState
func (e *StateError) Is(target error) bool { return target == ErrState }

// Native error codes with special meaning to callers
const (
	CodeNoDataFound       = 1403  // no data found
	CodeColumnTruncated   = 1406  // fetched column value was truncated
	CodeNullIntoNotNull   = 1405  // fetched column value is NULL
	CodeDataTruncated     = 24345 // a truncation or null fetch error occurred
	CodeUniqueConstraint  = 1     // unique constraint violated
	CodeValueTooLarge     = 12899 // value too large for column
	CodeNumericOverflow   = 1426  // numeric overflow
	CodeInvalidIdentifier = 904   // invalid identifier
)

// IsDataTruncation reports whether err indicates data truncation.
func IsDataTruncation(err error) bool {
	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		return false
	}
	for _, rec := range ce.Records {
		if rec.Code == CodeColumnTruncated || rec.Code == CodeDataTruncated {
			return true
		}
	}
	return false
}

// checkStatus converts a failing status into a CollaboratorError.
// SuccessWithInfo is not an error.
func checkStatus(lib CallInterface, call string, st Status) error {
	if st.IsSuccess() {
		return nil
	}
	return newCollaboratorError(lib, call, st)
}
