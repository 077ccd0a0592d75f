// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used across docspace.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"docspace.io/log"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// URI is the document or directory path involved in the operation.
	URI string
	// Op is the operation being performed, usually the name of the
	// method being invoked (Get, Fetch, SaveDocument, etc).
	Op string
	// Kind is the class of error, such as permission failure,
	// or Other if its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var zeroErr Error

// Separator is the string used to separate nested errors. By default,
// to make errors easier on the eye, nested errors are indented on a new
// line. A server may instead choose to keep each error on a single
// line by modifying the separator string, perhaps to ":: ".
var Separator = ":\n\t"

// Kind defines the kind of error this is, mostly for use by callers
// that must act differently depending on the failure.
type Kind uint8

// Kinds of errors.
const (
	Other      Kind = iota // Unclassified error. Not printed in the message.
	Invalid                // Invalid operation for this type of item.
	Permission             // Permission denied.
	Syntax                 // Ill-formed argument such as an invalid URI.
	IO                     // External I/O error such as a network failure.
	Exist                  // Item already exists.
	NotExist               // Item does not exist.
	IsDir                  // Item is a directory.
	NotDir                 // Item is not a directory.
	NotEmpty               // Directory not empty.
	Internal               // Internal inconsistency.

	// Kinds specific to docspace's engine contract (spec.md section 7).
	InvalidLevel     // ensureAccess called with a level outside {r,w,d}.
	AccessDenied     // the driver's access check returned false.
	NotConnected     // requireConnected could not reach connected state.
	AttachTypeError  // attach() argument is not a DB and fails duck-typing.
	MountTypeError   // mount() argument is not DB-like.
	CycleSkipped     // a recursive self-reference was detected and skipped.
	ResolveFailed    // a $ref target could not be loaded.
	DriverError      // a driver call returned an error.
	IndexDecodeError // a directory index row was malformed.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid operation"
	case Permission:
		return "permission denied"
	case Syntax:
		return "syntax error"
	case IO:
		return "I/O error"
	case Exist:
		return "item already exists"
	case NotExist:
		return "item does not exist"
	case IsDir:
		return "item is a directory"
	case NotDir:
		return "item is not a directory"
	case NotEmpty:
		return "directory not empty"
	case Internal:
		return "internal error"
	case InvalidLevel:
		return "invalid access level"
	case AccessDenied:
		return "access denied"
	case NotConnected:
		return "not connected"
	case AttachTypeError:
		return "not a DB"
	case MountTypeError:
		return "not a DB-like mount target"
	case CycleSkipped:
		return "cycle skipped"
	case ResolveFailed:
		return "reference could not be resolved"
	case DriverError:
		return "driver error"
	case IndexDecodeError:
		return "malformed index row"
	}
	return "unknown error kind"
}

// Op describes an operation, usually a method name, for use as an
// argument to E. It is its own type so it can't be confused with a URI.
type Op string

// E builds an error value from its arguments.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//
//	string or Op
//		The operation being performed, usually the method being invoked.
//	errors.Kind
//		The class of error, such as permission failure.
//	error
//		The underlying error that triggered this one.
//
// A string that looks like a path (contains a "/") is recorded as the
// URI instead of the operation, mirroring the teacher's bare-string
// disambiguation.
//
// If Kind is not specified or Other, it is inherited from the
// underlying *Error, if any.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			e.Op = string(arg)
		case string:
			if strings.Contains(arg, "/") && e.URI == "" {
				e.URI = arg
			} else if e.Op == "" {
				e.Op = arg
			} else if e.URI == "" {
				e.URI = arg
			}
		case Kind:
			e.Kind = arg
		case *Error:
			cp := *arg
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}
	// The previous error was also one of ours. Suppress duplication so
	// the message won't repeat the same URI or kind twice.
	if prev.URI == e.URI {
		prev.URI = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.URI != "" {
		b.WriteString(e.URI)
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Is reports whether err is an *Error of the given Kind, unwrapping
// nested docspace errors as needed.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// KindOf returns the most specific Kind recorded in err, or Other.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Other
	}
	if e.Kind != Other {
		return e.Kind
	}
	if e.Err != nil {
		return KindOf(e.Err)
	}
	return Other
}

// Str returns an error that formats as the given text. It is intended
// to be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows callers to import only
// this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}
