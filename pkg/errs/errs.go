// Package errs defines the surfaced error taxonomy shared across
// UltraSearch components (spec §7).
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the surfaced error kinds named in spec §7.
type Kind string

const (
	VolumeEnumeration  Kind = "VolumeEnumeration"
	JournalGap         Kind = "JournalGap"
	JournalWrap        Kind = "JournalWrap"
	IndexCorrupt       Kind = "IndexCorrupt"
	IndexBusy          Kind = "IndexBusy"
	WriterLeaseDenied  Kind = "WriterLeaseDenied"
	ExtractorUnsupported Kind = "ExtractorUnsupported"
	ExtractorCorrupt   Kind = "ExtractorCorrupt"
	ExtractorOversize  Kind = "ExtractorOversize"
	ExtractorTimeout   Kind = "ExtractorTimeout"
	BackendInit        Kind = "BackendInit"
	Timeout            Kind = "Timeout"
	ProtocolVersion    Kind = "ProtocolVersion"
	ConfigInvalid      Kind = "ConfigInvalid"
	IoTransient        Kind = "IoTransient"
	IoFatal            Kind = "IoFatal"
)

// Error wraps a Kind with context and an optional cause, letting callers
// both log a structured kind and errors.Is/As against the cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
