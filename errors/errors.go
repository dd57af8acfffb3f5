// Package errors defines the error taxonomy that the pdpfs core surfaces to
// its callers. Every failure maps to exactly one Kind; there are no retries
// and no local recovery, per the core's error handling design.
package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind identifies which class of failure an Error represents.
type Kind int

const (
	// ImageFormat means container bytes could not be parsed.
	ImageFormat Kind = iota
	// GeometryMismatch means the image size or IMD track layout doesn't
	// match any supported device.
	GeometryMismatch
	// NotFound means the requested filename doesn't exist in the directory.
	NotFound
	// Exists means the destination filename exists and overwrite wasn't requested.
	Exists
	// NameInvalid means a filename/extension has characters outside radix-50
	// or exceeds the 6.3 length limit.
	NameInvalid
	// NoSpace means no EMPTY entry is large enough for the requested file.
	NoSpace
	// DirectoryFull means every directory segment slot is in use.
	DirectoryFull
	// Io means a host filesystem read or write failed.
	Io
	// Corruption means an on-disk invariant was violated.
	Corruption
)

func (k Kind) String() string {
	switch k {
	case ImageFormat:
		return "ImageFormat"
	case GeometryMismatch:
		return "GeometryMismatch"
	case NotFound:
		return "NotFound"
	case Exists:
		return "Exists"
	case NameInvalid:
		return "NameInvalid"
	case NoSpace:
		return "NoSpace"
	case DirectoryFull:
		return "DirectoryFull"
	case Io:
		return "Io"
	case Corruption:
		return "Corruption"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type the core returns. It carries enough
// structure for a caller to branch on Kind without parsing the message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps an existing error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Corrupted builds a Corruption error from one or more invariant violations
// found by a validator. Every violation is preserved, not just the first.
func Corrupted(violations ...error) *Error {
	var merr *multierror.Error
	for _, v := range violations {
		merr = multierror.Append(merr, v)
	}
	return &Error{Kind: Corruption, Message: merr.Error(), Cause: merr}
}

// Is reports whether err is a pdpfs Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if pe, ok := err.(*Error); ok {
			e = pe
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
