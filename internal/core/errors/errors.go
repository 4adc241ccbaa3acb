// Package errors defines the error kinds surfaced by the object model.
//
// Every failure is reported as an *Error carrying a Kind so callers can decide
// how far a failure propagates: registration failures abort class setup, a
// deserialize failure aborts one call, an instantiate failure is rejected before
// any recursion and asset resolution failures are reported per entry.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an Error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRegistration
	KindDeserialize
	KindInstantiate
	KindAssetResolution
)

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindDeserialize:
		return "deserialize"
	case KindInstantiate:
		return "instantiate"
	case KindAssetResolution:
		return "asset resolution"
	default:
		return "unknown"
	}
}

// Registration errors
var (
	ErrClassExists        = stderrors.New("class name or id already registered")
	ErrDuplicateProperty  = stderrors.New("property already declared on an ancestor")
	ErrDuplicateRawType   = stderrors.New("raw-type property already declared on class chain")
	ErrRawTypeNotAsset    = stderrors.New("raw-type property requires a class derived from the asset root")
	ErrUnknownSuperclass  = stderrors.New("unknown superclass")
	ErrInvalidClassName   = stderrors.New("invalid class name")
	ErrInvalidPropertyKey = stderrors.New("invalid property name")
	ErrInvalidManifest    = stderrors.New("invalid class manifest")
)

// Deserialize errors
var (
	ErrUnknownType      = stderrors.New("unknown type tag")
	ErrInvalidReference = stderrors.New("invalid id reference")
	ErrDuplicateRaw     = stderrors.New("more than one raw payload in a single file")
	ErrMalformedInput   = stderrors.New("malformed input")
)

// Instantiate errors
var (
	ErrNilRoot       = stderrors.New("cannot instantiate a nil object")
	ErrArrayRoot     = stderrors.New("cannot instantiate an array")
	ErrNotObjectRoot = stderrors.New("cannot instantiate a non-object value")
	ErrDestroyedRoot = stderrors.New("cannot instantiate a destroyed object")
	ErrHostRoot      = stderrors.New("cannot instantiate a host handle")
)

// Object errors
var (
	ErrReadOnlyProperty = stderrors.New("property is read-only")
	ErrOutOfRange       = stderrors.New("value out of range")
	ErrUnknownProperty  = stderrors.New("unknown property")
	ErrAlreadyDestroyed = stderrors.New("object already destroyed")
)

// Asset resolution errors
var (
	ErrAssetNotFound = stderrors.New("asset not found")
	ErrInvalidUUID   = stderrors.New("invalid uuid")
	ErrNotAsset      = stderrors.New("object is not an asset")
)

// Error is the object model error type.
type Error struct {
	Kind    Kind   // What stage failed
	Message string // Human readable context
	Cause   error  // Wrapped sentinel or underlying error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Registration wraps cause as a registration error.
func Registration(cause error, format string, args ...any) *Error {
	return Wrap(KindRegistration, cause, format, args...)
}

// Deserialize wraps cause as a deserialize error.
func Deserialize(cause error, format string, args ...any) *Error {
	return Wrap(KindDeserialize, cause, format, args...)
}

// Instantiate wraps cause as an instantiate error.
func Instantiate(cause error, format string, args ...any) *Error {
	return Wrap(KindInstantiate, cause, format, args...)
}

// AssetResolution wraps cause as an asset resolution error.
func AssetResolution(cause error, format string, args ...any) *Error {
	return Wrap(KindAssetResolution, cause, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
