package persona

import (
	"errors"
	"fmt"
)

// ErrorKind classifies store failures so callers never inspect driver
// specific error codes.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindConflict
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is returned by ProfileStore, AccountStore and BlobStore implementations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrConflict = &Error{Kind: KindConflict}
)

func NewError(op string, kind ErrorKind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.Op == "":
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches bare kind sentinels such as ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
