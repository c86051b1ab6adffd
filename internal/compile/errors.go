package compile

import (
	"errors"
	"fmt"
)

// Compile-time errors.
var (
	ErrDuplicateUpdate      = errors.New("duplicate update")
	ErrSharedCellAsInput    = errors.New("cannot use a shared cell as an explicit input")
	ErrBadOverridePolicy    = errors.New("bad no_default_updates policy")
	ErrMissingRequiredInput = errors.New("missing required input")
	ErrBadInput             = errors.New("bad input")
	ErrDuplicateInput       = errors.New("duplicate input")
	ErrGivensMismatch       = errors.New("givens type mismatch")
	ErrUpdateTypeMismatch   = errors.New("update type mismatch")
	ErrBadOutputs           = errors.New("bad outputs")
)

// Call-time errors.
var (
	ErrMissingArgument    = errors.New("missing argument")
	ErrStrictTypeMismatch = errors.New("type mismatch")
	ErrBadArgument        = errors.New("bad argument")
)

// Error is returned by Compile and Function calls. Kind is one of the
// sentinel errors above and is what errors.Is matches.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
