package fault

import (
	"errors"
	"fmt"
)

// Kinds shared across aggregates. Domain packages wrap one of these so the
// transport layer can classify failures with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrExternalSync      = errors.New("external sync failed")
	ErrInvalidInput      = errors.New("invalid input")
)

// New builds a package sentinel of the form "<pkg>: <msg>" that matches kind.
func New(pkg, msg string, kind error) error {
	return &sentinel{msg: pkg + ": " + msg, kind: kind}
}

// Wrap attaches context to err while keeping it classifiable.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

var kinds = []error{
	ErrUnauthenticated,
	ErrNotFound,
	ErrUnauthorized,
	ErrUnavailable,
	ErrInvalidTransition,
	ErrExternalSync,
	ErrInvalidInput,
}

// KindOf returns the first known kind err matches, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Restore rebuilds an error from its message and kind name, e.g. when a
// stored result is replayed. Unknown kinds yield a plain error.
func Restore(msg, kind string) error {
	for _, k := range kinds {
		if k.Error() == kind {
			return &sentinel{msg: msg, kind: k}
		}
	}
	return errors.New(msg)
}

type sentinel struct {
	msg  string
	kind error
}

func (s *sentinel) Error() string { return s.msg }

func (s *sentinel) Unwrap() error { return s.kind }
