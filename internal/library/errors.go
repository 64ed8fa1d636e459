package library

import (
	"errors"

	"github.com/thywilljoshua/chapter-runner/internal/pagerange"
)

// User-input errors. Operations that return one of these leave the library
// unchanged.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("already exists")
	ErrUnsupported = errors.New("unsupported file type")
	ErrInvalid     = errors.New("invalid value")
	ErrAmbiguous   = errors.New("ambiguous reference")
)

// IsUserInput reports whether err was caused by bad user input rather than
// by the system.
func IsUserInput(err error) bool {
	var pe *pagerange.ParseError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrInvalid) ||
		errors.Is(err, ErrAmbiguous) ||
		errors.As(err, &pe)
}
