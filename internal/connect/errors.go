package connect

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrCodeNotFound    = errors.New("connection code not found")
	ErrCodeExpired     = errors.New("connection code expired")
	ErrCodeNotPublic   = errors.New("profile is not shared publicly")
)

const (
	ReasonNotFound  = "not_found"
	ReasonExpired   = "expired"
	ReasonNotPublic = "not_public"
)

// Reason maps a resolution error to its public reason code. It returns an
// empty string for nil and for errors that are not resolution failures.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCodeNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrCodeExpired):
		return ReasonExpired
	case errors.Is(err, ErrCodeNotPublic):
		return ReasonNotPublic
	}
	return ""
}

// IsResolutionError reports whether err is one of the expected validation
// outcomes rather than a dependency failure.
func IsResolutionError(err error) bool {
	return Reason(err) != ""
}

// ProfileIncompleteError is returned when the owner's profile lacks fields a
// code snapshot requires.
type ProfileIncompleteError struct {
	Missing []string
}

func (e *ProfileIncompleteError) Error() string {
	return fmt.Sprintf("profile is missing required fields: %s", strings.Join(e.Missing, ", "))
}

// PersistenceError wraps storage failures. The operation is safe to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Cause() error {
	return e.Err
}
