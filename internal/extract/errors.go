package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound matches every not-found outcome, explicit or inferred.
	ErrProfileNotFound = errors.New("username does not exist")

	// ErrExtractionUnavailable means no acquisition path could run at all.
	ErrExtractionUnavailable = errors.New("extraction service unavailable")

	// ErrPrimaryUnavailable means the primary source could not authenticate or answer.
	ErrPrimaryUnavailable = errors.New("primary source unavailable")

	// ErrProfileNotExist is the primary source's own "account does not exist" signal.
	ErrProfileNotExist = errors.New("primary source reports profile does not exist")
)

// NotFoundError reports a username that does not exist. Inferred is true when
// no source confirmed it and every fallback simply came back empty.
type NotFoundError struct {
	Username string
	Inferred bool
}

func (e *NotFoundError) Error() string {
	if e.Inferred {
		return fmt.Sprintf("username %q does not exist (no signal from any source)", e.Username)
	}
	return fmt.Sprintf("username %q does not exist", e.Username)
}

// Is makes errors.Is(err, ErrProfileNotFound) true for both variants.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrProfileNotFound
}

// IsInferredNotFound reports whether err is a not-found inferred from silence.
func IsInferredNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Inferred
}
