package entities

import (
	"errors"
	"fmt"
)

// Client input errors. All of them are reported back to the caller verbatim.
var (
	ErrInvalidBody    = errors.New("invalid request body")
	ErrMissingTable   = errors.New("missing table")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrInvalidOr      = errors.New("invalid or expression")
	ErrInvalidRange   = errors.New("invalid range")
)

// UnknownActionError is returned for an action outside select/insert/update/delete
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// IsClientError reports whether err was caused by a malformed request
func IsClientError(err error) bool {
	var unknown *UnknownActionError
	if errors.As(err, &unknown) {
		return true
	}

	for _, target := range []error{
		ErrInvalidBody, ErrMissingTable, ErrInvalidPayload,
		ErrInvalidFilter, ErrInvalidOr, ErrInvalidRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
