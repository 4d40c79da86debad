package skyapi

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication         = errors.New("skyapi: authentication failed")
	ErrMFARequired            = errors.New("skyapi: multi-factor authentication required")
	ErrSessionClosed          = errors.New("skyapi: session closed")
	ErrInvalidArgument        = errors.New("skyapi: invalid argument")
	ErrRequestFailed          = errors.New("skyapi: request failed")
	ErrSideChannelUnavailable = errors.New("skyapi: side channel unavailable")
)

// APIError describes a failed API call.
type APIError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

func IsMFARequired(err error) bool {
	return errors.Is(err, ErrMFARequired)
}
