package comments

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("comment content is empty")
	ErrUnauthorized    = errors.New("sign in required")
	ErrForbidden       = errors.New("admin identity required")
	ErrCommentNotFound = errors.New("comment not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrLikeInFlight    = errors.New("like already in progress for this comment")
	ErrNotConfirmed    = errors.New("deletion was not confirmed")

	// ErrDuplicateLike is returned by a Store when the (comment, user) like
	// row already exists.
	ErrDuplicateLike = errors.New("duplicate comment like")
)

// StoreError wraps a failed data store round-trip. Message and Detail carry
// whatever the backend reported, when it reported anything.
type StoreError struct {
	Op      string
	Message string
	Detail  string
	Err     error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// asStoreError keeps an existing *StoreError and wraps anything else.
func asStoreError(op string, err error) *StoreError {
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return &StoreError{Op: op, Message: err.Error(), Err: err}
}
