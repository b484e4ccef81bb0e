package chatlib

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken       = errors.New("anti-forgery token not found on page")
	ErrInvalidCredentials = errors.New("username/password invalid")
	ErrIncompleteProfile  = errors.New("could not extract profile info after login")
	ErrTooManyRedirects   = errors.New("too many redirects")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrRoomClosed         = errors.New("room is closed")
	ErrNoMessageID        = errors.New("event has no message id to reply to")
)

// LoginError is returned by Session.Login when any step of the login
// chain fails. State is the furthest state the session reached before
// the failure.
type LoginError struct {
	State AuthState
	Err   error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed at %s: %s", e.State, e.Err.Error())
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
