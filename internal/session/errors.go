package session

import "errors"

var (
	// ErrNoCookie means the request carried no session cookie at all.
	ErrNoCookie = errors.New("session: no cookie")

	ErrSignatureInvalid = errors.New("session: signature invalid")
	ErrExpired          = errors.New("session: cookie expired")
	ErrRecordExpired    = errors.New("session: record expired")
	ErrNotFound         = errors.New("session: not found")
	ErrConflict         = errors.New("session: id already exists")
)

// AuthError is returned by the verifier for every rejected session. Its
// message is the same whatever the reason; the reason is kept for errors.Is
// and logging inside the process only.
type AuthError struct {
	reason error
}

func (e *AuthError) Error() string {
	return "invalid session"
}

func (e *AuthError) Unwrap() error {
	return e.reason
}

func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
