package services

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrSelfUnfollow       = errors.New("cannot unfollow yourself")
)

// Clock returns the current time. Services store timestamps in UTC with
// microsecond precision so every supported database round-trips them.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func stamp(now Clock) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
