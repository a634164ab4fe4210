package session

import "errors"

var (
	// ErrBackendUnavailable wraps every failure to acquire a connection or to
	// complete a backend call.
	ErrBackendUnavailable = errors.New("session backend unavailable")
	// ErrSerialization wraps value encode and decode failures.
	ErrSerialization = errors.New("session value serialization failed")
)
