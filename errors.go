package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrNotInitialized is returned by Manager operations called before Init.
	ErrNotInitialized = errors.New("session manager not initialized")
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrMissingBackend is returned by Build when no handler, pool or redis
	// client was supplied.
	ErrMissingBackend = errors.New("session backend required")

	// ErrBackendUnavailable is re-exported from the session package.
	ErrBackendUnavailable = session.ErrBackendUnavailable
	// ErrSerialization is re-exported from the session package.
	ErrSerialization = session.ErrSerialization
)
