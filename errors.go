package goGuard

import (
	"errors"

	"github.com/MrEthical07/goGuard/internal/scripts"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the abuse-prevention engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityLocked is an exported constant or variable used by the abuse-prevention engine.
	ErrIdentityLocked = errors.New("identity locked")
	// ErrIPBlocked is an exported constant or variable used by the abuse-prevention engine.
	ErrIPBlocked = errors.New("source address blocked")
	// ErrSessionNotFound is an exported constant or variable used by the abuse-prevention engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is an exported constant or variable used by the abuse-prevention engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrStoreUnavailable reports that an atomic script could not be executed
	// at all. It is the same error value the internal executor wraps, so
	// errors.Is matches across package boundaries.
	ErrStoreUnavailable = scripts.ErrStoreUnavailable
	// ErrMalformedResult reports that the store replied with something that
	// does not parse into the expected structured shape.
	ErrMalformedResult = scripts.ErrMalformedResult
)
