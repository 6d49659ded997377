package services

import "errors"

// PolicyDenied
var ErrUpgradeRequired = errors.New("this feature requires a pro subscription")

// PreconditionMissing
var (
	ErrLocationRequired   = errors.New("location is required: report your position first")
	ErrInvalidCoordinates = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrSelfTarget         = errors.New("cannot target yourself")
)

// NotFound
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrBlockNotFound = errors.New("block not found")
)

// Conflict
var (
	ErrSelfBlock      = errors.New("cannot block yourself")
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrBlocked        = errors.New("action not allowed between blocked users")
)
