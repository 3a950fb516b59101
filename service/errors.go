package service

import "errors"

var (
	// ErrNegativeAmount is returned when an XP amount is below zero
	ErrNegativeAmount = errors.New("xp amount must not be negative")

	// ErrXPOverflow is returned when a grant would not fit in the XP counter
	ErrXPOverflow = errors.New("xp amount would overflow")

	// ErrAmountTooLarge is returned when an admin adjustment exceeds MaxXPAdjustment
	ErrAmountTooLarge = errors.New("xp amount is too large")

	// ErrInvalidMultiplier is returned when the level multiplier is not positive
	ErrInvalidMultiplier = errors.New("level multiplier must be positive")

	// ErrSerializerClosed is returned for work submitted after shutdown began
	ErrSerializerClosed = errors.New("mutation serializer is closed")

	// ErrPermissionDenied means the platform refused a role or channel operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrMemberNotFound means the user or role no longer exists in the guild
	ErrMemberNotFound = errors.New("member not found")
)
