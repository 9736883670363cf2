package domain

import "errors"

var (
	ErrUnknownReport = errors.New("unknown digest report")
	ErrStaffNotFound = errors.New("staff member not found")
	// ErrRunInProgress means another run of the same report holds the lock.
	ErrRunInProgress = errors.New("digest run already in progress")
	// ErrNotRecipient means the staff member does not receive this digest.
	ErrNotRecipient = errors.New("staff member is not a digest recipient")
)
