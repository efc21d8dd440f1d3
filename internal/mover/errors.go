package mover

import "errors"

var (
	ErrConflict    = errors.New("tag move lost the race")
	ErrLockTimeout = errors.New("failed to acquire move lock")
)
