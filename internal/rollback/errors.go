package rollback

import "errors"

var (
	ErrNoCurrentVersion = errors.New("no current version for environment")
	ErrNoRollbackTarget = errors.New("no rollback target available")
)
