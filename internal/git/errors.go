package git

import "errors"

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrInvalidRepository  = errors.New("invalid repository")
	ErrTagNotFound        = errors.New("tag not found")
	ErrCommitNotFound     = errors.New("commit not found")
	ErrTagAlreadyExists   = errors.New("tag already exists")
	ErrImmutableTag       = errors.New("tag is not movable")
	ErrRefConflict        = errors.New("ref changed concurrently")
	ErrSyncFailed         = errors.New("failed to sync tags with remote")
)
