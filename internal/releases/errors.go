package releases

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotEnvironment = errors.New("not a configured environment name")
)
