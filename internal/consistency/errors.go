package consistency

import "errors"

var (
	ErrInvalidReferent = errors.New("invalid referent")
	ErrInconsistent    = errors.New("tag store inconsistent after write")
)
