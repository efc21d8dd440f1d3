package version

import "errors"

var ErrMalformed = errors.New("malformed version")
