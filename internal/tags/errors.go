package tags

import (
	"errors"
	"fmt"
)

var ErrUnknownState = errors.New("unknown state")

func errUnknownState(raw string) error {
	return fmt.Errorf("%w: %q (expected stable, unstable or deprecated)", ErrUnknownState, raw)
}
