package git

import (
	"time"

	"github.com/tagwarden/tagwarden/internal/tags"
)

// Record is a classified tag together with the commit it points to.
type Record struct {
	Tag       tags.Tag
	Commit    string    // commit id the tag (after peeling) points to
	UpdatedAt time.Time // tagger time for annotated tags, commit author time otherwise
}

// RefUpdate is a companion ref carried along with a force-move inside
// the same atomic remote update.
type RefUpdate struct {
	Name   string // full tag name
	Commit string // commit id to point the tag at
}
