package rollback

import (
	"github.com/tagwarden/tagwarden/internal/version"
)

// RejectReason explains why a version was excluded from the candidate
// set.
type RejectReason string

const (
	ReasonCurrent    RejectReason = "is_current"
	ReasonDeprecated RejectReason = "deprecated"
)

// Candidate is a version considered for rollback, with the state tags
// found for it.
type Candidate struct {
	Version  version.Version `json:"version"`
	Commit   string          `json:"commit"`
	Stable   bool            `json:"stable"`
	Unstable bool            `json:"unstable"`
}

// Rejection records an excluded version and why, for audit display.
type Rejection struct {
	Version version.Version `json:"version"`
	Reason  RejectReason    `json:"reason"`
}

// Target is the full, auditable outcome of a rollback selection. It
// is recomputed from the tag store on every request and never
// persisted.
type Target struct {
	CurrentVersion version.Version `json:"current_version"`
	TargetVersion  version.Version `json:"target_version"`
	TargetCommit   string          `json:"target_commit"`
	Candidates     []Candidate     `json:"candidates"`
	Rejected       []Rejection     `json:"rejected"`
}
