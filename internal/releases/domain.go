package releases

import (
	"time"

	"github.com/google/uuid"

	"github.com/tagwarden/tagwarden/internal/rollback"
	"github.com/tagwarden/tagwarden/internal/tags"
)

type Status string

const (
	StatusQueued     Status = "queued"      // Waiting for admission to the environment's queue
	StatusInProgress Status = "in_progress" // Holding the critical section
	StatusSucceeded  Status = "succeeded"   // Environment tag points at the requested commit
	StatusFailed     Status = "failed"      // Move rejected or invariant violated
	StatusCancelled  Status = "cancelled"   // Abandoned before the critical section
)

// Deployment is the transient record of one move-environment
// invocation. It is never persisted; it exists so the orchestrator
// can render a report of what happened.
type Deployment struct {
	ID          uuid.UUID  `json:"id"`
	SubPath     string     `json:"sub_path,omitempty"`
	Environment string     `json:"environment"`
	Version     string     `json:"version,omitempty"`
	Commit      string     `json:"commit"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (d *Deployment) markStarted(at time.Time) {
	d.Status = StatusInProgress
	d.StartedAt = &at
}

func (d *Deployment) markSucceeded(at time.Time) {
	d.Status = StatusSucceeded
	d.CompletedAt = &at
}

func (d *Deployment) markFailed(at time.Time, err error) {
	d.Status = StatusFailed
	d.CompletedAt = &at
	d.Error = err.Error()
}

func (d *Deployment) markCancelled(at time.Time, err error) {
	d.Status = StatusCancelled
	d.CompletedAt = &at
	d.Error = err.Error()
}

// MutationResult is returned by every mutating entry point: enough
// for the orchestrator to render a report and decide whether to
// trigger a downstream deployment.
type MutationResult struct {
	TagName        string    `json:"tag_name"`
	Kind           tags.Kind `json:"kind"`
	PreviousCommit string    `json:"previous_commit,omitempty"`
	NewCommit      string    `json:"new_commit"`
	Created        bool      `json:"created"`
}

// DeploymentResult pairs the deployment record with the tag mutation
// it performed.
type DeploymentResult struct {
	Deployment Deployment     `json:"deployment"`
	Mutation   MutationResult `json:"mutation"`
}

// EnvironmentState answers "what is deployed here": the environment
// tag, its commit and the version tag(s) carried by that commit.
type EnvironmentState struct {
	Environment string    `json:"environment"`
	SubPath     string    `json:"sub_path,omitempty"`
	TagName     string    `json:"tag_name"`
	Commit      string    `json:"commit"`
	Versions    []string  `json:"versions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RollbackTarget re-exports the selector result for the invocation
// surface.
type RollbackTarget = rollback.Target

type CreateVersionRequest struct {
	SubPath string `validate:"omitempty,max=200"`
	Version string `validate:"required,max=100"`
	Commit  string `validate:"required,hexadecimal,min=7,max=64"`
}

type AssignStateRequest struct {
	SubPath string `validate:"omitempty,max=200"`
	Version string `validate:"required,max=100"`
	State   string `validate:"required,oneof=stable unstable deprecated"`
	// Commit is optional; when given it must match the annotated
	// version's commit.
	Commit string `validate:"omitempty,hexadecimal,min=7,max=64"`
}

type MoveEnvironmentRequest struct {
	SubPath     string `validate:"omitempty,max=200"`
	Environment string `validate:"required,max=100"`
	Commit      string `validate:"required,hexadecimal,min=7,max=64"`
	// Version is optional; when given the named version tag must
	// point at Commit.
	Version string `validate:"omitempty,max=100"`
}

type RollbackTargetRequest struct {
	SubPath     string `validate:"omitempty,max=200"`
	Environment string `validate:"required,max=100"`
}

type EnvironmentStatusRequest struct {
	SubPath     string `validate:"omitempty,max=200"`
	Environment string `validate:"omitempty,max=100"`
}
