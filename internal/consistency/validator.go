package consistency

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/tags"
	"github.com/tagwarden/tagwarden/internal/version"
)

// Validator enforces the cross-tag invariants before and after
// mutations: a state tag must annotate an existing version tag, and
// an environment tag must point at a commit that carries a version
// tag for its sub-path. Every check re-reads the tag store; nothing
// is cached between calls.
type Validator struct {
	registry *git.Service
	logger   *zap.Logger
}

func NewValidator(registry *git.Service, logger *zap.Logger) *Validator {
	return &Validator{
		registry: registry,
		logger:   logger,
	}
}

// CheckStateReferent verifies that the version a state tag would
// annotate exists, and returns its record (the state tag must point
// at the same commit).
func (v *Validator) CheckStateReferent(ctx context.Context, ver version.Version) (*git.Record, error) {
	record, err := v.registry.Resolve(ctx, ver.Full)
	if err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return nil, fmt.Errorf("%w: no version tag %s to annotate", ErrInvalidReferent, ver.Full)
		}
		return nil, err
	}

	if record.Tag.Kind != tags.KindVersion {
		return nil, fmt.Errorf("%w: %s is a %s tag, not a version tag",
			ErrInvalidReferent, ver.Full, record.Tag.Kind)
	}

	return record, nil
}

// CheckEnvironmentTarget verifies that the commit an environment tag
// would point at carries at least one version tag for the sub-path.
// A deployment of an unreleased commit is invalid.
func (v *Validator) CheckEnvironmentTarget(ctx context.Context, subPath, commit string) error {
	records, err := v.registry.List(ctx, "")
	if err != nil {
		return err
	}

	released := lo.SomeBy(records, func(record git.Record) bool {
		return record.Tag.Kind == tags.KindVersion &&
			record.Tag.SubPath == subPath &&
			record.Commit == commit
	})
	if !released {
		return fmt.Errorf("%w: commit %s carries no version tag for sub-path %q",
			ErrInvalidReferent, commit, subPath)
	}

	return nil
}

// Confirm re-reads a tag after a write and verifies it points where
// the write intended. This catches partially-applied external
// operations; a mutation that does not survive the re-read is
// reported as a failure, never as success.
func (v *Validator) Confirm(ctx context.Context, name, commit string) error {
	record, err := v.registry.Resolve(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %s unreadable after write: %w", ErrInconsistent, name, err)
	}

	if record.Commit != commit {
		v.logger.Error("post-write check failed",
			zap.String("tag", name),
			zap.String("expected", commit),
			zap.String("actual", record.Commit))
		return fmt.Errorf("%w: %s points at %s, expected %s",
			ErrInconsistent, name, record.Commit, commit)
	}

	return nil
}
