package mover

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/tags"
)

// MoveRequest asks for an environment tag to be pointed at a commit.
type MoveRequest struct {
	SubPath     string
	Environment string
	Commit      string
	// Companions are extra tag refs applied within the same atomic
	// remote update as the environment tag itself.
	Companions []git.RefUpdate
}

// MoveResult reports a completed move. PreviousCommit equals
// NewCommit when the tag already pointed at the requested commit.
type MoveResult struct {
	TagName        string
	PreviousCommit string
	NewCommit      string
	Created        bool // the move created the tag
}

// Service moves environment tags without letting two concurrent
// movers silently overwrite each other. Each move takes a per-key
// advisory lock, reads the current commit, and hands the registry a
// compare-and-swap against that read; a lost race is retried with
// jittered backoff a bounded number of times before ErrConflict is
// surfaced.
type Service struct {
	registry *git.Service
	locks    *keyedLock
	config   Config
	logger   *zap.Logger
}

func NewService(registry *git.Service, config Config, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		locks:    newKeyedLock(),
		config:   config,
		logger:   logger,
	}
}

// Move points the environment tag for (sub_path, environment) at the
// requested commit.
func (s *Service) Move(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	name := tags.EnvironmentTagName(req.SubPath, req.Environment)

	logger := s.logger.With(
		zap.String("tag", name),
		zap.String("commit", req.Commit))
	logger.Info("moving environment tag")

	if err := s.locks.Acquire(ctx, name, s.config.LockTimeout); err != nil {
		logger.Warn("lock not acquired", zap.Error(err))
		return nil, err
	}
	defer s.locks.Release(name)

	var result *MoveResult
	attempt := 0
	operation := func() error {
		attempt++

		current := ""
		record, err := s.registry.Resolve(ctx, name)
		if err == nil {
			current = record.Commit
		} else if !errors.Is(err, git.ErrTagNotFound) {
			return backoff.Permanent(err)
		}

		previous, err := s.registry.ForceMove(ctx, name, req.Commit, current, req.Companions...)
		if err != nil {
			if errors.Is(err, git.ErrRefConflict) {
				logger.Warn("move lost a race, retrying",
					zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}

		result = &MoveResult{
			TagName:        name,
			PreviousCommit: previous,
			NewCommit:      req.Commit,
			Created:        previous == "",
		}

		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.InitialBackoff
	policy.MaxInterval = s.config.MaxBackoff
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, s.config.MaxRetries), ctx))
	if err != nil {
		if errors.Is(err, git.ErrRefConflict) {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrConflict, attempt, err)
		}
		return nil, err
	}

	logger.Info("environment tag moved",
		zap.String("previous", result.PreviousCommit),
		zap.Bool("created", result.Created))

	return result, nil
}
