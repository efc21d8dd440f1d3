package releases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tagwarden/tagwarden/internal/consistency"
	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/mover"
	"github.com/tagwarden/tagwarden/internal/queue"
	"github.com/tagwarden/tagwarden/internal/rollback"
	"github.com/tagwarden/tagwarden/internal/tags"
	"github.com/tagwarden/tagwarden/internal/version"
)

// Service implements the entry points the orchestrator invokes. Each
// call recomputes its answer from the tag store; a repeated
// invocation with identical arguments after a success reports success
// again without mutating anything.
type Service struct {
	registry   *git.Service
	classifier *tags.Classifier
	checker    *consistency.Validator
	moverSvc   *mover.Service
	queueSvc   *queue.Coordinator
	selector   *rollback.Selector

	validator *validator.Validate
	logger    *zap.Logger
}

func NewService(
	registry *git.Service,
	classifier *tags.Classifier,
	checker *consistency.Validator,
	moverSvc *mover.Service,
	queueSvc *queue.Coordinator,
	selector *rollback.Selector,
	validator *validator.Validate,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:   registry,
		classifier: classifier,
		checker:    checker,
		moverSvc:   moverSvc,
		queueSvc:   queueSvc,
		selector:   selector,
		validator:  validator,
		logger:     logger,
	}
}

// CreateVersion cuts a release: an immutable version tag bound to a
// commit.
func (s *Service) CreateVersion(ctx context.Context, req CreateVersionRequest) (*MutationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ver, err := version.Join(req.SubPath, req.Version)
	if err != nil {
		return nil, err
	}

	commit, err := s.registry.ResolveCommit(ctx, req.Commit)
	if err != nil {
		return nil, err
	}

	if result, done, existErr := s.idempotentCreate(ctx, ver.Full, commit, tags.KindVersion); done {
		return result, existErr
	}

	record, err := s.registry.Create(ctx, ver.Full, commit)
	if err != nil {
		return nil, err
	}

	if err := s.checker.Confirm(ctx, ver.Full, record.Commit); err != nil {
		return nil, err
	}

	return &MutationResult{
		TagName:   ver.Full,
		Kind:      tags.KindVersion,
		NewCommit: record.Commit,
		Created:   true,
	}, nil
}

// AssignState annotates an existing version with a quality state. A
// new state means a new tag; existing state tags are never edited.
func (s *Service) AssignState(ctx context.Context, req AssignStateRequest) (*MutationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	state, err := tags.ParseState(req.State)
	if err != nil {
		return nil, err
	}

	ver, err := version.Join(req.SubPath, req.Version)
	if err != nil {
		return nil, err
	}
	if ver.IsPrerelease() {
		return nil, fmt.Errorf("%w: state tags only annotate releases, %s carries a prerelease",
			consistency.ErrInvalidReferent, ver.Full)
	}

	referent, err := s.checker.CheckStateReferent(ctx, ver)
	if err != nil {
		return nil, err
	}

	if req.Commit != "" {
		commit, resolveErr := s.registry.ResolveCommit(ctx, req.Commit)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if commit != referent.Commit {
			return nil, fmt.Errorf("%w: %s is released at %s, not %s",
				consistency.ErrInvalidReferent, ver.Full, referent.Commit, commit)
		}
	}

	name := tags.StateTagName(ver, state)
	if result, done, existErr := s.idempotentCreate(ctx, name, referent.Commit, tags.KindState); done {
		return result, existErr
	}

	record, err := s.registry.Create(ctx, name, referent.Commit)
	if err != nil {
		return nil, err
	}

	if err := s.checker.Confirm(ctx, name, record.Commit); err != nil {
		return nil, err
	}

	return &MutationResult{
		TagName:   name,
		Kind:      tags.KindState,
		NewCommit: record.Commit,
		Created:   true,
	}, nil
}

// MoveEnvironment deploys: it points the environment tag at the
// requested commit. Requests for the same (sub_path, environment) are
// admitted one at a time in arrival order; the returned deployment
// record describes the invocation's full lifecycle.
func (s *Service) MoveEnvironment(ctx context.Context, req MoveEnvironmentRequest) (*DeploymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !s.classifier.IsEnvironment(req.Environment) {
		return nil, fmt.Errorf("%w: %q", ErrNotEnvironment, req.Environment)
	}

	deployment := Deployment{
		ID:          uuid.Must(uuid.NewV7()),
		SubPath:     req.SubPath,
		Environment: req.Environment,
		Version:     req.Version,
		Commit:      req.Commit,
		Status:      StatusQueued,
		CreatedAt:   time.Now(),
	}

	logger := s.logger.With(
		zap.String("deployment_id", deployment.ID.String()),
		zap.String("environment", tags.EnvironmentTagName(req.SubPath, req.Environment)),
		zap.String("commit", req.Commit))
	logger.Info("deployment queued")

	release, err := s.queueSvc.Admit(ctx, queue.Key{
		SubPath:     req.SubPath,
		Environment: req.Environment,
	})
	if err != nil {
		// Abandoned before the critical section: no side effects.
		deployment.markCancelled(time.Now(), err)
		logger.Info("deployment cancelled before admission", zap.Error(err))
		return &DeploymentResult{Deployment: deployment}, err
	}
	defer release()

	deployment.markStarted(time.Now())
	logger.Info("deployment started")

	result, err := s.moveAdmitted(ctx, req, &deployment)
	if err != nil {
		deployment.markFailed(time.Now(), err)
		logger.Error("deployment failed", zap.Error(err))
		return &DeploymentResult{Deployment: deployment}, err
	}

	deployment.markSucceeded(time.Now())
	logger.Info("deployment succeeded",
		zap.String("previous", result.PreviousCommit))

	return &DeploymentResult{Deployment: deployment, Mutation: *result}, nil
}

// moveAdmitted runs the critical section of a deployment: pre-check,
// atomic move, post-check.
func (s *Service) moveAdmitted(
	ctx context.Context,
	req MoveEnvironmentRequest,
	deployment *Deployment,
) (*MutationResult, error) {
	commit, err := s.registry.ResolveCommit(ctx, req.Commit)
	if err != nil {
		return nil, err
	}
	deployment.Commit = commit

	if err := s.checker.CheckEnvironmentTarget(ctx, req.SubPath, commit); err != nil {
		return nil, err
	}

	if req.Version != "" {
		ver, verErr := version.Join(req.SubPath, req.Version)
		if verErr != nil {
			return nil, verErr
		}
		record, resolveErr := s.registry.Resolve(ctx, ver.Full)
		if resolveErr != nil {
			return nil, fmt.Errorf("%w: version %s is not released: %w",
				consistency.ErrInvalidReferent, ver.Full, resolveErr)
		}
		if record.Commit != commit {
			return nil, fmt.Errorf("%w: %s points at %s, not %s",
				consistency.ErrInvalidReferent, ver.Full, record.Commit, commit)
		}
	}

	moved, err := s.moverSvc.Move(ctx, mover.MoveRequest{
		SubPath:     req.SubPath,
		Environment: req.Environment,
		Commit:      commit,
	})
	if err != nil {
		return nil, err
	}

	if err := s.checker.Confirm(ctx, moved.TagName, commit); err != nil {
		return nil, err
	}

	return &MutationResult{
		TagName:        moved.TagName,
		Kind:           tags.KindEnvironment,
		PreviousCommit: moved.PreviousCommit,
		NewCommit:      moved.NewCommit,
		Created:        moved.Created,
	}, nil
}

// SelectRollbackTarget computes the best prior version to roll the
// environment back to, with the full audit trail of candidates and
// rejections.
func (s *Service) SelectRollbackTarget(ctx context.Context, req RollbackTargetRequest) (*RollbackTarget, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !s.classifier.IsEnvironment(req.Environment) {
		return nil, fmt.Errorf("%w: %q", ErrNotEnvironment, req.Environment)
	}

	return s.selector.Select(ctx, req.SubPath, req.Environment)
}

// EnvironmentStatus answers "what is deployed where" for the sub-path
// (all environments, or one when named).
func (s *Service) EnvironmentStatus(ctx context.Context, req EnvironmentStatusRequest) ([]EnvironmentState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	records, err := s.registry.List(ctx, "")
	if err != nil {
		return nil, err
	}

	scoped := lo.Filter(records, func(record git.Record, _ int) bool {
		return record.Tag.SubPath == req.SubPath
	})

	var states []EnvironmentState
	for _, record := range scoped {
		if record.Tag.Kind != tags.KindEnvironment {
			continue
		}
		if req.Environment != "" && record.Tag.Environment != req.Environment {
			continue
		}

		versions := lo.FilterMap(scoped, func(other git.Record, _ int) (string, bool) {
			if other.Tag.Kind == tags.KindVersion && other.Commit == record.Commit {
				return other.Tag.Version.Full, true
			}
			return "", false
		})
		sort.Strings(versions)

		states = append(states, EnvironmentState{
			Environment: record.Tag.Environment,
			SubPath:     record.Tag.SubPath,
			TagName:     record.Tag.Name,
			Commit:      record.Commit,
			Versions:    versions,
			UpdatedAt:   record.UpdatedAt,
		})
	}

	sort.Slice(states, func(i, j int) bool { return states[i].TagName < states[j].TagName })

	return states, nil
}

// idempotentCreate resolves an intended immutable tag before
// creation. A tag already at the intended commit is a repeated
// invocation and reports success without a write; the same name at a
// different commit is a collision.
func (s *Service) idempotentCreate(
	ctx context.Context,
	name, commit string,
	kind tags.Kind,
) (*MutationResult, bool, error) {
	existing, err := s.registry.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return nil, false, nil
		}
		return nil, true, err
	}

	if existing.Commit == commit {
		s.logger.Info("tag already exists at requested commit",
			zap.String("tag", name))
		return &MutationResult{
			TagName:        name,
			Kind:           kind,
			PreviousCommit: commit,
			NewCommit:      commit,
			Created:        false,
		}, true, nil
	}

	return nil, true, fmt.Errorf("%w: %s points at %s", git.ErrTagAlreadyExists, name, existing.Commit)
}
