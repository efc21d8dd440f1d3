package releases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zaptest"

	"github.com/tagwarden/tagwarden/internal/consistency"
	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/mover"
	"github.com/tagwarden/tagwarden/internal/queue"
	"github.com/tagwarden/tagwarden/internal/rollback"
	"github.com/tagwarden/tagwarden/internal/tags"
	"github.com/tagwarden/tagwarden/internal/version"
)

func initTestRepo(t *testing.T, commitCount int) (string, []string) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "releases-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	repo, err := gogit.PlainInit(tempDir, false)
	if err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	var commits []string
	for i := 0; i < commitCount; i++ {
		file := filepath.Join(tempDir, "file.txt")
		if writeErr := os.WriteFile(file, []byte{byte('a' + i)}, 0644); writeErr != nil {
			t.Fatal(writeErr)
		}
		if _, addErr := worktree.Add("file.txt"); addErr != nil {
			t.Fatal(addErr)
		}
		hash, commitErr := worktree.Commit("commit", &gogit.CommitOptions{
			Author: &object.Signature{
				Name:  "Test Author",
				Email: "test@example.com",
				When:  time.Now(),
			},
		})
		if commitErr != nil {
			t.Fatal(commitErr)
		}
		commits = append(commits, hash.String())
	}

	return tempDir, commits
}

func newTestService(t *testing.T, commitCount int) (*Service, []string) {
	t.Helper()

	repoPath, commits := initTestRepo(t, commitCount)
	logger := zaptest.NewLogger(t)

	classifier := tags.NewClassifier(tags.Config{})
	registry := git.NewService(
		git.Config{RepoPath: repoPath, Tagger: git.TaggerConfig{Name: "test", Email: "test@example.com"}},
		classifier,
		logger,
	)

	service := NewService(
		registry,
		classifier,
		consistency.NewValidator(registry, logger),
		mover.NewService(registry, mover.DefaultConfig(), logger),
		queue.NewCoordinator(logger),
		rollback.NewSelector(registry, rollback.Config{}, logger),
		validator.New(),
		logger,
	)

	return service, commits
}

func TestService_CreateVersion(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	result, err := service.CreateVersion(ctx, CreateVersionRequest{
		SubPath: "api",
		Version: "v1.0.0",
		Commit:  commits[0],
	})
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	if result.TagName != "api/v1.0.0" {
		t.Errorf("Expected tag 'api/v1.0.0', got '%s'", result.TagName)
	}
	if result.Kind != tags.KindVersion {
		t.Errorf("Expected version kind, got %s", result.Kind)
	}
	if result.NewCommit != commits[0] {
		t.Errorf("Expected commit %s, got %s", commits[0], result.NewCommit)
	}
	if !result.Created {
		t.Error("Expected Created to be true")
	}
}

func TestService_CreateVersion_IdempotentRerun(t *testing.T) {
	service, commits := newTestService(t, 1)
	ctx := context.Background()

	req := CreateVersionRequest{Version: "v1.0.0", Commit: commits[0]}
	if _, err := service.CreateVersion(ctx, req); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	result, err := service.CreateVersion(ctx, req)
	if err != nil {
		t.Fatalf("Repeated CreateVersion failed: %v", err)
	}
	if result.Created {
		t.Error("Expected repeated invocation to not create again")
	}
	if result.PreviousCommit != result.NewCommit {
		t.Errorf("Expected previous == new, got %s != %s",
			result.PreviousCommit, result.NewCommit)
	}
}

func TestService_CreateVersion_NoClobber(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{Version: "v1.0.0", Commit: commits[0]}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	_, err := service.CreateVersion(ctx, CreateVersionRequest{Version: "v1.0.0", Commit: commits[1]})
	if !errors.Is(err, git.ErrTagAlreadyExists) {
		t.Fatalf("Expected ErrTagAlreadyExists, got %v", err)
	}
}

func TestService_CreateVersion_Malformed(t *testing.T) {
	service, commits := newTestService(t, 1)

	_, err := service.CreateVersion(context.Background(), CreateVersionRequest{
		Version: "1.0",
		Commit:  commits[0],
	})
	if !errors.Is(err, version.ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestService_AssignState(t *testing.T) {
	service, commits := newTestService(t, 1)
	ctx := context.Background()

	// Before the version exists: invalid referent.
	_, err := service.AssignState(ctx, AssignStateRequest{
		SubPath: "api",
		Version: "v1.0.0",
		State:   "stable",
	})
	if !errors.Is(err, consistency.ErrInvalidReferent) {
		t.Fatalf("Expected ErrInvalidReferent, got %v", err)
	}

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		SubPath: "api", Version: "v1.0.0", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	result, err := service.AssignState(ctx, AssignStateRequest{
		SubPath: "api",
		Version: "v1.0.0",
		State:   "stable",
	})
	if err != nil {
		t.Fatalf("AssignState failed: %v", err)
	}
	if result.TagName != "api/v1.0.0-stable" {
		t.Errorf("Expected tag 'api/v1.0.0-stable', got '%s'", result.TagName)
	}
	if result.NewCommit != commits[0] {
		t.Errorf("Expected state tag at %s, got %s", commits[0], result.NewCommit)
	}

	// A state change is a new tag, not an edit.
	result, err = service.AssignState(ctx, AssignStateRequest{
		SubPath: "api",
		Version: "v1.0.0",
		State:   "deprecated",
	})
	if err != nil {
		t.Fatalf("AssignState failed: %v", err)
	}
	if result.TagName != "api/v1.0.0-deprecated" {
		t.Errorf("Expected tag 'api/v1.0.0-deprecated', got '%s'", result.TagName)
	}
}

func TestService_AssignState_RejectsPrerelease(t *testing.T) {
	service, commits := newTestService(t, 1)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		Version: "v1.0.0-rc.1", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	_, err := service.AssignState(ctx, AssignStateRequest{
		Version: "v1.0.0-rc.1",
		State:   "stable",
	})
	if !errors.Is(err, consistency.ErrInvalidReferent) {
		t.Fatalf("Expected ErrInvalidReferent, got %v", err)
	}
}

func TestService_AssignState_UnknownState(t *testing.T) {
	service, _ := newTestService(t, 1)

	_, err := service.AssignState(context.Background(), AssignStateRequest{
		Version: "v1.0.0",
		State:   "retired",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_MoveEnvironment(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		SubPath: "api", Version: "v1.0.0", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	result, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		SubPath:     "api",
		Environment: "production",
		Commit:      commits[0],
		Version:     "v1.0.0",
	})
	if err != nil {
		t.Fatalf("MoveEnvironment failed: %v", err)
	}

	if result.Deployment.Status != StatusSucceeded {
		t.Errorf("Expected succeeded deployment, got %s", result.Deployment.Status)
	}
	if result.Deployment.StartedAt == nil || result.Deployment.CompletedAt == nil {
		t.Error("Expected deployment lifecycle timestamps to be set")
	}
	if result.Mutation.TagName != "api/production" {
		t.Errorf("Expected tag 'api/production', got '%s'", result.Mutation.TagName)
	}
	if !result.Mutation.Created {
		t.Error("Expected first deployment to create the environment tag")
	}
}

func TestService_MoveEnvironment_Idempotent(t *testing.T) {
	service, commits := newTestService(t, 1)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		Version: "v1.0.0", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	req := MoveEnvironmentRequest{Environment: "staging", Commit: commits[0]}
	if _, err := service.MoveEnvironment(ctx, req); err != nil {
		t.Fatalf("MoveEnvironment failed: %v", err)
	}

	result, err := service.MoveEnvironment(ctx, req)
	if err != nil {
		t.Fatalf("Repeated MoveEnvironment failed: %v", err)
	}
	if result.Mutation.PreviousCommit != result.Mutation.NewCommit {
		t.Errorf("Expected previous == new, got %s != %s",
			result.Mutation.PreviousCommit, result.Mutation.NewCommit)
	}
	if result.Deployment.Status != StatusSucceeded {
		t.Errorf("Expected succeeded deployment, got %s", result.Deployment.Status)
	}
}

func TestService_MoveEnvironment_UnreleasedCommit(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		Version: "v1.0.0", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	// commits[1] carries no version tag.
	result, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		Environment: "production",
		Commit:      commits[1],
	})
	if !errors.Is(err, consistency.ErrInvalidReferent) {
		t.Fatalf("Expected ErrInvalidReferent, got %v", err)
	}
	if result.Deployment.Status != StatusFailed {
		t.Errorf("Expected failed deployment, got %s", result.Deployment.Status)
	}
}

func TestService_MoveEnvironment_UnknownEnvironment(t *testing.T) {
	service, commits := newTestService(t, 1)

	_, err := service.MoveEnvironment(context.Background(), MoveEnvironmentRequest{
		Environment: "mars",
		Commit:      commits[0],
	})
	if !errors.Is(err, ErrNotEnvironment) {
		t.Fatalf("Expected ErrNotEnvironment, got %v", err)
	}
}

func TestService_MoveEnvironment_VersionMismatch(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		Version: "v1.0.0", Commit: commits[0],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}
	if _, err := service.CreateVersion(ctx, CreateVersionRequest{
		Version: "v1.1.0", Commit: commits[1],
	}); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	_, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		Environment: "production",
		Commit:      commits[1],
		Version:     "v1.0.0", // released at commits[0], not commits[1]
	})
	if !errors.Is(err, consistency.ErrInvalidReferent) {
		t.Fatalf("Expected ErrInvalidReferent, got %v", err)
	}
}

func TestService_SelectRollbackTarget(t *testing.T) {
	service, commits := newTestService(t, 3)
	ctx := context.Background()

	for i, ver := range []string{"v1.2.0", "v1.2.1", "v1.3.0"} {
		if _, err := service.CreateVersion(ctx, CreateVersionRequest{
			SubPath: "api", Version: ver, Commit: commits[i],
		}); err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
	}
	if _, err := service.AssignState(ctx, AssignStateRequest{
		SubPath: "api", Version: "v1.2.0", State: "stable",
	}); err != nil {
		t.Fatalf("AssignState failed: %v", err)
	}
	if _, err := service.AssignState(ctx, AssignStateRequest{
		SubPath: "api", Version: "v1.2.1", State: "unstable",
	}); err != nil {
		t.Fatalf("AssignState failed: %v", err)
	}
	if _, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		SubPath: "api", Environment: "production", Commit: commits[2],
	}); err != nil {
		t.Fatalf("MoveEnvironment failed: %v", err)
	}

	target, err := service.SelectRollbackTarget(ctx, RollbackTargetRequest{
		SubPath:     "api",
		Environment: "production",
	})
	if err != nil {
		t.Fatalf("SelectRollbackTarget failed: %v", err)
	}

	if target.CurrentVersion.Full != "api/v1.3.0" {
		t.Errorf("Expected current api/v1.3.0, got %s", target.CurrentVersion.Full)
	}
	if target.TargetVersion.Full != "api/v1.2.0" {
		t.Errorf("Expected stable api/v1.2.0 preferred, got %s", target.TargetVersion.Full)
	}
}

func TestService_EnvironmentStatus(t *testing.T) {
	service, commits := newTestService(t, 2)
	ctx := context.Background()

	for i, ver := range []string{"v1.0.0", "v1.1.0"} {
		if _, err := service.CreateVersion(ctx, CreateVersionRequest{
			SubPath: "api", Version: ver, Commit: commits[i],
		}); err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
	}
	if _, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		SubPath: "api", Environment: "production", Commit: commits[0],
	}); err != nil {
		t.Fatalf("MoveEnvironment failed: %v", err)
	}
	if _, err := service.MoveEnvironment(ctx, MoveEnvironmentRequest{
		SubPath: "api", Environment: "staging", Commit: commits[1],
	}); err != nil {
		t.Fatalf("MoveEnvironment failed: %v", err)
	}

	states, err := service.EnvironmentStatus(ctx, EnvironmentStatusRequest{SubPath: "api"})
	if err != nil {
		t.Fatalf("EnvironmentStatus failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("Expected 2 environments, got %d", len(states))
	}

	byName := make(map[string]EnvironmentState)
	for _, state := range states {
		byName[state.Environment] = state
	}

	production := byName["production"]
	if production.Commit != commits[0] {
		t.Errorf("Expected production at %s, got %s", commits[0], production.Commit)
	}
	if len(production.Versions) != 1 || production.Versions[0] != "api/v1.0.0" {
		t.Errorf("Expected production versions [api/v1.0.0], got %v", production.Versions)
	}

	single, err := service.EnvironmentStatus(ctx, EnvironmentStatusRequest{
		SubPath:     "api",
		Environment: "staging",
	})
	if err != nil {
		t.Fatalf("EnvironmentStatus failed: %v", err)
	}
	if len(single) != 1 || single[0].Environment != "staging" {
		t.Fatalf("Expected only staging, got %v", single)
	}
}
