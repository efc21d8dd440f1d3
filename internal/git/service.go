package git

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-git/go-git/v6"
	gitconfig "github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"go.uber.org/zap"

	"github.com/tagwarden/tagwarden/internal/tags"
)

// Service is the tag registry: read and write access to the tags of
// one repository. It holds no tag state of its own; every call opens
// the repository and, when a remote is configured, re-syncs the tag
// refs first, so answers are always computed from the current store.
type Service struct {
	config     Config
	classifier *tags.Classifier
	logger     *zap.Logger
}

func NewService(config Config, classifier *tags.Classifier, logger *zap.Logger) *Service {
	return &Service{
		config:     config,
		classifier: classifier,
		logger:     logger,
	}
}

// List returns all recognized tags whose name matches the glob
// pattern. An empty pattern matches everything. Unrecognized tags are
// dropped here so no downstream component ever sees them.
func (s *Service) List(ctx context.Context, pattern string) ([]Record, error) {
	repo, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}

	var records []Record
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()

		if pattern != "" {
			matched, matchErr := path.Match(pattern, name)
			if matchErr != nil {
				return fmt.Errorf("invalid pattern %q: %w", pattern, matchErr)
			}
			if !matched {
				return nil
			}
		}

		tag := s.classifier.Classify(name)
		if tag.Kind == tags.KindUnrecognized {
			return nil
		}

		commit, updatedAt, peelErr := s.peel(repo, ref.Hash())
		if peelErr != nil {
			s.logger.Warn("skipping unreadable tag",
				zap.String("tag", name), zap.Error(peelErr))
			return nil
		}

		records = append(records, Record{
			Tag:       tag,
			Commit:    commit,
			UpdatedAt: updatedAt,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}

	s.logger.Debug("tags listed",
		zap.String("pattern", pattern),
		zap.Int("count", len(records)))

	return records, nil
}

// ResolveCommit resolves a commit-ish (full or abbreviated hash) to
// the full commit id, failing with ErrCommitNotFound for anything
// that does not name an existing commit.
func (s *Service) ResolveCommit(ctx context.Context, commitish string) (string, error) {
	repo, err := s.open(ctx)
	if err != nil {
		return "", err
	}

	hash, err := s.resolveCommit(repo, commitish)
	if err != nil {
		return "", err
	}

	return hash.String(), nil
}

// Resolve resolves a tag name to the commit it points to.
func (s *Service) Resolve(ctx context.Context, name string) (*Record, error) {
	repo, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	return s.resolve(repo, name)
}

// Create creates a new tag pointing at the given commit. The create
// is no-clobber: it fails with ErrTagAlreadyExists if the name is
// taken, locally or on the remote, and never touches the existing
// tag.
func (s *Service) Create(ctx context.Context, name, commitish string) (*Record, error) {
	s.logger.Info("creating tag",
		zap.String("tag", name),
		zap.String("commit", commitish))

	repo, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.resolveCommit(repo, commitish)
	if err != nil {
		return nil, err
	}

	refName := plumbing.NewTagReferenceName(name)
	if _, refErr := repo.Reference(refName, false); refErr == nil {
		return nil, fmt.Errorf("%w: %s", ErrTagAlreadyExists, name)
	}

	now := time.Now()
	_, err = repo.CreateTag(name, hash, &git.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  s.config.Tagger.Name,
			Email: s.config.Tagger.Email,
			When:  now,
		},
		Message: fmt.Sprintf("create %s at %s", name, hash.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag %s: %w", name, err)
	}

	if pushErr := s.push(ctx, repo, false, nil, refName); pushErr != nil {
		// The remote won a create race; our local ref is overwritten
		// on the next sync. The existing remote tag is untouched.
		return nil, fmt.Errorf("%w: %s: %w", ErrTagAlreadyExists, name, pushErr)
	}

	s.logger.Info("tag created",
		zap.String("tag", name),
		zap.String("commit", hash.String()))

	return &Record{
		Tag:       s.classifier.Classify(name),
		Commit:    hash.String(),
		UpdatedAt: now,
	}, nil
}

// ForceMove points an existing environment tag at a new commit. It is
// a compare-and-swap: expectedOld must be the commit the caller last
// read ("" for absent), and the move is rejected with ErrRefConflict
// if the ref changed since, locally or on the remote. Only tags
// classified as environment tags may move; the registry enforces the
// immutability of the other kinds itself.
//
// Companion refs are created in the same atomic remote update: the
// remote applies the whole set or none of it.
func (s *Service) ForceMove(
	ctx context.Context,
	name, commitish, expectedOld string,
	companions ...RefUpdate,
) (previous string, err error) {
	if tag := s.classifier.Classify(name); !tag.Movable() {
		return "", fmt.Errorf("%w: %s is a %s tag", ErrImmutableTag, name, tag.Kind)
	}

	repo, err := s.open(ctx)
	if err != nil {
		return "", err
	}

	refName := plumbing.NewTagReferenceName(name)

	var currentRef *plumbing.Reference
	if ref, refErr := repo.Reference(refName, false); refErr == nil {
		currentRef = ref
		previous, _, err = s.peel(repo, ref.Hash())
		if err != nil {
			return "", err
		}
	}

	if previous != expectedOld {
		return previous, fmt.Errorf("%w: %s is at %s, expected %s",
			ErrRefConflict, name, orNone(previous), orNone(expectedOld))
	}

	hash, err := s.resolveCommit(repo, commitish)
	if err != nil {
		return previous, err
	}

	// Idempotent move: already pointing at the requested commit.
	if previous == hash.String() {
		s.logger.Info("tag already at target commit",
			zap.String("tag", name),
			zap.String("commit", previous))
		return previous, nil
	}

	tagHash, err := s.writeTagObject(repo, name, hash)
	if err != nil {
		return previous, err
	}

	newRef := plumbing.NewHashReference(refName, tagHash)
	if casErr := repo.Storer.CheckAndSetReference(newRef, currentRef); casErr != nil {
		return previous, fmt.Errorf("%w: %s: %w", ErrRefConflict, name, casErr)
	}

	pushRefs := []plumbing.ReferenceName{refName}
	for _, companion := range companions {
		companionRef, companionErr := s.setCompanion(repo, companion)
		if companionErr != nil {
			return previous, companionErr
		}
		pushRefs = append(pushRefs, companionRef)
	}

	var require []gitconfig.RefSpec
	if currentRef != nil {
		require = append(require,
			gitconfig.RefSpec(currentRef.Hash().String()+":"+refName.String()))
	}

	if pushErr := s.push(ctx, repo, true, require, pushRefs...); pushErr != nil {
		return previous, fmt.Errorf("%w: %s: %w", ErrRefConflict, name, pushErr)
	}

	s.logger.Info("tag moved",
		zap.String("tag", name),
		zap.String("previous", orNone(previous)),
		zap.String("commit", hash.String()))

	return previous, nil
}

// open opens the repository and refreshes the tag refs from the
// remote when one is configured.
func (s *Service) open(ctx context.Context) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.config.RepoPath)
	if err != nil {
		s.logger.Error("failed to open repository",
			zap.String("path", s.config.RepoPath), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRepositoryNotFound, err)
	}

	if s.config.Remote == "" {
		return repo, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: s.config.Remote,
		RefSpecs:   []gitconfig.RefSpec{"+refs/tags/*:refs/tags/*"},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.logger.Error("failed to fetch tags", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	return repo, nil
}

func (s *Service) resolve(repo *git.Repository, name string) (*Record, error) {
	ref, err := repo.Reference(plumbing.NewTagReferenceName(name), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTagNotFound, name)
	}

	commit, updatedAt, err := s.peel(repo, ref.Hash())
	if err != nil {
		return nil, err
	}

	return &Record{
		Tag:       s.classifier.Classify(name),
		Commit:    commit,
		UpdatedAt: updatedAt,
	}, nil
}

// peel resolves a tag ref hash to the commit it ultimately points to,
// handling both annotated and lightweight tags.
func (s *Service) peel(repo *git.Repository, hash plumbing.Hash) (string, time.Time, error) {
	if tagObj, err := repo.TagObject(hash); err == nil {
		commit, commitErr := tagObj.Commit()
		if commitErr != nil {
			return "", time.Time{}, fmt.Errorf("%w: %w", ErrInvalidRepository, commitErr)
		}
		return commit.Hash.String(), tagObj.Tagger.When, nil
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}
	return commit.Hash.String(), commit.Author.When, nil
}

func (s *Service) resolveCommit(repo *git.Repository, commitish string) (plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(commitish))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrCommitNotFound, commitish)
	}

	if _, err := repo.CommitObject(*hash); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s is not a commit", ErrCommitNotFound, commitish)
	}

	return *hash, nil
}

// writeTagObject stores an annotated tag object for a move without
// touching any ref. Object storage is append-only, so this is safe
// before the compare-and-swap.
func (s *Service) writeTagObject(repo *git.Repository, name string, target plumbing.Hash) (plumbing.Hash, error) {
	tag := &object.Tag{
		Name: name,
		Tagger: object.Signature{
			Name:  s.config.Tagger.Name,
			Email: s.config.Tagger.Email,
			When:  time.Now(),
		},
		Message:    fmt.Sprintf("move %s to %s", name, target.String()),
		TargetType: plumbing.CommitObject,
		Target:     target,
	}

	obj := repo.Storer.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tag object: %w", err)
	}

	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tag object: %w", err)
	}

	return hash, nil
}

func (s *Service) setCompanion(repo *git.Repository, companion RefUpdate) (plumbing.ReferenceName, error) {
	hash, err := s.resolveCommit(repo, companion.Commit)
	if err != nil {
		return "", err
	}

	refName := plumbing.NewTagReferenceName(companion.Name)
	ref := plumbing.NewHashReference(refName, hash)
	if setErr := repo.Storer.SetReference(ref); setErr != nil {
		return "", fmt.Errorf("failed to set companion ref %s: %w", companion.Name, setErr)
	}

	return refName, nil
}

// push sends the given tag refs to the remote in one atomic update.
// With force the refspecs overwrite, guarded by the require set (the
// remote rejects the whole update if any required ref moved).
func (s *Service) push(
	ctx context.Context,
	repo *git.Repository,
	force bool,
	require []gitconfig.RefSpec,
	refs ...plumbing.ReferenceName,
) error {
	if s.config.Remote == "" {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	refSpecs := make([]gitconfig.RefSpec, 0, len(refs))
	for _, ref := range refs {
		spec := ref.String() + ":" + ref.String()
		if force {
			spec = "+" + spec
		}
		refSpecs = append(refSpecs, gitconfig.RefSpec(spec))
	}

	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName:        s.config.Remote,
		RefSpecs:          refSpecs,
		RequireRemoteRefs: require,
		Atomic:            true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	return nil
}

// withTimeout bounds a remote operation by the configured timeout.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

func orNone(commit string) string {
	if commit == "" {
		return "(none)"
	}
	return commit
}
