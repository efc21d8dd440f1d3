package rollback

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/tags"
	"github.com/tagwarden/tagwarden/internal/version"
)

type Config struct {
	// PreferUntagged demotes candidates carrying an -unstable state
	// tag below untagged ones within the non-stable partition. The
	// default orders the partition purely by semver precedence.
	PreferUntagged bool
}

// Selector computes the best prior version to roll an environment
// back to. Every selection re-enumerates the tag store; results are
// never cached.
type Selector struct {
	registry *git.Service
	config   Config
	logger   *zap.Logger
}

func NewSelector(registry *git.Service, config Config, logger *zap.Logger) *Selector {
	return &Selector{
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Select picks the rollback target for (sub_path, environment):
// exclude the currently deployed version and anything deprecated,
// then prefer the highest stable candidate and fall back to the
// highest remaining one.
func (s *Selector) Select(ctx context.Context, subPath, environment string) (*Target, error) {
	envName := tags.EnvironmentTagName(subPath, environment)

	envRecord, err := s.registry.Resolve(ctx, envName)
	if err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoCurrentVersion, envName)
		}
		return nil, err
	}

	records, err := s.registry.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var versions []git.Record
	states := make(map[string]map[tags.State]bool)
	for _, record := range records {
		if record.Tag.SubPath != subPath {
			continue
		}
		switch record.Tag.Kind {
		case tags.KindVersion:
			versions = append(versions, record)
		case tags.KindState:
			key := record.Tag.Version.Full
			if states[key] == nil {
				states[key] = make(map[tags.State]bool)
			}
			states[key][record.Tag.State] = true
		}
	}

	current, err := s.currentVersion(versions, envRecord.Commit, envName)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	var rejected []Rejection
	for _, record := range versions {
		ver := *record.Tag.Version
		switch {
		case ver.Equal(current):
			rejected = append(rejected, Rejection{Version: ver, Reason: ReasonCurrent})
		case states[ver.Full][tags.StateDeprecated]:
			rejected = append(rejected, Rejection{Version: ver, Reason: ReasonDeprecated})
		default:
			candidates = append(candidates, Candidate{
				Version:  ver,
				Commit:   record.Commit,
				Stable:   states[ver.Full][tags.StateStable],
				Unstable: states[ver.Full][tags.StateUnstable],
			})
		}
	}

	stable, other := lo.FilterReject(candidates, func(c Candidate, _ int) bool {
		return c.Stable
	})

	sort.SliceStable(stable, func(i, j int) bool {
		return stable[i].Version.Compare(stable[j].Version) > 0
	})
	sort.SliceStable(other, func(i, j int) bool {
		if s.config.PreferUntagged && other[i].Unstable != other[j].Unstable {
			return !other[i].Unstable
		}
		return other[i].Version.Compare(other[j].Version) > 0
	})

	var target Candidate
	switch {
	case len(stable) > 0:
		target = stable[0]
	case len(other) > 0:
		target = other[0]
	default:
		return nil, fmt.Errorf("%w: all %d version(s) for %q are current or deprecated",
			ErrNoRollbackTarget, len(versions), subPath)
	}

	s.logger.Info("rollback target selected",
		zap.String("environment", envName),
		zap.String("current", current.Full),
		zap.String("target", target.Version.Full),
		zap.Int("candidates", len(candidates)),
		zap.Int("rejected", len(rejected)))

	return &Target{
		CurrentVersion: current,
		TargetVersion:  target.Version,
		TargetCommit:   target.Commit,
		Candidates:     candidates,
		Rejected:       rejected,
	}, nil
}

// currentVersion finds the version tag at the deployed commit,
// picking the highest when a commit was released under several
// versions.
func (s *Selector) currentVersion(versions []git.Record, commit, envName string) (version.Version, error) {
	atCommit := lo.Filter(versions, func(record git.Record, _ int) bool {
		return record.Commit == commit
	})
	if len(atCommit) == 0 {
		return version.Version{}, fmt.Errorf("%w: commit %s deployed to %s carries no version tag",
			ErrNoCurrentVersion, commit, envName)
	}

	current := *atCommit[0].Tag.Version
	for _, record := range atCommit[1:] {
		if record.Tag.Version.Compare(current) > 0 {
			current = *record.Tag.Version
		}
	}

	return current, nil
}
