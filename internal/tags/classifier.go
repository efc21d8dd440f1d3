package tags

import (
	"regexp"
	"strings"

	"github.com/tagwarden/tagwarden/internal/version"
)

// statePattern matches state tag names. State tags never carry a
// prerelease: a quality annotation only applies to a cut release.
var statePattern = regexp.MustCompile(
	`^(.+/)?v\d+\.\d+\.\d+-(stable|unstable|deprecated)$`,
)

// Classifier turns tag names into classified Tags. Classification
// order matters: a state suffix wins over the version-grammar parse
// of the same name, and a configured environment name wins over
// anything that is not a bare semver.
type Classifier struct {
	environments map[string]struct{}
}

func NewClassifier(config Config) *Classifier {
	environments := make(map[string]struct{})
	for _, name := range defaultEnvironments {
		environments[name] = struct{}{}
	}
	for _, name := range config.Environments {
		if name != "" {
			environments[name] = struct{}{}
		}
	}

	return &Classifier{environments: environments}
}

// Classify classifies a tag name. Names that fit none of the three
// grammars come back as KindUnrecognized and must be ignored by every
// downstream component.
func (c *Classifier) Classify(name string) Tag {
	if m := statePattern.FindStringSubmatch(name); m != nil {
		state := State(m[2])
		versionName := strings.TrimSuffix(name, "-"+m[2])
		if v, err := version.Parse(versionName); err == nil && !v.IsPrerelease() {
			return Tag{
				Name:    name,
				Kind:    KindState,
				SubPath: v.SubPath,
				Version: &v,
				State:   state,
			}
		}
	}

	if subPath, environment, ok := c.splitEnvironment(name); ok {
		return Tag{
			Name:        name,
			Kind:        KindEnvironment,
			SubPath:     subPath,
			Environment: environment,
		}
	}

	if v, err := version.Parse(name); err == nil {
		return Tag{
			Name:    name,
			Kind:    KindVersion,
			SubPath: v.SubPath,
			Version: &v,
		}
	}

	return Tag{Name: name, Kind: KindUnrecognized}
}

// IsEnvironment reports whether the name is a configured environment
// name (without any sub-path prefix).
func (c *Classifier) IsEnvironment(name string) bool {
	_, ok := c.environments[name]
	return ok
}

// splitEnvironment splits a tag name into sub-path and environment
// name if its last segment is a configured environment.
func (c *Classifier) splitEnvironment(name string) (subPath, environment string, ok bool) {
	subPath, environment = "", name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		subPath, environment = name[:i], name[i+1:]
	}
	if subPath != "" && (strings.HasPrefix(subPath, "/") || strings.HasSuffix(subPath, "/")) {
		return "", "", false
	}

	if _, found := c.environments[environment]; !found {
		return "", "", false
	}
	return subPath, environment, true
}
