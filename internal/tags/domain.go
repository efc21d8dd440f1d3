package tags

import (
	"github.com/tagwarden/tagwarden/internal/version"
)

// Kind is the closed classification of a tag name. Downstream
// components must ignore KindUnrecognized tags entirely.
type Kind string

const (
	KindVersion      Kind = "version"
	KindEnvironment  Kind = "environment"
	KindState        Kind = "state"
	KindUnrecognized Kind = "unrecognized"
)

// State is the quality annotation a state tag attaches to a version.
// A state is never edited in place; changing a version's state means
// creating another state tag.
type State string

const (
	StateStable     State = "stable"
	StateUnstable   State = "unstable"
	StateDeprecated State = "deprecated"
)

// ParseState validates a raw state string.
func ParseState(raw string) (State, error) {
	switch State(raw) {
	case StateStable, StateUnstable, StateDeprecated:
		return State(raw), nil
	default:
		return "", errUnknownState(raw)
	}
}

// Tag is a classified tag name. Exactly one of the kind-specific
// field groups is populated:
//   - KindVersion: Version
//   - KindEnvironment: Environment
//   - KindState: Version (of the annotated release) and State
//   - KindUnrecognized: nothing but Name
type Tag struct {
	Name        string
	Kind        Kind
	SubPath     string
	Version     *version.Version
	Environment string
	State       State
}

// Movable reports whether the tag may be force-moved. Only
// environment tags are movable; version and state tags are immutable
// once created.
func (t Tag) Movable() bool {
	return t.Kind == KindEnvironment
}

// EnvironmentTagName builds the tag name for an environment pointer
// under an optional sub-path.
func EnvironmentTagName(subPath, environment string) string {
	if subPath == "" {
		return environment
	}
	return subPath + "/" + environment
}

// StateTagName builds the state tag name annotating the given
// version.
func StateTagName(v version.Version, state State) string {
	return v.Full + "-" + string(state)
}
