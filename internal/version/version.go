package version

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// tagPattern is the tag grammar accepted by this subsystem:
// an optional sub-path prefix, a "v"-prefixed semver core and an
// optional prerelease suffix. It is intentionally narrower than what
// general semver parsers accept (no build metadata, no partial
// versions, mandatory "v").
var tagPattern = regexp.MustCompile(
	`^(?:([0-9A-Za-z._-]+(?:/[0-9A-Za-z._-]+)*)/)?` +
		`v(\d+)\.(\d+)\.(\d+)` +
		`(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`,
)

// Version is an immutable parsed semantic version with an optional
// monorepo sub-path prefix. Create it with Parse; never mutate it.
type Version struct {
	Full       string `json:"full"`               // original string as parsed, e.g. "api/v1.2.0-rc.1"
	SubPath    string `json:"sub_path,omitempty"` // "" for the repository root
	Semver     string `json:"semver"`             // "v1.2.0-rc.1"
	Major      uint64 `json:"major"`
	Minor      uint64 `json:"minor"`
	Patch      uint64 `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"` // "" for release versions

	sv *semver.Version
}

// Parse parses a tag-like string into a Version. The sub-path never
// starts or ends with a separator; the grammar guarantees it.
func Parse(raw string) (Version, error) {
	m := tagPattern.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	core := raw
	if m[1] != "" {
		core = raw[len(m[1])+1:]
	}

	sv, err := semver.StrictNewVersion(core[1:]) // strip the "v"
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrMalformed, raw, err)
	}

	return Version{
		Full:       raw,
		SubPath:    m[1],
		Semver:     core,
		Major:      sv.Major(),
		Minor:      sv.Minor(),
		Patch:      sv.Patch(),
		Prerelease: sv.Prerelease(),
		sv:         sv,
	}, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Join builds the full tag name for a semver string under a sub-path
// and parses it.
func Join(subPath, semverStr string) (Version, error) {
	if subPath == "" {
		return Parse(semverStr)
	}
	return Parse(subPath + "/" + semverStr)
}

// Compare returns -1, 0 or 1 following semantic-versioning
// precedence: numeric prerelease identifiers compare numerically,
// alphanumeric ones lexically, and a release version is greater than
// the same version with a prerelease. Sub-paths are not compared;
// ordering versions of different sub-projects is the caller's bug.
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// Equal reports whether two versions name the same release of the
// same sub-project.
func (v Version) Equal(other Version) bool {
	return v.SubPath == other.SubPath && v.Semver == other.Semver
}

// IsPrerelease reports whether the version carries a prerelease
// suffix.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

func (v Version) String() string {
	return v.Full
}
