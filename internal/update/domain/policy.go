package domain

import (
	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
)

// UpdateStrategy bounds how far above the constraint's anchor version an
// upgrade may go.
type UpdateStrategy string

const (
	StrategyMajor UpdateStrategy = "major"
	StrategyMinor UpdateStrategy = "minor"
	StrategyPatch UpdateStrategy = "patch"
	StrategyAll   UpdateStrategy = "all"
)

// UpdateType classifies a candidate version relative to an anchor.
type UpdateType string

const (
	UpdateTypeMajor UpdateType = "major"
	UpdateTypeMinor UpdateType = "minor"
	UpdateTypePatch UpdateType = "patch"
)

// ClassifyUpdate returns the update type of candidate relative to anchor.
func ClassifyUpdate(anchor, candidate *semver.Version) UpdateType {
	switch {
	case candidate.Major() != anchor.Major():
		return UpdateTypeMajor
	case candidate.Minor() != anchor.Minor():
		return UpdateTypeMinor
	default:
		return UpdateTypePatch
	}
}

// Allows reports whether the strategy ceiling admits a candidate relative to
// the anchor version.
func (s UpdateStrategy) Allows(anchor, candidate *semver.Version) bool {
	switch s {
	case StrategyPatch:
		return candidate.Major() == anchor.Major() && candidate.Minor() == anchor.Minor()
	case StrategyMinor:
		return candidate.Major() == anchor.Major()
	case StrategyMajor, StrategyAll, "":
		return true
	default:
		return true
	}
}

// IgnoreRule excludes candidate versions for dependencies whose name matches
// DependencyName (a glob pattern). With neither Versions nor UpdateTypes set,
// the whole dependency is excluded.
type IgnoreRule struct {
	DependencyName string       `json:"dependencyName"`
	Versions       []string     `json:"versions,omitempty"`    // constraint expressions
	UpdateTypes    []UpdateType `json:"updateTypes,omitempty"`
}

// DependencyGroup restricts matching dependencies to a set of update types.
type DependencyGroup struct {
	Name        string       `json:"name"`
	Patterns    []string     `json:"patterns"`
	UpdateTypes []UpdateType `json:"updateTypes,omitempty"`
}

// UpdatePolicy is the run policy handed in by the caller, externally
// validated per the configuration schema.
type UpdatePolicy struct {
	Strategy UpdateStrategy
	Ignore   []IgnoreRule
	Groups   []DependencyGroup
}

func matchesPattern(pattern, name string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return pattern == name
	}
	return g.Match(name)
}

// Excludes reports whether the policy's ignore rules rule out the candidate
// for the named dependency.
func (p UpdatePolicy) Excludes(depName string, anchor, candidate *semver.Version) bool {
	for _, rule := range p.Ignore {
		if !matchesPattern(rule.DependencyName, depName) {
			continue
		}
		if len(rule.Versions) == 0 && len(rule.UpdateTypes) == 0 {
			return true
		}
		for _, expr := range rule.Versions {
			if c := ParseConstraint(expr); c.Satisfies(candidate) {
				return true
			}
		}
		if anchor != nil {
			t := ClassifyUpdate(anchor, candidate)
			for _, ignored := range rule.UpdateTypes {
				if t == ignored {
					return true
				}
			}
		}
	}
	return false
}

// GroupAllows reports whether every dependency group matching the name admits
// the candidate's update type. Dependencies outside all groups are unrestricted.
func (p UpdatePolicy) GroupAllows(depName string, anchor, candidate *semver.Version) bool {
	for _, group := range p.Groups {
		matched := false
		for _, pattern := range group.Patterns {
			if matchesPattern(pattern, depName) {
				matched = true
				break
			}
		}
		if !matched || len(group.UpdateTypes) == 0 {
			continue
		}
		if anchor == nil {
			continue
		}
		t := ClassifyUpdate(anchor, candidate)
		allowed := false
		for _, at := range group.UpdateTypes {
			if t == at {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}
