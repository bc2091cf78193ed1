package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ConstraintKind tags the shape of a parsed version constraint.
type ConstraintKind int

const (
	ConstraintInvalid ConstraintKind = iota
	ConstraintExact
	ConstraintCaret
	ConstraintTilde
	ConstraintComparator
	ConstraintRange
)

// Comparator is a single operator clause, e.g. ">=1.2.0".
type Comparator struct {
	Op      string
	Version *semver.Version
}

// ParsedConstraint is the tagged result of parsing a constraint expression.
// Exact, Caret, and Tilde carry Version; Comparator and Range carry Clauses.
type ParsedConstraint struct {
	Kind    ConstraintKind
	Raw     string
	Version *semver.Version
	Clauses []Comparator
}

// IsValid reports whether the constraint parsed into a usable form.
func (c ParsedConstraint) IsValid() bool {
	return c.Kind != ConstraintInvalid
}

var comparatorOps = []string{">=", "<=", "==", ">", "<", "="}

// ParseConstraint parses a version constraint expression. It never fails:
// unparsable input yields the Invalid kind.
func ParseConstraint(text string) ParsedConstraint {
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedConstraint{Kind: ConstraintInvalid, Raw: raw}
	}

	tokens := strings.Fields(text)
	if len(tokens) > 1 {
		clauses := make([]Comparator, 0, len(tokens))
		for _, tok := range tokens {
			cmp, ok := parseComparator(tok)
			if !ok {
				return ParsedConstraint{Kind: ConstraintInvalid, Raw: raw}
			}
			clauses = append(clauses, cmp)
		}
		return ParsedConstraint{Kind: ConstraintRange, Raw: raw, Clauses: clauses}
	}

	switch {
	case strings.HasPrefix(text, "^"):
		if v, err := semver.NewVersion(text[1:]); err == nil {
			return ParsedConstraint{Kind: ConstraintCaret, Raw: raw, Version: v}
		}
	case strings.HasPrefix(text, "~"):
		if v, err := semver.NewVersion(text[1:]); err == nil {
			return ParsedConstraint{Kind: ConstraintTilde, Raw: raw, Version: v}
		}
	case hasComparatorPrefix(text):
		if cmp, ok := parseComparator(text); ok {
			return ParsedConstraint{Kind: ConstraintComparator, Raw: raw, Clauses: []Comparator{cmp}}
		}
	default:
		if v, err := semver.NewVersion(text); err == nil {
			return ParsedConstraint{Kind: ConstraintExact, Raw: raw, Version: v}
		}
	}
	return ParsedConstraint{Kind: ConstraintInvalid, Raw: raw}
}

func hasComparatorPrefix(text string) bool {
	for _, op := range comparatorOps {
		if strings.HasPrefix(text, op) {
			return true
		}
	}
	return false
}

// parseComparator parses a single clause. A bare version inside a range acts
// as an equality clause.
func parseComparator(tok string) (Comparator, bool) {
	op := "="
	for _, candidate := range comparatorOps {
		if strings.HasPrefix(tok, candidate) {
			op = candidate
			tok = tok[len(candidate):]
			break
		}
	}
	if op == "==" {
		op = "="
	}
	v, err := semver.NewVersion(strings.TrimSpace(tok))
	if err != nil {
		return Comparator{}, false
	}
	return Comparator{Op: op, Version: v}, true
}

// Satisfies reports whether version v falls inside the constraint. Pre-release
// versions are admitted only when the constraint itself names a pre-release
// with the same major.minor.patch core, per conventional semver range rules.
func (c ParsedConstraint) Satisfies(v *semver.Version) bool {
	if v == nil || !c.IsValid() {
		return false
	}
	if v.Prerelease() != "" && !c.admitsPrereleaseOf(v) {
		return false
	}

	switch c.Kind {
	case ConstraintExact:
		return v.Equal(c.Version)
	case ConstraintCaret:
		return c.satisfiesCaret(v)
	case ConstraintTilde:
		lower := c.Version
		upper := semver.New(lower.Major(), lower.Minor()+1, 0, "", "")
		return v.Compare(lower) >= 0 && v.LessThan(upper)
	case ConstraintComparator, ConstraintRange:
		for _, clause := range c.Clauses {
			if !clause.matches(v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c ParsedConstraint) satisfiesCaret(v *semver.Version) bool {
	base := c.Version
	switch {
	case base.Major() > 0:
		upper := semver.New(base.Major()+1, 0, 0, "", "")
		return v.Compare(base) >= 0 && v.LessThan(upper)
	case base.Minor() > 0:
		upper := semver.New(0, base.Minor()+1, 0, "", "")
		return v.Compare(base) >= 0 && v.LessThan(upper)
	default:
		// ^0.0.z pins the exact patch
		return v.Equal(base)
	}
}

func (cmp Comparator) matches(v *semver.Version) bool {
	d := v.Compare(cmp.Version)
	switch cmp.Op {
	case "=":
		return d == 0
	case ">":
		return d > 0
	case ">=":
		return d >= 0
	case "<":
		return d < 0
	case "<=":
		return d <= 0
	default:
		return false
	}
}

// AdmitsCandidate reports whether v is a viable upgrade target. For most
// constraint kinds this is Satisfies; an exact pin instead acts as a lower
// bound, since a pinned chart may move to any newer release.
func (c ParsedConstraint) AdmitsCandidate(v *semver.Version) bool {
	if c.Kind != ConstraintExact {
		return c.Satisfies(v)
	}
	if v == nil {
		return false
	}
	if v.Prerelease() != "" && !c.admitsPrereleaseOf(v) {
		return false
	}
	return v.Compare(c.Version) >= 0
}

// admitsPrereleaseOf reports whether the constraint names a pre-release with
// the same core triple as v.
func (c ParsedConstraint) admitsPrereleaseOf(v *semver.Version) bool {
	sameCore := func(base *semver.Version) bool {
		return base.Prerelease() != "" &&
			base.Major() == v.Major() && base.Minor() == v.Minor() && base.Patch() == v.Patch()
	}
	if c.Version != nil && sameCore(c.Version) {
		return true
	}
	for _, clause := range c.Clauses {
		if sameCore(clause.Version) {
			return true
		}
	}
	return false
}

// Anchor returns the version the update strategy ceiling is measured against:
// the constraint's own base version, or the first lower-bound clause of a
// range. Nil for invalid constraints.
func (c ParsedConstraint) Anchor() *semver.Version {
	switch c.Kind {
	case ConstraintExact, ConstraintCaret, ConstraintTilde:
		return c.Version
	case ConstraintComparator, ConstraintRange:
		for _, clause := range c.Clauses {
			if clause.Op == ">" || clause.Op == ">=" || clause.Op == "=" {
				return clause.Version
			}
		}
		if len(c.Clauses) > 0 {
			return c.Clauses[0].Version
		}
	}
	return nil
}

// MaxSatisfying returns the greatest candidate (by semver ordering) that
// satisfies the constraint, or nil if none do. Candidates that are not valid
// semantic versions are ignored.
func MaxSatisfying(versions []string, c ParsedConstraint) *semver.Version {
	var best *semver.Version
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if !c.Satisfies(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}
