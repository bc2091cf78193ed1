package domain

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestParseConstraint_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  ConstraintKind
	}{
		{"1.2.3", ConstraintExact},
		{"v1.2.3", ConstraintExact},
		{"^1.2.3", ConstraintCaret},
		{"~1.2.3", ConstraintTilde},
		{">=1.2.3", ConstraintComparator},
		{"<2.0.0", ConstraintComparator},
		{">=1.0.0 <2.0.0", ConstraintRange},
		{"", ConstraintInvalid},
		{"not-a-version", ConstraintInvalid},
		{"^garbage", ConstraintInvalid},
		{">=1.0.0 nonsense", ConstraintInvalid},
		{"HEAD", ConstraintInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := ParseConstraint(tt.input)
			if got.Kind != tt.want {
				t.Errorf("ParseConstraint(%q).Kind = %v, want %v", tt.input, got.Kind, tt.want)
			}
			if got.IsValid() == (tt.want == ConstraintInvalid) {
				t.Errorf("ParseConstraint(%q).IsValid() inconsistent with kind", tt.input)
			}
			if got.Raw != tt.input {
				t.Errorf("ParseConstraint(%q).Raw = %q", tt.input, got.Raw)
			}
		})
	}
}

func TestSatisfies_Caret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.2.4", true},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"^1.2.3", "2.0.0-alpha.1", false}, // pre-release of the next major stays out
		{"^0.3.1", "0.3.5", true},
		{"^0.3.1", "0.4.0", false},
		{"^0.3.1", "1.0.0", false},
		{"^0.0.7", "0.0.7", true},
		{"^0.0.7", "0.0.8", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.constraint+" "+tt.version, func(t *testing.T) {
			t.Parallel()
			c := ParseConstraint(tt.constraint)
			v := semver.MustParse(tt.version)
			if got := c.Satisfies(v); got != tt.want {
				t.Errorf("Satisfies(%s, %s) = %v, want %v", tt.version, tt.constraint, got, tt.want)
			}
		})
	}
}

func TestSatisfies_Tilde(t *testing.T) {
	t.Parallel()

	c := ParseConstraint("~1.2.3")
	for version, want := range map[string]bool{
		"1.2.3":  true,
		"1.2.10": true,
		"1.3.0":  false,
		"1.2.2":  false,
		"2.0.0":  false,
	} {
		v := semver.MustParse(version)
		if got := c.Satisfies(v); got != want {
			t.Errorf("Satisfies(%s, ~1.2.3) = %v, want %v", version, got, want)
		}
	}
}

func TestSatisfies_Range(t *testing.T) {
	t.Parallel()

	c := ParseConstraint(">=1.2.0 <2.0.0")
	for version, want := range map[string]bool{
		"1.2.0": true,
		"1.9.9": true,
		"1.1.9": false,
		"2.0.0": false,
		"2.1.0": false,
	} {
		v := semver.MustParse(version)
		if got := c.Satisfies(v); got != want {
			t.Errorf("Satisfies(%s, >=1.2.0 <2.0.0) = %v, want %v", version, got, want)
		}
	}
}

func TestSatisfies_Prerelease(t *testing.T) {
	t.Parallel()

	// A pre-release only satisfies when the constraint names a pre-release
	// with the same core version.
	if ParseConstraint(">=1.0.0").Satisfies(semver.MustParse("1.5.0-rc.1")) {
		t.Error("plain range must not admit a pre-release")
	}
	if !ParseConstraint(">=1.5.0-alpha.1 <2.0.0").Satisfies(semver.MustParse("1.5.0-rc.1")) {
		t.Error("range naming 1.5.0 pre-release must admit 1.5.0-rc.1")
	}
	if !ParseConstraint("1.5.0-rc.1").Satisfies(semver.MustParse("1.5.0-rc.1")) {
		t.Error("exact pre-release must match itself")
	}
}

func TestAdmitsCandidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		candidate  string
		want       bool
	}{
		// Exact pins admit anything at or above the pinned version.
		{"15.9.0", "16.0.0", true},
		{"15.9.0", "15.9.0", true},
		{"15.9.0", "15.8.0", false},
		{"15.9.0", "16.0.0-rc.1", false},
		// Other kinds keep their window semantics.
		{"^1.2.0", "1.9.0", true},
		{"^1.2.0", "2.0.0", false},
		{"~1.2.0", "1.2.9", true},
		{"~1.2.0", "1.3.0", false},
		{">=1.0.0 <2.0.0", "1.5.0", true},
		{">=1.0.0 <2.0.0", "2.1.0", false},
	}

	for _, tt := range tests {
		tt := tt
		got := ParseConstraint(tt.constraint).AdmitsCandidate(semver.MustParse(tt.candidate))
		if got != tt.want {
			t.Errorf("AdmitsCandidate(%q, %q) = %v, want %v", tt.constraint, tt.candidate, got, tt.want)
		}
	}
}

func TestMaxSatisfying(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		versions   []string
		constraint string
		want       string // "" means nil
	}{
		{
			name:       "picks greatest in caret window",
			versions:   []string{"1.2.3", "1.4.0", "1.9.9", "2.0.0"},
			constraint: "^1.2.3",
			want:       "1.9.9",
		},
		{
			name:       "nothing satisfies",
			versions:   []string{"0.9.0", "2.0.0"},
			constraint: "~1.2.0",
			want:       "",
		},
		{
			name:       "skips non-semver candidates",
			versions:   []string{"latest", "1.3.0", "stable"},
			constraint: ">=1.0.0 <2.0.0",
			want:       "1.3.0",
		},
		{
			name:       "exact matches only itself",
			versions:   []string{"1.2.3", "1.2.4"},
			constraint: "1.2.3",
			want:       "1.2.3",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MaxSatisfying(tt.versions, ParseConstraint(tt.constraint))
			if tt.want == "" {
				if got != nil {
					t.Fatalf("MaxSatisfying = %s, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Fatalf("MaxSatisfying = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestAnchor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		want       string // "" means nil
	}{
		{"1.2.3", "1.2.3"},
		{"^1.2.3", "1.2.3"},
		{"~0.4.0", "0.4.0"},
		{">=1.5.0", "1.5.0"},
		{">=1.5.0 <2.0.0", "1.5.0"},
		{"<2.0.0", "2.0.0"},
		{"bogus", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.constraint, func(t *testing.T) {
			t.Parallel()
			got := ParseConstraint(tt.constraint).Anchor()
			if tt.want == "" {
				if got != nil {
					t.Fatalf("Anchor() = %s, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Fatalf("Anchor() = %v, want %s", got, tt.want)
			}
		})
	}
}
