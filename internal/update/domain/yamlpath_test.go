package domain

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func parseDoc(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return &node
}

func TestLookupScalar(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
spec:
  source:
    repoURL: https://charts.example.com
    targetRevision: 1.2.3
  sources:
    - chart: redis
      targetRevision: 7.0.0
    - chart: postgres
      targetRevision: 12.1.0
`)

	tests := []struct {
		name string
		path []string
		want string // "" means nil
	}{
		{"nested mapping", []string{"spec", "source", "targetRevision"}, "1.2.3"},
		{"sequence index", []string{"spec", "sources", "1", "targetRevision"}, "12.1.0"},
		{"missing key", []string{"spec", "absent"}, ""},
		{"index out of range", []string{"spec", "sources", "5", "targetRevision"}, ""},
		{"non-numeric index", []string{"spec", "sources", "first"}, ""},
		{"path into scalar", []string{"spec", "source", "repoURL", "deeper"}, ""},
		{"non-scalar target", []string{"spec", "source"}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := LookupScalar(doc, tt.path)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("LookupScalar = %q, want nil", got.Value)
				}
				return
			}
			if got == nil || got.Value != tt.want {
				t.Fatalf("LookupScalar = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupNode_EmptyDocument(t *testing.T) {
	t.Parallel()

	if got := LookupNode(nil, []string{"spec"}); got != nil {
		t.Errorf("LookupNode(nil) = %v, want nil", got)
	}
	if got := LookupNode(&yaml.Node{Kind: yaml.DocumentNode}, []string{"spec"}); got != nil {
		t.Errorf("LookupNode(empty doc) = %v, want nil", got)
	}
}
