package releasenotes

import "testing"

func TestGithubRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/acme/charts", "acme", "charts", true},
		{"https://github.com/acme/charts/", "acme", "charts", true},
		{"http://github.com/acme/charts", "acme", "charts", true},
		{"https://github.com/acme/charts/tree/main/nginx", "acme", "charts", true},
		{"https://charts.bitnami.com/bitnami", "", "", false},
		{"oci://ghcr.io/acme/charts", "", "", false},
		{"https://github.com/acme", "", "", false},
		{"https://github.com/", "", "", false},
	}

	for _, tt := range tests {
		owner, repo, ok := githubRepo(tt.in)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("githubRepo(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}
