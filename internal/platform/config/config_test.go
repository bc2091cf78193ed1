package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TARGET_DIR", "TARGET_REPO", "TARGET_BRANCH", "CLONE_PATH",
		"GITHUB_APP_ID", "GITHUB_INSTALLATION_ID", "GITHUB_PRIVATE_KEY", "GITHUB_REPOSITORY",
		"LOG_LEVEL", "REGISTRY_TIMEOUT", "OTEL_ENABLED",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr string
	}{
		{
			name: "defaults with target dir",
			env:  map[string]string{"TARGET_DIR": "/srv/gitops"},
			want: Config{
				TargetDir:       "/srv/gitops",
				TargetBranch:    "main",
				ClonePath:       "/tmp/argo-helm-updater",
				LogLevel:        "info",
				RegistryTimeout: 30 * time.Second,
			},
		},
		{
			name: "everything set",
			env: map[string]string{
				"TARGET_REPO":            "https://github.com/org/gitops",
				"TARGET_BRANCH":          "production",
				"CLONE_PATH":             "/var/cache/updater",
				"GITHUB_APP_ID":          "123456",
				"GITHUB_INSTALLATION_ID": "789012",
				"GITHUB_PRIVATE_KEY":     "pem-data",
				"GITHUB_REPOSITORY":      "org/gitops",
				"LOG_LEVEL":              "debug",
				"REGISTRY_TIMEOUT":       "45s",
				"OTEL_ENABLED":           "true",
			},
			want: Config{
				TargetRepo:           "https://github.com/org/gitops",
				TargetBranch:         "production",
				ClonePath:            "/var/cache/updater",
				GitHubAppID:          123456,
				GitHubInstallationID: 789012,
				GitHubPrivateKey:     "pem-data",
				GitHubRepository:     "org/gitops",
				LogLevel:             "debug",
				RegistryTimeout:      45 * time.Second,
				OTelEnabled:          true,
			},
		},
		{
			name:    "target missing",
			env:     map[string]string{},
			wantErr: "TARGET_DIR or TARGET_REPO",
		},
		{
			name: "invalid timeout",
			env: map[string]string{
				"TARGET_DIR":       "/srv/gitops",
				"REGISTRY_TIMEOUT": "soon",
			},
			wantErr: "REGISTRY_TIMEOUT",
		},
		{
			name: "invalid app id",
			env: map[string]string{
				"TARGET_DIR":    "/srv/gitops",
				"GITHUB_APP_ID": "not-a-number",
			},
			wantErr: "GITHUB_APP_ID",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load(): %v", err)
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequireGitHub(t *testing.T) {
	t.Parallel()

	full := Config{
		GitHubAppID:          1,
		GitHubInstallationID: 2,
		GitHubPrivateKey:     "pem",
		GitHubRepository:     "org/gitops",
	}

	owner, repo, err := full.RequireGitHub()
	if err != nil {
		t.Fatalf("RequireGitHub: %v", err)
	}
	if owner != "org" || repo != "gitops" {
		t.Errorf("RequireGitHub = (%s, %s), want (org, gitops)", owner, repo)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing app id", func(c *Config) { c.GitHubAppID = 0 }},
		{"missing installation id", func(c *Config) { c.GitHubInstallationID = 0 }},
		{"missing private key", func(c *Config) { c.GitHubPrivateKey = "" }},
		{"malformed repository", func(c *Config) { c.GitHubRepository = "gitops" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := full
			tt.mutate(&cfg)
			if _, _, err := cfg.RequireGitHub(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Setenv("REGISTRY_PASS", "hunter2")

	const policyFile = `updateStrategy: minor
ignore:
  - dependencyName: postgresql
  - dependencyName: "*"
    updateTypes: ["major"]
groups:
  - name: web
    patterns: ["nginx", "haproxy-*"]
    updateTypes: ["minor", "patch"]
registries:
  - url: https://charts.internal.example.com
    username: ci
    password: ${REGISTRY_PASS}
labels: ["dependencies", "helm"]
`

	path := filepath.Join(t.TempDir(), DefaultPolicyFile)
	if err := os.WriteFile(path, []byte(policyFile), 0o644); err != nil {
		t.Fatal(err)
	}

	policy, creds, labels, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if policy.Strategy != domain.StrategyMinor {
		t.Errorf("Strategy = %s, want minor", policy.Strategy)
	}
	wantIgnore := []domain.IgnoreRule{
		{DependencyName: "postgresql"},
		{DependencyName: "*", UpdateTypes: []domain.UpdateType{domain.UpdateTypeMajor}},
	}
	if !reflect.DeepEqual(policy.Ignore, wantIgnore) {
		t.Errorf("Ignore = %+v, want %+v", policy.Ignore, wantIgnore)
	}
	wantGroups := []domain.DependencyGroup{{
		Name:        "web",
		Patterns:    []string{"nginx", "haproxy-*"},
		UpdateTypes: []domain.UpdateType{domain.UpdateTypeMinor, domain.UpdateTypePatch},
	}}
	if !reflect.DeepEqual(policy.Groups, wantGroups) {
		t.Errorf("Groups = %+v, want %+v", policy.Groups, wantGroups)
	}

	wantCreds := []domain.RegistryCredential{{
		URL:      "https://charts.internal.example.com",
		Username: "ci",
		Password: "hunter2",
	}}
	if !reflect.DeepEqual(creds, wantCreds) {
		t.Errorf("credentials = %+v, want %+v", creds, wantCreds)
	}

	if !reflect.DeepEqual(labels, []string{"dependencies", "helm"}) {
		t.Errorf("labels = %v", labels)
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	t.Parallel()

	policy, creds, labels, err := LoadPolicy(filepath.Join(t.TempDir(), DefaultPolicyFile))
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if policy.Strategy != domain.StrategyAll {
		t.Errorf("Strategy = %s, want all", policy.Strategy)
	}
	if len(policy.Ignore) != 0 || len(policy.Groups) != 0 || len(creds) != 0 || len(labels) != 0 {
		t.Error("missing policy file must yield the zero policy")
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown strategy", "updateStrategy: aggressive\n"},
		{"ignore rule without name", "ignore:\n  - versions: [\">=2.0.0\"]\n"},
		{"group without patterns", "groups:\n  - name: web\n"},
		{"unknown update type", "groups:\n  - name: web\n    patterns: [\"*\"]\n    updateTypes: [\"huge\"]\n"},
		{"malformed yaml", "{unclosed\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), DefaultPolicyFile)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := LoadPolicy(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
