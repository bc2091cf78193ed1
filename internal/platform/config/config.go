// Package config provides application configuration from environment
// variables plus the repo-side policy file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/nathantilsley/argo-helm-updater/api"
	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

// DefaultPolicyFile is the policy file name looked up in the working copy.
const DefaultPolicyFile = ".argo-helm-updater.yaml"

// Config holds the application configuration loaded from environment
// variables. The update policy itself lives in the target repository and is
// loaded separately with LoadPolicy.
type Config struct {
	// Target working copy: either a local directory or a repo to clone.
	TargetDir    string // TARGET_DIR
	TargetRepo   string // TARGET_REPO, e.g. "https://github.com/org/gitops"
	TargetBranch string // TARGET_BRANCH, default "main"
	ClonePath    string // CLONE_PATH, default "/tmp/argo-helm-updater"

	// GitHub App credentials, required for pull request mode.
	GitHubAppID          int64  // GITHUB_APP_ID
	GitHubInstallationID int64  // GITHUB_INSTALLATION_ID
	GitHubPrivateKey     string // GITHUB_PRIVATE_KEY, PEM contents
	GitHubRepository     string // GITHUB_REPOSITORY, "owner/repo"

	LogLevel        string
	RegistryTimeout time.Duration // REGISTRY_TIMEOUT, default 30s

	// OpenTelemetry (optional)
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// Load reads configuration from environment variables, validates what is
// required, and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		TargetBranch:    "main",
		ClonePath:       "/tmp/argo-helm-updater",
		LogLevel:        "info",
		RegistryTimeout: 30 * time.Second,
	}

	cfg.TargetDir = os.Getenv("TARGET_DIR")
	cfg.TargetRepo = os.Getenv("TARGET_REPO")
	if cfg.TargetDir == "" && cfg.TargetRepo == "" {
		return Config{}, errors.New("one of TARGET_DIR or TARGET_REPO is required")
	}

	if v := os.Getenv("TARGET_BRANCH"); v != "" {
		cfg.TargetBranch = v
	}
	if v := os.Getenv("CLONE_PATH"); v != "" {
		cfg.ClonePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("REGISTRY_TIMEOUT"); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REGISTRY_TIMEOUT %q: %w", v, err)
		}
		cfg.RegistryTimeout = dur
	}

	if err := loadGitHubConfig(&cfg); err != nil {
		return Config{}, err
	}

	cfg.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"
	return cfg, nil
}

// loadGitHubConfig reads the optional GitHub App credentials. They become
// required only when pull request mode is selected, which the entrypoint
// checks via RequireGitHub.
func loadGitHubConfig(cfg *Config) error {
	var err error
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		cfg.GitHubAppID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_APP_ID %q: %w", v, err)
		}
	}
	if v := os.Getenv("GITHUB_INSTALLATION_ID"); v != "" {
		cfg.GitHubInstallationID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_INSTALLATION_ID %q: %w", v, err)
		}
	}
	cfg.GitHubPrivateKey = os.Getenv("GITHUB_PRIVATE_KEY")
	cfg.GitHubRepository = os.Getenv("GITHUB_REPOSITORY")
	return nil
}

// RequireGitHub validates that the GitHub App credentials are complete and
// returns the owner and repository the pull requests target.
func (c Config) RequireGitHub() (owner, repo string, err error) {
	if c.GitHubAppID == 0 {
		return "", "", errors.New("GITHUB_APP_ID is required")
	}
	if c.GitHubInstallationID == 0 {
		return "", "", errors.New("GITHUB_INSTALLATION_ID is required")
	}
	if c.GitHubPrivateKey == "" {
		return "", "", errors.New("GITHUB_PRIVATE_KEY is required")
	}
	owner, repo, ok := strings.Cut(c.GitHubRepository, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid GITHUB_REPOSITORY %q, want owner/repo", c.GitHubRepository)
	}
	return owner, repo, nil
}

// LoadPolicy reads the repo-side policy file and converts it into the domain
// policy plus registry credentials and PR labels. A missing file yields the
// zero policy: strategy "all", no exclusions.
func LoadPolicy(path string) (domain.UpdatePolicy, []domain.RegistryCredential, []string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.UpdatePolicy{Strategy: domain.StrategyAll}, nil, nil, nil
	}
	if err != nil {
		return domain.UpdatePolicy{}, nil, nil, fmt.Errorf("reading policy file: %w", err)
	}

	var raw api.Policy
	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return domain.UpdatePolicy{}, nil, nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	policy, err := convertPolicy(raw)
	if err != nil {
		return domain.UpdatePolicy{}, nil, nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}

	creds := make([]domain.RegistryCredential, 0, len(raw.Registries))
	for _, reg := range raw.Registries {
		creds = append(creds, domain.RegistryCredential{
			URL:      reg.URL,
			Username: os.ExpandEnv(reg.Username),
			Password: os.ExpandEnv(reg.Password),
		})
	}

	return policy, creds, raw.Labels, nil
}

func convertPolicy(raw api.Policy) (domain.UpdatePolicy, error) {
	policy := domain.UpdatePolicy{Strategy: domain.StrategyAll}

	switch raw.UpdateStrategy {
	case "":
	case "major", "minor", "patch", "all":
		policy.Strategy = domain.UpdateStrategy(raw.UpdateStrategy)
	default:
		return domain.UpdatePolicy{}, fmt.Errorf("unknown updateStrategy %q", raw.UpdateStrategy)
	}

	for _, rule := range raw.Ignore {
		if rule.DependencyName == "" {
			return domain.UpdatePolicy{}, errors.New("ignore rule without dependencyName")
		}
		types, err := convertUpdateTypes(rule.UpdateTypes)
		if err != nil {
			return domain.UpdatePolicy{}, err
		}
		policy.Ignore = append(policy.Ignore, domain.IgnoreRule{
			DependencyName: rule.DependencyName,
			Versions:       rule.Versions,
			UpdateTypes:    types,
		})
	}

	for _, group := range raw.Groups {
		if len(group.Patterns) == 0 {
			return domain.UpdatePolicy{}, fmt.Errorf("group %q without patterns", group.Name)
		}
		types, err := convertUpdateTypes(group.UpdateTypes)
		if err != nil {
			return domain.UpdatePolicy{}, err
		}
		policy.Groups = append(policy.Groups, domain.DependencyGroup{
			Name:        group.Name,
			Patterns:    group.Patterns,
			UpdateTypes: types,
		})
	}

	return policy, nil
}

func convertUpdateTypes(raw []string) ([]domain.UpdateType, error) {
	var types []domain.UpdateType
	for _, t := range raw {
		switch t {
		case "major", "minor", "patch":
			types = append(types, domain.UpdateType(t))
		default:
			return nil, fmt.Errorf("unknown update type %q", t)
		}
	}
	return types, nil
}
