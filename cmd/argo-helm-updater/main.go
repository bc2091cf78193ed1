// Command argo-helm-updater runs one update pass over a GitOps repository:
// it finds Helm chart references in Argo CD manifests, resolves newer
// versions from their registries, and proposes the bumps as a pull request
// (or applies/prints them with -write / -dry-run).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	githubout "github.com/nathantilsley/argo-helm-updater/internal/update/adapters/github_out"
	helmregistry "github.com/nathantilsley/argo-helm-updater/internal/update/adapters/helm_registry"
	manifestfiles "github.com/nathantilsley/argo-helm-updater/internal/update/adapters/manifest_files"
	ociregistry "github.com/nathantilsley/argo-helm-updater/internal/update/adapters/oci_registry"
	releasenotes "github.com/nathantilsley/argo-helm-updater/internal/update/adapters/release_notes"
	"github.com/nathantilsley/argo-helm-updater/internal/update/app"
	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
	"github.com/nathantilsley/argo-helm-updater/internal/update/ports"

	"github.com/nathantilsley/argo-helm-updater/internal/platform/config"
	ghclient "github.com/nathantilsley/argo-helm-updater/internal/platform/github"
	"github.com/nathantilsley/argo-helm-updater/internal/platform/gitrepo"
	"github.com/nathantilsley/argo-helm-updater/internal/platform/logger"
	"github.com/nathantilsley/argo-helm-updater/internal/platform/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// registryClient composes the Helm and OCI adapters into one RegistryPort.
type registryClient struct {
	helm *helmregistry.Adapter
	oci  *ociregistry.Adapter
}

func (c registryClient) GetHelmIndex(ctx context.Context, repoURL string) (map[string][]domain.ChartVersionInfo, error) {
	return c.helm.GetHelmIndex(ctx, repoURL)
}

func (c registryClient) GetOCITags(ctx context.Context, repoURL, chartName string) ([]domain.ChartVersionInfo, error) {
	return c.oci.GetOCITags(ctx, repoURL, chartName)
}

func run() error {
	var (
		dir    = flag.String("dir", "", "local GitOps directory to scan (overrides TARGET_DIR)")
		repo   = flag.String("repo", "", "GitOps repository URL to clone (overrides TARGET_REPO)")
		dryRun = flag.Bool("dry-run", false, "print proposed diffs without writing or opening pull requests")
		write  = flag.Bool("write", false, "patch manifest files in place instead of opening a pull request")
	)
	flag.Parse()

	if *dir != "" {
		os.Setenv("TARGET_DIR", *dir)
	}
	if *repo != "" {
		os.Setenv("TARGET_REPO", *repo)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	workDir := cfg.TargetDir
	if workDir == "" {
		checkout := gitrepo.New(cfg.TargetRepo, cfg.ClonePath, cfg.TargetBranch, log)
		workDir, err = checkout.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("preparing working copy: %w", err)
		}
	}

	policy, creds, labels, err := config.LoadPolicy(filepath.Join(workDir, config.DefaultPolicyFile))
	if err != nil {
		return err
	}
	log.Info("policy loaded",
		"strategy", string(policy.Strategy),
		"ignoreRules", len(policy.Ignore),
		"groups", len(policy.Groups),
	)

	store := manifestfiles.New(workDir, log)
	registry := registryClient{
		helm: helmregistry.New(cfg.RegistryTimeout, creds, log),
		oci:  ociregistry.New(cfg.RegistryTimeout, creds, log),
	}
	resolver := app.NewResolver(registry, policy, tel.Meter, log)
	fileUpdater := app.NewFileUpdater(store, log)

	mode := app.ModePullRequest
	switch {
	case *dryRun:
		mode = app.ModeDryRun
	case *write:
		mode = app.ModeWrite
	}

	var pullRequests ports.PullRequestPort
	var notes ports.ReleaseNotesPort
	if mode == app.ModePullRequest {
		owner, repo, err := cfg.RequireGitHub()
		if err != nil {
			return fmt.Errorf("pull request mode needs GitHub credentials: %w", err)
		}
		client, err := ghclient.NewClient(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKey)
		if err != nil {
			return fmt.Errorf("creating github client: %w", err)
		}
		pullRequests = githubout.New(client, owner, repo, cfg.TargetBranch, labels, log)
		notes = releasenotes.New(client, log)
	}

	service := app.NewUpdateService(store, resolver, fileUpdater, pullRequests, notes, mode, log)
	return service.Execute(ctx)
}
