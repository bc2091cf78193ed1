// Package githubout proposes file updates as GitHub pull requests.
package githubout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

const branchPrefix = "helm-update"

// Adapter implements ports.PullRequestPort via the GitHub API: one branch
// and one pull request per batch of file updates, with a Markdown body
// carrying the version table, release notes, and diffs.
type Adapter struct {
	client     *gogithub.Client
	owner      string
	repo       string
	baseBranch string
	labels     []string
	logger     *slog.Logger
}

// New creates a GitHub pull request adapter.
func New(client *gogithub.Client, owner, repo, baseBranch string, labels []string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:     client,
		owner:      owner,
		repo:       repo,
		baseBranch: baseBranch,
		labels:     labels,
		logger:     logger,
	}
}

// ProposeUpdates creates a branch, commits each patched manifest, and opens
// a pull request. The branch name is derived from the update contents, so
// re-running an unchanged batch is a no-op when the branch already exists.
func (a *Adapter) ProposeUpdates(ctx context.Context, updates []domain.FileUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	branch := branchName(updates)
	branchRef := "refs/heads/" + branch

	if _, _, err := a.client.Git.GetRef(ctx, a.owner, a.repo, branchRef); err == nil {
		a.logger.Info("update branch already exists, skipping", "branch", branch)
		return nil
	}

	baseRef, _, err := a.client.Git.GetRef(ctx, a.owner, a.repo, "refs/heads/"+a.baseBranch)
	if err != nil {
		return fmt.Errorf("getting base branch %s: %w", a.baseBranch, err)
	}

	_, _, err = a.client.Git.CreateRef(ctx, a.owner, a.repo, &gogithub.Reference{
		Ref:    gogithub.Ptr(branchRef),
		Object: baseRef.Object,
	})
	if err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	a.logger.Info("created update branch", "branch", branch)

	for _, fu := range updates {
		if err := a.commitFile(ctx, branch, fu); err != nil {
			return fmt.Errorf("committing %s: %w", fu.Path, err)
		}
	}

	title := prTitle(updates)
	pr, _, err := a.client.PullRequests.Create(ctx, a.owner, a.repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Head:  gogithub.Ptr(branch),
		Base:  gogithub.Ptr(a.baseBranch),
		Body:  gogithub.Ptr(buildPRBody(updates)),
	})
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}
	a.logger.Info("pull request opened", "number", pr.GetNumber(), "title", title)

	if len(a.labels) > 0 {
		if _, _, err := a.client.Issues.AddLabelsToIssue(ctx, a.owner, a.repo, pr.GetNumber(), a.labels); err != nil {
			a.logger.Warn("failed to add labels", "pr", pr.GetNumber(), "error", err)
		}
	}
	return nil
}

// commitFile updates one file on the branch via the contents API.
func (a *Adapter) commitFile(ctx context.Context, branch string, fu domain.FileUpdate) error {
	existing, _, _, err := a.client.Repositories.GetContents(ctx, a.owner, a.repo, fu.Path,
		&gogithub.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return fmt.Errorf("getting current blob: %w", err)
	}

	message := commitMessage(fu)
	_, _, err = a.client.Repositories.UpdateFile(ctx, a.owner, a.repo, fu.Path,
		&gogithub.RepositoryContentFileOptions{
			Message: gogithub.Ptr(message),
			Content: []byte(fu.UpdatedContent),
			SHA:     gogithub.Ptr(existing.GetSHA()),
			Branch:  gogithub.Ptr(branch),
		})
	if err != nil {
		return fmt.Errorf("updating file: %w", err)
	}
	return nil
}

// branchName derives a stable branch name from the batch contents.
func branchName(updates []domain.FileUpdate) string {
	h := sha256.New()
	for _, fu := range updates {
		for _, upd := range fu.Updates {
			fmt.Fprintf(h, "%s:%s:%s\n", fu.Path, upd.Dependency.ChartName, upd.NewVersion)
		}
	}
	return branchPrefix + "/" + hex.EncodeToString(h.Sum(nil))[:10]
}

func prTitle(updates []domain.FileUpdate) string {
	charts := chartList(updates)
	if len(charts) == 1 {
		only := firstUpdate(updates)
		return fmt.Sprintf("chore(helm): update %s to %s", only.Dependency.ChartName, only.NewVersion)
	}
	return fmt.Sprintf("chore(helm): update %d charts", len(charts))
}

func commitMessage(fu domain.FileUpdate) string {
	var parts []string
	for _, upd := range fu.Updates {
		parts = append(parts, fmt.Sprintf("%s %s -> %s", upd.Dependency.ChartName, upd.CurrentVersion, upd.NewVersion))
	}
	return "chore(helm): " + strings.Join(parts, ", ")
}

func chartList(updates []domain.FileUpdate) []string {
	seen := make(map[string]struct{})
	var charts []string
	for _, fu := range updates {
		for _, upd := range fu.Updates {
			if _, ok := seen[upd.Dependency.ChartName]; !ok {
				seen[upd.Dependency.ChartName] = struct{}{}
				charts = append(charts, upd.Dependency.ChartName)
			}
		}
	}
	return charts
}

func firstUpdate(updates []domain.FileUpdate) domain.VersionUpdate {
	return updates[0].Updates[0]
}

// buildPRBody renders the Markdown body: a version table, optional release
// notes, and per-file diffs in collapsible sections.
func buildPRBody(updates []domain.FileUpdate) string {
	var b strings.Builder

	b.WriteString("## Helm chart updates\n\n")
	b.WriteString("| Chart | Repository | From | To |\n")
	b.WriteString("|-------|------------|------|----|\n")
	for _, fu := range updates {
		for _, upd := range fu.Updates {
			fmt.Fprintf(&b, "| %s | %s | `%s` | `%s` |\n",
				upd.Dependency.ChartName, upd.Dependency.RepoURL, upd.CurrentVersion, upd.NewVersion)
		}
	}
	b.WriteString("\n")

	for _, fu := range updates {
		for _, upd := range fu.Updates {
			if upd.ReleaseNotes == "" {
				continue
			}
			fmt.Fprintf(&b, "<details>\n<summary>Release notes for %s %s</summary>\n\n%s\n\n</details>\n\n",
				upd.Dependency.ChartName, upd.NewVersion, upd.ReleaseNotes)
		}
	}

	for _, fu := range updates {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(fu.OriginalContent),
			B:        difflib.SplitLines(fu.UpdatedContent),
			FromFile: "a/" + fu.Path,
			ToFile:   "b/" + fu.Path,
			Context:  3,
		})
		if err != nil || diff == "" {
			continue
		}
		fmt.Fprintf(&b, "<details>\n<summary>%s</summary>\n\n```diff\n%s```\n\n</details>\n\n", fu.Path, diff)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
