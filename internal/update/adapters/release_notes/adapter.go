// Package releasenotes looks up release notes for selected chart updates.
package releasenotes

import (
	"context"
	"log/slog"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

// Adapter implements ports.ReleaseNotesPort against the GitHub releases API.
// Only charts hosted on github.com can be resolved; everything else yields
// an empty string, as does any lookup failure.
type Adapter struct {
	client *gogithub.Client
	logger *slog.Logger
}

// New creates a release notes adapter.
func New(client *gogithub.Client, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// GetReleaseNotes returns the release body for the update's new version, or
// "" when the chart's repository is not on GitHub or no release matches.
func (a *Adapter) GetReleaseNotes(ctx context.Context, update domain.VersionUpdate) string {
	owner, repo, ok := githubRepo(update.Dependency.RepoURL)
	if !ok {
		return ""
	}

	// chart-releaser tags releases as <chart>-<version>; plain and
	// v-prefixed tags cover charts released from their own repos.
	candidates := []string{
		update.Dependency.ChartName + "-" + update.NewVersion,
		update.NewVersion,
		"v" + update.NewVersion,
	}
	for _, tag := range candidates {
		release, _, err := a.client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
		if err != nil {
			continue
		}
		a.logger.Debug("found release notes",
			"chart", update.Dependency.ChartName, "tag", tag)
		return release.GetBody()
	}
	return ""
}

// githubRepo extracts owner and repo from a github.com URL.
func githubRepo(repoURL string) (owner, repo string, ok bool) {
	rest, found := strings.CutPrefix(repoURL, "https://github.com/")
	if !found {
		rest, found = strings.CutPrefix(repoURL, "http://github.com/")
	}
	if !found {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
