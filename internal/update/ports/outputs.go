package ports

import (
	"context"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

// RegistryPort abstracts chart registry access so the resolver can cache and
// single-flight fetches without knowing the wire protocol.
type RegistryPort interface {
	// GetHelmIndex fetches a classic Helm repository index and returns every
	// chart it lists, keyed by chart name.
	GetHelmIndex(ctx context.Context, repoURL string) (map[string][]domain.ChartVersionInfo, error)

	// GetOCITags lists the tags for one chart on an OCI registry.
	GetOCITags(ctx context.Context, repoURL, chartName string) ([]domain.ChartVersionInfo, error)
}

// ManifestStorePort abstracts the GitOps working copy: manifest discovery,
// reads, and writes.
type ManifestStorePort interface {
	// ListManifests returns the paths of every YAML manifest in the store.
	ListManifests(ctx context.Context) ([]string, error)

	// ReadManifest returns the raw content of one manifest.
	ReadManifest(ctx context.Context, path string) (string, error)

	// WriteManifest replaces the content of one manifest.
	WriteManifest(ctx context.Context, path, content string) error
}

// PullRequestPort abstracts proposing a batch of file updates as a pull
// request on the GitOps repository.
type PullRequestPort interface {
	ProposeUpdates(ctx context.Context, updates []domain.FileUpdate) error
}

// ReleaseNotesPort abstracts best-effort release note lookup for a selected
// update. Implementations return "" when nothing is found.
type ReleaseNotesPort interface {
	GetReleaseNotes(ctx context.Context, update domain.VersionUpdate) string
}
