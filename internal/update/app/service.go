package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
	"github.com/nathantilsley/argo-helm-updater/internal/update/ports"
)

// Mode selects what UpdateService does with computed file updates.
type Mode int

const (
	// ModeDryRun logs unified diffs and writes nothing.
	ModeDryRun Mode = iota
	// ModeWrite patches manifest files in place.
	ModeWrite
	// ModePullRequest proposes the updates through the pull request port.
	ModePullRequest
)

// UpdateService implements ports.UpdateUseCase by orchestrating the full
// workflow: scan manifests, extract chart references, resolve newer
// versions, patch files, and hand the results to the configured output.
type UpdateService struct {
	store        ports.ManifestStorePort
	resolver     *Resolver
	fileUpdater  *FileUpdater
	pullRequests ports.PullRequestPort  // required for ModePullRequest
	releaseNotes ports.ReleaseNotesPort // optional
	mode         Mode
	logger       *slog.Logger
}

// NewUpdateService wires an UpdateService. releaseNotes may be nil;
// pullRequests may be nil unless mode is ModePullRequest.
func NewUpdateService(
	store ports.ManifestStorePort,
	resolver *Resolver,
	fileUpdater *FileUpdater,
	pullRequests ports.PullRequestPort,
	releaseNotes ports.ReleaseNotesPort,
	mode Mode,
	logger *slog.Logger,
) *UpdateService {
	return &UpdateService{
		store:        store,
		resolver:     resolver,
		fileUpdater:  fileUpdater,
		pullRequests: pullRequests,
		releaseNotes: releaseNotes,
		mode:         mode,
		logger:       logger,
	}
}

// Execute runs one update pass over the manifest store.
func (s *UpdateService) Execute(ctx context.Context) error {
	deps, err := s.extractAll(ctx)
	if err != nil {
		return fmt.Errorf("extracting dependencies: %w", err)
	}
	if len(deps) == 0 {
		s.logger.Info("no chart references found")
		return nil
	}
	s.logger.Info("extracted chart references", "count", len(deps))

	updates := s.resolver.CheckForUpdates(ctx, deps)
	if len(updates) == 0 {
		s.logger.Info("all charts up to date")
		return nil
	}
	for _, upd := range updates {
		s.logger.Info("update available",
			"chart", upd.Dependency.ChartName,
			"current", upd.CurrentVersion,
			"new", upd.NewVersion,
		)
	}

	updates = s.attachReleaseNotes(ctx, updates)

	fileUpdates := s.fileUpdater.UpdateManifests(ctx, updates)
	if len(fileUpdates) == 0 {
		s.logger.Warn("no manifests could be patched")
		return nil
	}

	switch s.mode {
	case ModeDryRun:
		for _, fu := range fileUpdates {
			s.logger.Info("dry run, proposed change", "path", fu.Path, "updates", len(fu.Updates))
			fmt.Print(UnifiedDiff(fu))
		}
		return nil
	case ModeWrite:
		for _, fu := range fileUpdates {
			if err := s.store.WriteManifest(ctx, fu.Path, fu.UpdatedContent); err != nil {
				return fmt.Errorf("writing %s: %w", fu.Path, err)
			}
			s.logger.Info("manifest updated", "path", fu.Path, "updates", len(fu.Updates))
		}
		return nil
	case ModePullRequest:
		if err := s.pullRequests.ProposeUpdates(ctx, fileUpdates); err != nil {
			return fmt.Errorf("proposing updates: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %d", s.mode)
	}
}

// extractAll scans every manifest in the store and extracts chart references
// from each document. Unreadable or unparsable files are skipped with a
// warning.
func (s *UpdateService) extractAll(ctx context.Context) ([]domain.HelmDependency, error) {
	paths, err := s.store.ListManifests(ctx)
	if err != nil {
		return nil, err
	}

	var deps []domain.HelmDependency
	for _, path := range paths {
		content, err := s.store.ReadManifest(ctx, path)
		if err != nil {
			s.logger.Warn("skipping unreadable manifest", "path", path, "error", err)
			continue
		}
		for i, doc := range decodeDocuments(content) {
			deps = append(deps, domain.ExtractDependencies(doc, path, i)...)
		}
	}
	return deps, nil
}

// attachReleaseNotes decorates updates with release notes when a port is
// configured. Lookups are best effort.
func (s *UpdateService) attachReleaseNotes(ctx context.Context, updates []domain.VersionUpdate) []domain.VersionUpdate {
	if s.releaseNotes == nil {
		return updates
	}
	decorated := make([]domain.VersionUpdate, len(updates))
	for i, upd := range updates {
		upd.ReleaseNotes = s.releaseNotes.GetReleaseNotes(ctx, upd)
		decorated[i] = upd
	}
	return decorated
}

// UnifiedDiff renders a file update as a unified diff.
func UnifiedDiff(fu domain.FileUpdate) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(fu.OriginalContent),
		B:        difflib.SplitLines(fu.UpdatedContent),
		FromFile: "a/" + fu.Path,
		ToFile:   "b/" + fu.Path,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}
