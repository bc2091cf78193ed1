package app

import (
	"context"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
	"github.com/nathantilsley/argo-helm-updater/internal/update/ports"
)

// FileUpdater rewrites version scalars inside manifest files. Only the
// addressed scalar changes; comments, key order, quoting, block scalars, and
// template placeholders elsewhere in the file survive byte for byte, because
// the rewrite is a line-level splice at the scalar's parsed position rather
// than a re-encode of the document.
type FileUpdater struct {
	store  ports.ManifestStorePort
	logger *slog.Logger
}

// NewFileUpdater creates a FileUpdater reading through the given store.
func NewFileUpdater(store ports.ManifestStorePort, logger *slog.Logger) *FileUpdater {
	return &FileUpdater{store: store, logger: logger}
}

// UpdateManifests applies version updates to their manifest files and
// returns one FileUpdate per distinct path, aggregating every update that
// touched it. Each file is read exactly once. An update whose version path
// no longer resolves to a scalar is skipped without disturbing the rest of
// the file or the batch.
func (u *FileUpdater) UpdateManifests(ctx context.Context, updates []domain.VersionUpdate) []domain.FileUpdate {
	var order []string
	byPath := make(map[string][]domain.VersionUpdate)
	for _, upd := range updates {
		path := upd.Dependency.ManifestPath
		if _, ok := byPath[path]; !ok {
			order = append(order, path)
		}
		byPath[path] = append(byPath[path], upd)
	}

	var results []domain.FileUpdate
	for _, path := range order {
		if fu, ok := u.updateFile(ctx, path, byPath[path]); ok {
			results = append(results, fu)
		}
	}
	return results
}

// updateFile applies all updates for one manifest path.
func (u *FileUpdater) updateFile(ctx context.Context, path string, updates []domain.VersionUpdate) (domain.FileUpdate, bool) {
	content, err := u.store.ReadManifest(ctx, path)
	if err != nil {
		u.logger.Warn("skipping manifest, read failed", "path", path, "error", err)
		return domain.FileUpdate{}, false
	}

	docs := decodeDocuments(content)
	lines := strings.Split(content, "\n")

	var applied []domain.VersionUpdate
	for _, upd := range updates {
		dep := upd.Dependency
		if dep.DocumentIndex < 0 || dep.DocumentIndex >= len(docs) {
			u.logger.Warn("skipping update, document index out of range",
				"path", path, "documentIndex", dep.DocumentIndex, "chart", dep.ChartName)
			continue
		}

		scalar := domain.LookupScalar(docs[dep.DocumentIndex], dep.VersionPath)
		if scalar == nil || scalar.Line <= 0 || scalar.Line > len(lines) {
			u.logger.Warn("skipping update, version path no longer resolves",
				"path", path, "versionPath", strings.Join(dep.VersionPath, "."), "chart", dep.ChartName)
			continue
		}

		line, ok := spliceValue(lines[scalar.Line-1], scalar.Column-1, scalar.Value, upd.NewVersion)
		if !ok {
			u.logger.Warn("skipping update, current value not found at scalar position",
				"path", path, "line", scalar.Line, "chart", dep.ChartName)
			continue
		}
		lines[scalar.Line-1] = line
		applied = append(applied, upd)
	}

	if len(applied) == 0 {
		return domain.FileUpdate{}, false
	}

	return domain.FileUpdate{
		Path:            path,
		OriginalContent: content,
		UpdatedContent:  strings.Join(lines, "\n"),
		Updates:         applied,
	}, true
}

// decodeDocuments parses a multi-document YAML stream into document nodes.
// A decode error ends the stream early; documents parsed before the error
// remain addressable.
func decodeDocuments(content string) []*yaml.Node {
	var docs []*yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(content))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			// EOF or a malformed trailing document both end the stream;
			// documents already decoded stay usable.
			return docs
		}
		docs = append(docs, &node)
	}
}

// spliceValue replaces the first occurrence of old at or after col in line.
// Searching from the scalar's parsed column keeps quoting intact: for quoted
// scalars the column points at the opening quote and the value sits just
// inside it.
func spliceValue(line string, col int, old, new string) (string, bool) {
	if old == "" {
		return line, false
	}
	if col < 0 || col > len(line) {
		col = 0
	}
	i := strings.Index(line[col:], old)
	if i < 0 {
		return line, false
	}
	i += col
	return line[:i] + new + line[i+len(old):], true
}
