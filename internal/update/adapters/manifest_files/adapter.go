// Package manifestfiles provides a filesystem-backed manifest store over a
// GitOps working copy.
package manifestfiles

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Adapter implements ports.ManifestStorePort against a directory tree.
// Paths returned and accepted are relative to the root, with forward slashes.
type Adapter struct {
	root   string
	logger *slog.Logger
}

// New creates an adapter rooted at dir.
func New(dir string, logger *slog.Logger) *Adapter {
	return &Adapter{root: dir, logger: logger}
}

// ListManifests walks the tree and returns every .yaml/.yml file, sorted for
// deterministic processing order. The .git directory is skipped.
func (a *Adapter) ListManifests(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", a.root, err)
	}
	sort.Strings(paths)
	a.logger.Debug("scanned working copy", "root", a.root, "manifests", len(paths))
	return paths, nil
}

// ReadManifest returns the content of one manifest.
func (a *Adapter) ReadManifest(_ context.Context, path string) (string, error) {
	full, err := a.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// WriteManifest replaces the content of one manifest.
func (a *Adapter) WriteManifest(_ context.Context, path, content string) error {
	full, err := a.resolve(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// resolve joins a store path onto the root, rejecting escapes.
func (a *Adapter) resolve(path string) (string, error) {
	full := filepath.Join(a.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(a.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes the working copy", path)
	}
	return full, nil
}
