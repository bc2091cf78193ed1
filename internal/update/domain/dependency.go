// Package domain holds the core types and pure logic for chart version
// updates: dependency extraction, constraint evaluation, and update policy.
package domain

import "strings"

// RepoType distinguishes classic Helm repositories from OCI registries.
type RepoType string

const (
	RepoTypeHelm RepoType = "helm"
	RepoTypeOCI  RepoType = "oci"
)

// HelmDependency is a chart reference found inside a GitOps manifest.
// It records where the reference lives (manifest path, document index, and
// the structural path to the version scalar) alongside the chart coordinates.
type HelmDependency struct {
	ManifestPath   string   // file the reference was found in
	DocumentIndex  int      // position within a multi-document stream
	ChartName      string   // explicit chart field, or derived from an OCI URL
	RepoURL        string   // repository URL, chart segment stripped for OCI
	RepoType       RepoType
	CurrentVersion string   // exact version or constraint expression
	VersionPath    []string // field path from document root to the version scalar
}

// RegistryKey returns the key under which this dependency's versions are
// cached and reported: repoURL + "/" + chartName, with no duplicate slash.
func (d HelmDependency) RegistryKey() string {
	return strings.TrimSuffix(d.RepoURL, "/") + "/" + d.ChartName
}

// ChartVersionInfo is one version of a chart as reported by a registry.
type ChartVersionInfo struct {
	Version     string
	AppVersion  string
	Description string
}

// VersionUpdate is a selected upgrade for one dependency. Immutable once
// produced by the resolver; ReleaseNotes may be attached afterwards by the
// application layer.
type VersionUpdate struct {
	Dependency     HelmDependency
	CurrentVersion string
	NewVersion     string
	ReleaseNotes   string
}

// FileUpdate aggregates every update applied to one manifest file. It carries
// both the original and patched full-file content so callers can diff or
// commit without re-reading the file.
type FileUpdate struct {
	Path            string
	OriginalContent string
	UpdatedContent  string
	Updates         []VersionUpdate
}
