package domain

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Hostnames of container registries that serve Helm charts over OCI even
// when referenced without the oci:// scheme.
var ociRegistryHosts = map[string]struct{}{
	"ghcr.io":              {},
	"docker.io":            {},
	"registry-1.docker.io": {},
	"gcr.io":               {},
	"quay.io":              {},
	"public.ecr.aws":       {},
	"registry.gitlab.com":  {},
}

// ExtractDependencies walks a parsed Argo CD manifest document and returns
// every chart reference it carries. It understands Application
// (spec.source, spec.sources[]) and ApplicationSet
// (spec.template.spec.source, spec.template.spec.sources[]) kinds.
//
// A source yields a dependency only when it has both a repository URL and a
// targetRevision, and the URL carries chart semantics (an explicit chart
// field, or an OCI registry URL). Git sources mixed into the same sources[]
// list are skipped. Malformed or empty documents yield an empty list.
func ExtractDependencies(doc *yaml.Node, manifestPath string, documentIndex int) []HelmDependency {
	if doc == nil {
		return nil
	}
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}

	var specPath []string
	switch scalarAt(root, "kind") {
	case "Application":
		specPath = []string{"spec"}
	case "ApplicationSet":
		specPath = []string{"spec", "template", "spec"}
	default:
		return nil
	}

	spec := LookupNode(root, specPath)
	if spec == nil || spec.Kind != yaml.MappingNode {
		return nil
	}

	var deps []HelmDependency

	if source := mappingValue(spec, "source"); source != nil {
		path := append(append([]string{}, specPath...), "source", "targetRevision")
		if dep, ok := dependencyFromSource(source, manifestPath, documentIndex, path); ok {
			deps = append(deps, dep)
		}
	}

	if sources := mappingValue(spec, "sources"); sources != nil && sources.Kind == yaml.SequenceNode {
		for i, source := range sources.Content {
			path := append(append([]string{}, specPath...), "sources", strconv.Itoa(i), "targetRevision")
			if dep, ok := dependencyFromSource(source, manifestPath, documentIndex, path); ok {
				deps = append(deps, dep)
			}
		}
	}

	return deps
}

// dependencyFromSource builds a HelmDependency from one source mapping,
// reporting false for sources without chart semantics.
func dependencyFromSource(source *yaml.Node, manifestPath string, documentIndex int, versionPath []string) (HelmDependency, bool) {
	if source == nil || source.Kind != yaml.MappingNode {
		return HelmDependency{}, false
	}

	repoURL := scalarAt(source, "repoURL")
	version := scalarAt(source, "targetRevision")
	chart := scalarAt(source, "chart")

	if repoURL == "" || version == "" {
		return HelmDependency{}, false
	}

	oci := IsOCIRegistry(repoURL)
	if chart == "" {
		if !oci {
			// Git source: targetRevision is a branch or tag, not a chart version.
			return HelmDependency{}, false
		}
		// Chart name is the final URL path segment; keep RepoURL without it so
		// registry keys never duplicate the chart segment.
		repoURL, chart = splitOCIChart(repoURL)
		if chart == "" {
			return HelmDependency{}, false
		}
	}

	repoType := RepoTypeHelm
	if oci {
		repoType = RepoTypeOCI
	}

	return HelmDependency{
		ManifestPath:   manifestPath,
		DocumentIndex:  documentIndex,
		ChartName:      chart,
		RepoURL:        repoURL,
		RepoType:       repoType,
		CurrentVersion: version,
		VersionPath:    versionPath,
	}, true
}

// IsOCIRegistry reports whether a repository URL points at an OCI registry,
// either via the oci:// scheme or a known container registry hostname.
func IsOCIRegistry(repoURL string) bool {
	if strings.HasPrefix(repoURL, "oci://") {
		return true
	}
	host := repoURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if _, ok := ociRegistryHosts[host]; ok {
		return true
	}
	return strings.HasSuffix(host, ".azurecr.io")
}

// splitOCIChart splits an OCI repository URL into the registry URL and the
// trailing chart segment.
func splitOCIChart(repoURL string) (string, string) {
	trimmed := strings.TrimSuffix(repoURL, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 || strings.HasSuffix(trimmed[:i], ":/") {
		return repoURL, ""
	}
	return trimmed[:i], trimmed[i+1:]
}
