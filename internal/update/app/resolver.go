// Package app orchestrates the update workflow: extraction, version
// resolution, file mutation, and reporting.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
	"github.com/nathantilsley/argo-helm-updater/internal/update/ports"
)

// CacheStats reports the number of distinct keys held by the resolver caches.
type CacheStats struct {
	HelmIndexCacheSize int
	OCITagsCacheSize   int
}

// Resolver selects version updates for extracted dependencies. It caches
// registry data for its own lifetime: one index fetch per Helm repository
// and one tag-list fetch per OCI chart, with concurrent requests for the
// same key collapsed into a single network call.
type Resolver struct {
	registry ports.RegistryPort
	policy   domain.UpdatePolicy
	logger   *slog.Logger

	flight singleflight.Group

	mu          sync.RWMutex
	generation  uint64
	helmIndexes map[string]map[string][]domain.ChartVersionInfo // repoURL -> chart -> versions
	ociTags     map[string][]domain.ChartVersionInfo            // repoURL/chart -> tags

	fetches     metric.Int64Counter
	fetchErrors metric.Int64Counter
}

// NewResolver creates a resolver with empty caches. The meter may be a noop.
func NewResolver(registry ports.RegistryPort, policy domain.UpdatePolicy, meter metric.Meter, logger *slog.Logger) *Resolver {
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("resolver")
	}
	fetches, _ := meter.Int64Counter("registry.fetches")
	fetchErrors, _ := meter.Int64Counter("registry.fetch_errors")

	return &Resolver{
		registry:    registry,
		policy:      policy,
		logger:      logger,
		helmIndexes: make(map[string]map[string][]domain.ChartVersionInfo),
		ociTags:     make(map[string][]domain.ChartVersionInfo),
		fetches:     fetches,
		fetchErrors: fetchErrors,
	}
}

// ResolveVersions returns the available versions for every dependency, keyed
// by registry key (repoURL + "/" + chartName). A Helm repository index is
// fetched at most once no matter how many of its charts are requested, and
// every chart the index lists appears in the result. OCI charts cost one
// tag-list fetch per distinct (repoURL, chartName) pair.
//
// Fetch failures are logged and leave the affected keys out of the result;
// they never abort the batch.
func (r *Resolver) ResolveVersions(ctx context.Context, deps []domain.HelmDependency) map[string][]domain.ChartVersionInfo {
	var wg sync.WaitGroup
	launched := make(map[string]struct{})

	for _, dep := range deps {
		dep := dep
		key := flightKey(dep)
		if _, ok := launched[key]; ok {
			continue
		}
		launched[key] = struct{}{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if dep.RepoType == domain.RepoTypeOCI {
				r.ociChartTags(ctx, dep.RepoURL, dep.ChartName)
			} else {
				r.helmIndex(ctx, dep.RepoURL)
			}
		}()
	}
	wg.Wait()

	result := make(map[string][]domain.ChartVersionInfo)
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, dep := range deps {
		if dep.RepoType == domain.RepoTypeOCI {
			if tags, ok := r.ociTags[dep.RegistryKey()]; ok {
				result[dep.RegistryKey()] = tags
			}
			continue
		}
		index, ok := r.helmIndexes[dep.RepoURL]
		if !ok {
			continue
		}
		base := strings.TrimSuffix(dep.RepoURL, "/")
		for chart, versions := range index {
			result[base+"/"+chart] = versions
		}
	}
	return result
}

func flightKey(dep domain.HelmDependency) string {
	if dep.RepoType == domain.RepoTypeOCI {
		return "oci:" + dep.RegistryKey()
	}
	return "helm:" + dep.RepoURL
}

// helmIndex returns the cached index for a repository, fetching it once.
func (r *Resolver) helmIndex(ctx context.Context, repoURL string) map[string][]domain.ChartVersionInfo {
	r.mu.RLock()
	index, ok := r.helmIndexes[repoURL]
	gen := r.generation
	r.mu.RUnlock()
	if ok {
		return index
	}

	v, err, _ := r.flight.Do("helm:"+repoURL, func() (any, error) {
		r.fetches.Add(ctx, 1)
		fetched, err := r.registry.GetHelmIndex(ctx, repoURL)
		if err != nil {
			return nil, err
		}
		r.store(gen, func() { r.helmIndexes[repoURL] = fetched })
		return fetched, nil
	})
	if err != nil {
		r.fetchErrors.Add(ctx, 1)
		r.logger.Warn("helm index fetch failed", "repoURL", repoURL, "error", err)
		return nil
	}
	return v.(map[string][]domain.ChartVersionInfo)
}

// ociChartTags returns the cached tag list for one OCI chart, fetching it once.
func (r *Resolver) ociChartTags(ctx context.Context, repoURL, chartName string) []domain.ChartVersionInfo {
	key := strings.TrimSuffix(repoURL, "/") + "/" + chartName

	r.mu.RLock()
	tags, ok := r.ociTags[key]
	gen := r.generation
	r.mu.RUnlock()
	if ok {
		return tags
	}

	v, err, _ := r.flight.Do("oci:"+key, func() (any, error) {
		r.fetches.Add(ctx, 1)
		fetched, err := r.registry.GetOCITags(ctx, repoURL, chartName)
		if err != nil {
			return nil, err
		}
		r.store(gen, func() { r.ociTags[key] = fetched })
		return fetched, nil
	})
	if err != nil {
		r.fetchErrors.Add(ctx, 1)
		r.logger.Warn("oci tag fetch failed", "repoURL", repoURL, "chart", chartName, "error", err)
		return nil
	}
	return v.([]domain.ChartVersionInfo)
}

// store writes into a cache map unless ClearCache ran since the fetch began.
func (r *Resolver) store(gen uint64, write func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation == gen {
		write()
	}
}

// CheckForUpdates selects the best available upgrade for each dependency.
// Selection is deterministic for identical inputs and registry contents:
// each candidate set is filtered by constraint, strategy ceiling, ignore
// rules, and dependency groups, then the semver maximum wins. Dependencies
// with unparsable versions, exhausted candidate sets, or failed fetches are
// skipped without aborting the batch.
func (r *Resolver) CheckForUpdates(ctx context.Context, deps []domain.HelmDependency) []domain.VersionUpdate {
	available := r.ResolveVersions(ctx, deps)

	var updates []domain.VersionUpdate
	for _, dep := range deps {
		versions, ok := available[dep.RegistryKey()]
		if !ok {
			continue
		}

		constraint := domain.ParseConstraint(dep.CurrentVersion)
		if !constraint.IsValid() {
			r.logger.Debug("skipping dependency with unparsable version",
				"chart", dep.ChartName, "version", dep.CurrentVersion)
			continue
		}

		best, bestRaw := r.selectCandidate(dep, constraint, versions)
		if best == nil {
			continue
		}
		if constraint.Kind == domain.ConstraintExact && !best.GreaterThan(constraint.Version) {
			continue
		}
		if bestRaw == dep.CurrentVersion {
			continue
		}

		updates = append(updates, domain.VersionUpdate{
			Dependency:     dep,
			CurrentVersion: dep.CurrentVersion,
			NewVersion:     bestRaw,
		})
	}
	return updates
}

// selectCandidate returns the maximum eligible version and its raw registry
// string, or nil when nothing qualifies.
func (r *Resolver) selectCandidate(
	dep domain.HelmDependency,
	constraint domain.ParsedConstraint,
	versions []domain.ChartVersionInfo,
) (*semver.Version, string) {
	anchor := constraint.Anchor()

	var best *semver.Version
	var bestRaw string
	for _, info := range versions {
		v, err := semver.NewVersion(info.Version)
		if err != nil {
			continue
		}
		if !constraint.AdmitsCandidate(v) {
			continue
		}
		if anchor != nil && !r.policy.Strategy.Allows(anchor, v) {
			continue
		}
		if r.policy.Excludes(dep.ChartName, anchor, v) {
			continue
		}
		if !r.policy.GroupAllows(dep.ChartName, anchor, v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = info.Version
		}
	}
	return best, bestRaw
}

// CacheStats returns the number of distinct keys currently cached.
func (r *Resolver) CacheStats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CacheStats{
		HelmIndexCacheSize: len(r.helmIndexes),
		OCITagsCacheSize:   len(r.ociTags),
	}
}

// ClearCache discards all cached registry data. The next resolution fetches
// from scratch; fetches already in flight cannot repopulate the old entries.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.helmIndexes = make(map[string]map[string][]domain.ChartVersionInfo)
	r.ociTags = make(map[string][]domain.ChartVersionInfo)
}
