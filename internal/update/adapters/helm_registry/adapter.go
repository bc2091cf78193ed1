// Package helmregistry fetches classic Helm repository indexes.
package helmregistry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

const defaultTimeout = 30 * time.Second

// Adapter implements the Helm half of ports.RegistryPort by downloading and
// decoding a repository's index.yaml.
type Adapter struct {
	client *http.Client
	creds  []domain.RegistryCredential
	logger *slog.Logger
}

// New creates a Helm repository adapter. Outbound requests are traced via
// otelhttp and bounded by the given timeout (defaultTimeout when zero).
func New(timeout time.Duration, creds []domain.RegistryCredential, logger *slog.Logger) *Adapter {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		creds:  creds,
		logger: logger,
	}
}

// indexFile is the wire shape of a Helm repository index.
type indexFile struct {
	APIVersion string                  `yaml:"apiVersion"`
	Entries    map[string][]chartEntry `yaml:"entries"`
}

type chartEntry struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	AppVersion  string `yaml:"appVersion"`
	Description string `yaml:"description"`
}

// GetHelmIndex fetches <repoURL>/index.yaml and returns every chart entry it
// lists, keyed by chart name.
func (a *Adapter) GetHelmIndex(ctx context.Context, repoURL string) (map[string][]domain.ChartVersionInfo, error) {
	indexURL := strings.TrimSuffix(repoURL, "/") + "/index.yaml"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating index request: %w", err)
	}
	if cred := domain.FindCredential(a.creds, repoURL); cred != nil {
		req.SetBasicAuth(cred.Username, cred.Password)
	}

	a.logger.Debug("fetching helm index", "url", indexURL)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching index: unexpected status %d", resp.StatusCode)
	}

	var index indexFile
	if err := yaml.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	charts := make(map[string][]domain.ChartVersionInfo, len(index.Entries))
	for name, entries := range index.Entries {
		versions := make([]domain.ChartVersionInfo, 0, len(entries))
		for _, e := range entries {
			versions = append(versions, domain.ChartVersionInfo{
				Version:     e.Version,
				AppVersion:  e.AppVersion,
				Description: e.Description,
			})
		}
		charts[name] = versions
	}
	return charts, nil
}
