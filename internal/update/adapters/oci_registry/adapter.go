// Package ociregistry lists chart tags via the OCI Distribution API.
package ociregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nathantilsley/argo-helm-updater/internal/update/domain"
)

const defaultTimeout = 30 * time.Second

// Adapter implements the OCI half of ports.RegistryPort against the
// Distribution API v2 tag listing endpoint. Public registries that demand a
// token (Docker Hub, ghcr.io) are handled with an anonymous bearer token
// negotiated from the 401 challenge.
type Adapter struct {
	client *http.Client
	creds  []domain.RegistryCredential
	logger *slog.Logger
}

// New creates an OCI registry adapter.
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

// tagList is the wire shape of /v2/<name>/tags/list.
type tagList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// GetOCITags lists the tags of one chart. repoURL may carry the oci://
// scheme or be a bare registry host plus namespace.
func (a *Adapter) GetOCITags(ctx context.Context, repoURL, chartName string) ([]domain.ChartVersionInfo, error) {
	host, namespace := splitRegistryURL(repoURL)
	if host == "" {
		return nil, fmt.Errorf("invalid OCI repository URL %q", repoURL)
	}

	name := chartName
	if namespace != "" {
		name = namespace + "/" + chartName
	}
	tagsURL := fmt.Sprintf("%s://%s/v2/%s/tags/list", scheme(host), host, name)

	a.logger.Debug("fetching oci tags", "url", tagsURL)
	resp, err := a.get(ctx, tagsURL, repoURL, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Header.Get("WWW-Authenticate")
		resp.Body.Close()
		token, err := a.fetchToken(ctx, challenge, name)
		if err != nil {
			return nil, fmt.Errorf("authenticating to %s: %w", host, err)
		}
		resp, err = a.get(ctx, tagsURL, repoURL, token)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing tags: unexpected status %d", resp.StatusCode)
	}

	var tags tagList
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding tag list: %w", err)
	}

	versions := make([]domain.ChartVersionInfo, 0, len(tags.Tags))
	for _, tag := range tags.Tags {
		versions = append(versions, domain.ChartVersionInfo{Version: tag})
	}
	return versions, nil
}

// get issues one GET with either a bearer token or configured basic auth.
func (a *Adapter) get(ctx context.Context, url, repoURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	switch {
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		if cred := domain.FindCredential(a.creds, repoURL); cred != nil {
			req.SetBasicAuth(cred.Username, cred.Password)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return resp, nil
}

// fetchToken negotiates an anonymous pull token from a Bearer challenge:
// WWW-Authenticate: Bearer realm="...",service="...",scope="...".
func (a *Adapter) fetchToken(ctx context.Context, challenge, name string) (string, error) {
	params := parseChallenge(challenge)
	realm := params["realm"]
	if realm == "" {
		return "", fmt.Errorf("no bearer realm in challenge %q", challenge)
	}

	tokenURL := realm + "?scope=repository:" + name + ":pull"
	if service := params["service"]; service != "" {
		tokenURL += "&service=" + service
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching token: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if body.Token != "" {
		return body.Token, nil
	}
	return body.AccessToken, nil
}

// parseChallenge extracts key="value" pairs from a Bearer challenge header.
func parseChallenge(header string) map[string]string {
	params := make(map[string]string)
	header = strings.TrimPrefix(header, "Bearer ")
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		params[k] = strings.Trim(v, `"`)
	}
	return params
}

// scheme returns the URL scheme for a registry host. Local registries speak
// plain HTTP.
func scheme(host string) string {
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		return "http"
	}
	return "https"
}

// splitRegistryURL splits a repository URL into registry host and namespace
// path, dropping the oci:// scheme if present.
func splitRegistryURL(repoURL string) (host, namespace string) {
	trimmed := strings.TrimPrefix(repoURL, "oci://")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	host, namespace, _ = strings.Cut(trimmed, "/")
	return host, namespace
}
