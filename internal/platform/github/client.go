// Package github provides authenticated GitHub API clients.
package github

import (
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v68/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewClient creates a GitHub API client authenticated as a GitHub App
// installation. The ghinstallation transport handles JWT generation and
// token renewal; outbound requests are traced via otelhttp.
func NewClient(appID, installationID int64, privateKeyPEM string) (*gogithub.Client, error) {
	base := otelhttp.NewTransport(http.DefaultTransport)
	transport, err := ghinstallation.New(base, appID, installationID, []byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("creating github installation transport: %w", err)
	}
	return gogithub.NewClient(&http.Client{Transport: transport}), nil
}
