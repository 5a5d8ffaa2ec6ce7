// Package github implements the diff fetcher on top of the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
)

// FetcherFactory creates diff fetchers for the credentials a work item
// carries: a per-request token, a GitHub App installation, or the server
// token as fallback.
type FetcherFactory struct {
	cfg        *config.GitHubConfig
	privateKey []byte
	transport  http.RoundTripper
	logger     *slog.Logger
}

// NewFetcherFactory reads the GitHub App private key when an App is
// configured.
func NewFetcherFactory(cfg *config.GitHubConfig, logger *slog.Logger) (*FetcherFactory, error) {
	f := &FetcherFactory{cfg: cfg, transport: http.DefaultTransport, logger: logger}
	if cfg.AppID == 0 {
		return f, nil
	}

	key, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}
	f.privateKey = key
	return f, nil
}

// NewDiffFetcher implements core.DiffFetcherFactory.
func (f *FetcherFactory) NewDiffFetcher(ctx context.Context, creds core.Credentials) (core.DiffFetcher, error) {
	httpClient, err := f.httpClient(ctx, creds)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(httpClient)
	if f.cfg.APIURL != "" {
		client, err = client.WithEnterpriseURLs(f.cfg.APIURL, f.cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure GitHub API URL %q: %w", f.cfg.APIURL, err)
		}
	}
	return newDiffFetcher(client, f.logger), nil
}

func (f *FetcherFactory) httpClient(ctx context.Context, creds core.Credentials) (*http.Client, error) {
	switch {
	case creds.Token != "":
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token})), nil

	case creds.InstallationID != 0:
		if f.privateKey == nil {
			return nil, fmt.Errorf("installation %d requires GITHUB_APP_ID and a private key", creds.InstallationID)
		}
		tr, err := ghinstallation.New(f.transport, f.cfg.AppID, creds.InstallationID, f.privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create installation transport for installation ID %d: %w", creds.InstallationID, err)
		}
		if f.cfg.APIURL != "" {
			tr.BaseURL = f.cfg.APIURL
		}
		f.logger.Debug("authenticating as GitHub App installation", "installation_id", creds.InstallationID)
		return &http.Client{Transport: tr}, nil

	case f.cfg.Token != "":
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: f.cfg.Token})), nil

	default:
		f.logger.Warn("no GitHub credentials available, using unauthenticated requests")
		return &http.Client{Transport: f.transport}, nil
	}
}
