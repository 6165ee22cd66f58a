package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/create_pr/git"
)

// DefaultHost is the public GitLab instance.
const DefaultHost = "https://gitlab.com"

// Config holds the settings needed to create a GitLab
// merge request provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com"). A bare host name
	// gets an https scheme.
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
	// Timeout bounds the HTTP request. Zero means 30s.
	Timeout time.Duration
}

// APIError is returned when GitLab answers with a
// non-2xx status. Body is the raw response body.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d: %s",
		e.StatusCode, strings.TrimSpace(e.Body),
	)
}

// Provider creates merge requests on GitLab.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	client *gl.Client
	repo   string
}

// NewProvider validates cfg and returns a Provider
// ready to create merge requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}

	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
		gl.WithHTTPClient(&http.Client{Timeout: timeout}),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// CreatePR creates a merge request from pr.Head into
// pr.Base and returns its web URL.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating gitlab merge request"

	opts := gl.CreateMergeRequestOptions{
		Title:        &pr.Title,
		Description:  &pr.Body,
		SourceBranch: &pr.Head,
		TargetBranch: &pr.Base,
	}

	created, resp, err := p.client.MergeRequests.CreateMergeRequest(
		p.repo, &opts, gl.WithContext(ctx),
	)
	if err != nil {
		var glErr *gl.ErrorResponse

		if resp != nil && errors.As(err, &glErr) {
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Body:       string(glErr.Body),
			}

			slog.Warn(
				"gitlab response",
				"status", apiErr.StatusCode,
				"body", apiErr.Body,
			)

			return "", fmt.Errorf("%s: %w", errCtx, apiErr)
		}

		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if created.WebURL == "" {
		return "", fmt.Errorf(
			"%s: response has no web_url", errCtx,
		)
	}

	slog.Info(
		"created merge request",
		"url", created.WebURL,
	)

	return created.WebURL, nil
}
