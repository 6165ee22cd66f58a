package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/create_pr/git"
)

// DefaultAPIHost is the public GitHub API host.
const DefaultAPIHost = "api.github.com"

// Config holds the settings needed to create a GitHub
// pull request provider.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// APIHost is the API host, optionally with a path
	// (e.g. "ghe.example.com/api/v3"). Defaults to
	// api.github.com. A value with a scheme is used
	// verbatim.
	APIHost string
	// Timeout bounds the HTTP request. Zero means 30s.
	Timeout time.Duration
}

// APIError is returned when the API answers with a
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

// Provider creates pull requests on GitHub.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	client    *gh.Client
	repoOwner string
	repo      string
	endpoint  string
}

// tokenTransport authenticates with the "token" scheme
// expected by the pulls endpoint.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(
	req *http.Request,
) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "token "+t.token)

	return t.base.RoundTrip(req)
}

// BaseURL returns the API root for apiHost, always with
// a trailing slash.
func BaseURL(apiHost string) string {
	if apiHost == "" {
		apiHost = DefaultAPIHost
	}

	if !strings.Contains(apiHost, "://") {
		apiHost = "https://" + apiHost
	}

	return strings.TrimSuffix(apiHost, "/") + "/"
}

// PullsURL returns the pull request creation endpoint
// for org/repo.
func PullsURL(apiHost string, org string, repo string) string {
	return BaseURL(apiHost) + "repos/" +
		url.PathEscape(org) + "/" +
		url.PathEscape(repo) + "/pulls"
}

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := gh.NewClient(&http.Client{
		Timeout: timeout,
		Transport: &tokenTransport{
			token: cfg.AccessToken,
			base:  http.DefaultTransport,
		},
	})

	baseURL, err := url.Parse(BaseURL(cfg.APIHost))
	if err != nil {
		return nil, fmt.Errorf(
			"%s: api host: %w", errCtx, err,
		)
	}

	client.BaseURL = baseURL

	return &Provider{
		client:    client,
		repoOwner: cfg.RepoOwner,
		repo:      cfg.Repo,
		endpoint:  PullsURL(cfg.APIHost, cfg.RepoOwner, cfg.Repo),
	}, nil
}

// CreatePR creates a pull request from pr.Head into
// pr.Base and returns its html_url. A non-2xx answer is
// an *APIError carrying the response body.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating github pull request"

	slog.Info(
		"creating pull request",
		"endpoint", p.endpoint,
		"head", pr.Head,
		"base", pr.Base,
	)

	req := &gh.NewPullRequest{
		Title: &pr.Title,
		Head:  &pr.Head,
		Base:  &pr.Base,
		Body:  &pr.Body,
	}

	created, resp, err := p.client.PullRequests.Create(
		ctx, p.repoOwner, p.repo, req,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s: %w", errCtx, responseError(resp, err),
		)
	}

	htmlURL := created.GetHTMLURL()
	if htmlURL == "" {
		return "", fmt.Errorf(
			"%s: response has no html_url", errCtx,
		)
	}

	slog.Info(
		"created pull request",
		"url", htmlURL,
		"number", created.GetNumber(),
	)

	return htmlURL, nil
}

// responseError turns a failed API call into an
// *APIError when the server answered.
func responseError(resp *gh.Response, err error) error {
	var ghErr *gh.ErrorResponse

	if resp == nil || resp.Response == nil {
		return err
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	// go-github re-populates the body after reading
	// it into ErrorResponse.
	if resp.Body != nil {
		defer resp.Body.Close() //nolint:errcheck

		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Warn(
				"cannot read response body",
				"error", readErr,
			)
		}

		apiErr.Body = string(rb)
	}

	if apiErr.Body == "" && errors.As(err, &ghErr) {
		if rb, mErr := json.Marshal(ghErr); mErr == nil {
			apiErr.Body = string(rb)
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Answered 2xx but the body did not decode.
		return fmt.Errorf("%w: %s", err, apiErr.Body)
	}

	slog.Warn(
		"github response",
		"status", resp.StatusCode,
		"body", apiErr.Body,
	)

	return apiErr
}
