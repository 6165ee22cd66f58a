package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/create_pr/git"
)

// Config holds the settings needed to create a
// Bitbucket pull request provider.
type Config struct {
	// APIHost is the Bitbucket Server base URL (e.g.
	// "bb.example.com" or "https://bb.example.com").
	APIHost string
	// Project is the project key owning the repo.
	Project string
	// Repo is the repository slug.
	Repo string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
	// Timeout bounds the HTTP request. Zero means 30s.
	Timeout time.Duration
}

// APIError is returned for any status other than 201.
// Body is the raw response body.
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

// Provider creates pull requests on Bitbucket Server.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	endpoint string
	project  string
	repo     string
	user     string
	password string
	client   *http.Client
}

type project struct {
	Key string `json:"key,omitempty"`
}

type repository struct {
	Slug    string  `json:"slug,omitempty"`
	Project project `json:"project"`
}

type pullrequestEndpoint struct {
	ID         string     `json:"id,omitempty"`
	Repository repository `json:"repository,omitempty"`
}

type pullrequest struct {
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	State       string               `json:"state,omitempty"`
	Open        bool                 `json:"open"`
	Closed      bool                 `json:"closed"`
	FromRef     *pullrequestEndpoint `json:"fromRef,omitempty"`
	ToRef       *pullrequestEndpoint `json:"toRef,omitempty"`
	Locked      bool                 `json:"locked"`
	Reviewers   []account            `json:"reviewers,omitempty"`
}

type account struct {
	User user `json:"user"`
}

type user struct {
	Name string `json:"name,omitempty"`
}

type link struct {
	Href string `json:"href"`
}

type created struct {
	ID    int `json:"id"`
	Links struct {
		Self []link `json:"self"`
	} `json:"links"`
}

// Endpoint returns the pull request REST endpoint for
// project/repo on apiHost.
func Endpoint(apiHost string, projectKey string, repo string) string {
	if !strings.Contains(apiHost, "://") {
		apiHost = "https://" + apiHost
	}

	return strings.TrimSuffix(apiHost, "/") +
		"/rest/api/1.0/projects/" + url.PathEscape(projectKey) +
		"/repos/" + url.PathEscape(repo) + "/pull-requests"
}

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.APIHost == "" {
		return nil, fmt.Errorf(
			"%s: api host must be set",
			errCtx,
		)
	}

	if cfg.Project == "" || cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: project and repo must be set", errCtx,
		)
	}

	if cfg.User == "" {
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Provider{
		endpoint: Endpoint(cfg.APIHost, cfg.Project, cfg.Repo),
		project:  cfg.Project,
		repo:     cfg.Repo,
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// CreatePR creates a pull request from pr.Head into
// pr.Base. Returns the pull request link on 201.
func (p *Provider) CreatePR(
	ctx context.Context,
	pr git.PullRequest,
) (string, error) {
	const errCtx = "creating bitbucket pull request"

	repo := repository{
		Slug:    p.repo,
		Project: project{Key: p.project},
	}

	payload, err := json.Marshal(&pullrequest{
		Title:       pr.Title,
		Description: pr.Body,
		State:       "OPEN",
		Open:        true,
		Closed:      false,
		FromRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + pr.Head,
			Repository: repo,
		},
		ToRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + pr.Base,
			Repository: repo,
		},
		Locked:    false,
		Reviewers: []account{},
	})
	if err != nil {
		return "", fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.endpoint,
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	req.Header.Set(
		"Content-Type",
		"application/json; charset=utf-8",
	)
	req.SetBasicAuth(p.user, p.password)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf(
			"%s: send request: %w", errCtx, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf(
			"%s: read response: %w", errCtx, err,
		)
	}

	slog.Info(
		"bitbucket response",
		"status", resp.Status,
	)

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%s: %w", errCtx, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(rb),
		})
	}

	var out created
	if err := json.Unmarshal(rb, &out); err != nil {
		return "", fmt.Errorf(
			"%s: parse response: %w", errCtx, err,
		)
	}

	if len(out.Links.Self) == 0 || out.Links.Self[0].Href == "" {
		return "", fmt.Errorf(
			"%s: response has no self link", errCtx,
		)
	}

	slog.Info(
		"pull request created",
		"id", out.ID,
		"url", out.Links.Self[0].Href,
	)

	return out.Links.Self[0].Href, nil
}
