package bitbucket_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/create_pr/git"
	bb "github.com/byte4ever/create_pr/git/bitbucket"
)

func TestNewProvider_valid(t *testing.T) {
	t.Parallel()

	pv, err := bb.NewProvider(validConfig("bb.example.com"))

	require.NoError(t, err)
	assert.NotNil(t, pv)
}

func TestNewProvider_missing_fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*bb.Config)
		want   string
	}{
		{
			name:   "api host",
			mutate: func(c *bb.Config) { c.APIHost = "" },
			want:   "api host",
		},
		{
			name:   "project",
			mutate: func(c *bb.Config) { c.Project = "" },
			want:   "project and repo",
		},
		{
			name:   "user",
			mutate: func(c *bb.Config) { c.User = "" },
			want:   "user must be set",
		},
		{
			name:   "password",
			mutate: func(c *bb.Config) { c.Password = "" },
			want:   "password",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig("bb.example.com")
			tt.mutate(&cfg)

			pv, err := bb.NewProvider(cfg)

			assert.Nil(t, pv)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"https://bb.example.com/rest/api/1.0/projects/ACME/repos/widgets/pull-requests",
		bb.Endpoint("bb.example.com/", "ACME", "widgets"),
	)
}

func TestProvider_CreatePR_created(t *testing.T) {
	t.Parallel()

	var (
		gotBody []byte
		gotPath string
		gotUser string
	)

	ts := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				var err error

				gotPath = r.URL.Path
				gotUser, _, _ = r.BasicAuth()

				gotBody, err = io.ReadAll(r.Body)
				if err != nil {
					http.Error(
						w,
						"read error",
						http.StatusInternalServerError,
					)

					return
				}

				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(
					`{"id":5,"links":{"self":[{"href":"https://bb.example.com/projects/ACME/repos/widgets/pull-requests/5"}]}}`,
				))
			},
		),
	)
	defer ts.Close()

	pv, err := bb.NewProvider(validConfig(ts.URL))
	require.NoError(t, err)

	url, err := pv.CreatePR(
		context.Background(),
		git.PullRequest{
			Head:  "deploy/test1",
			Base:  "main",
			Title: "test",
			Body:  "hello world",
		},
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://bb.example.com/projects/ACME/repos/widgets/pull-requests/5",
		url,
	)
	assert.Equal(
		t, "/rest/api/1.0/projects/ACME/repos/widgets/pull-requests", gotPath,
	)
	assert.Equal(t, "admin", gotUser)
	assert.Contains(t, string(gotBody), `"title":"test"`)
	assert.Contains(
		t, string(gotBody), `"description":"hello world"`,
	)
	assert.Contains(t, string(gotBody), `refs/heads/deploy/test1`)
	assert.Contains(t, string(gotBody), `"slug":"widgets"`)
}

func TestProvider_CreatePR_conflict(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"errors":[{"message":"duplicate"}]}`))
			},
		),
	)
	defer ts.Close()

	pv, err := bb.NewProvider(validConfig(ts.URL))
	require.NoError(t, err)

	_, err = pv.CreatePR(
		context.Background(),
		git.PullRequest{Head: "a", Base: "b", Title: "t"},
	)

	var apiErr *bb.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "duplicate")
}

func TestProvider_CreatePR_unexpected_status(
	t *testing.T,
) {
	t.Parallel()

	ts := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		),
	)
	defer ts.Close()

	pv, err := bb.NewProvider(validConfig(ts.URL))
	require.NoError(t, err)

	_, err = pv.CreatePR(
		context.Background(),
		git.PullRequest{Head: "a", Base: "b", Title: "t"},
	)

	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestProvider_CreatePR_malformed_response(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`not json`))
			},
		),
	)
	defer ts.Close()

	pv, err := bb.NewProvider(validConfig(ts.URL))
	require.NoError(t, err)

	_, err = pv.CreatePR(
		context.Background(),
		git.PullRequest{Head: "a", Base: "b", Title: "t"},
	)

	assert.ErrorContains(t, err, "parse response")
}

func validConfig(apiHost string) bb.Config {
	return bb.Config{
		APIHost:  apiHost,
		Project:  "ACME",
		Repo:     "widgets",
		User:     "admin",
		Password: "secret",
	}
}
