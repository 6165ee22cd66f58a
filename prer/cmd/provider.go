package main

import (
	"fmt"

	"github.com/byte4ever/create_pr/git"
	"github.com/byte4ever/create_pr/git/bitbucket"
	"github.com/byte4ever/create_pr/git/github"
	"github.com/byte4ever/create_pr/git/gitlab"
)

// newProvider creates a git.Provider based on the
// server name. Pattern: Factory -- selects platform
// implementation at runtime.
func newProvider(
	server string,
	opts options,
) (git.Provider, error) {
	const errCtx = "creating git provider"

	switch server {
	case "github", "":
		p, err := github.NewProvider(github.Config{
			RepoOwner:   opts.Organization,
			Repo:        opts.Repository,
			AccessToken: opts.Token,
			APIHost:     opts.APIHost,
			Timeout:     opts.HTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case "gitlab":
		p, err := gitlab.NewProvider(gitlab.Config{
			Host:        opts.APIHost,
			Repo:        opts.Organization + "/" + opts.Repository,
			AccessToken: opts.Token,
			Timeout:     opts.HTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case "bitbucket":
		p, err := bitbucket.NewProvider(
			bitbucket.Config{
				APIHost:  opts.APIHost,
				Project:  opts.Organization,
				Repo:     opts.Repository,
				User:     opts.User,
				Password: opts.Token,
				Timeout:  opts.HTTPTimeout,
			},
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q", errCtx, server,
		)
	}
}
