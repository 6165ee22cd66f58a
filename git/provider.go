package git

import "context"

// Pattern: Strategy -- swap git platform without
// changing PR creation logic.

// PullRequest describes the pull request to open.
type PullRequest struct {
	// Head is the branch carrying the change.
	Head string
	// Base is the branch the change merges into.
	Base string
	// Title is the pull request title.
	Title string
	// Body is the pull request description.
	Body string
}

// Provider creates pull requests on a git hosting
// platform and returns the human-facing URL.
type Provider interface {
	CreatePR(
		ctx context.Context,
		pr PullRequest,
	) (string, error)
}
