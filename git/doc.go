// Package git provides git repository operations and a strategy interface for
// creating pull requests across different git hosting platforms.
//
// The Provider interface abstracts PR creation. Implementations exist for
// GitHub, GitLab, and Bitbucket Server in sub-packages.
//
// Repo wraps a local git clone with methods for branching, applying patches,
// committing, and pushing. Every operation runs in Repo.Dir; the process
// working directory is never changed. Clone creates a new Repo from a remote
// URL built with CloneURL.
package git
