// Package github implements a git.Provider that creates pull requests on
// GitHub (cloud or enterprise). Configure with a Config containing the
// repository owner, name, and personal access token. Set APIHost for GitHub
// Enterprise installations (e.g. "ghe.example.com/api/v3").
//
// Requests authenticate with the "token" Authorization scheme. A non-2xx
// answer is reported as an *APIError holding the raw response body.
package github
