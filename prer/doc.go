// Package prer creates a pull request from a patch. Run walks a strictly
// linear sequence: prepare the workspace, clone through an authenticated URL,
// create the head branch, apply the patch, commit and push, then open the pull
// request via a git.Provider.
//
// Every git command runs with an explicit working directory and its exit
// status is checked. The first failure stops the run with a *StepError naming
// the step; earlier steps are not undone. An empty diff stops the run at the
// commit step with git.ErrNothingToCommit, before anything is pushed.
//
// The main entry point is Run, which accepts a Config struct with all
// parameters for the workflow.
package prer
