package prer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/byte4ever/create_pr/exec"
	"github.com/byte4ever/create_pr/git"
)

// Stage is a point reached by the workflow. Stages are
// strictly ordered; a run only moves forward.
type Stage int

// Workflow stages, in order.
const (
	StageStart Stage = iota
	StageWorkspaceReady
	StageCloned
	StageBranched
	StagePatched
	StageCommittedPushed
	StagePRCreated
)

var stageNames = [...]string{
	StageStart:           "START",
	StageWorkspaceReady:  "WORKSPACE_READY",
	StageCloned:          "CLONED",
	StageBranched:        "BRANCHED",
	StagePatched:         "PATCHED",
	StageCommittedPushed: "COMMITTED_PUSHED",
	StagePRCreated:       "PR_CREATED",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}

	return stageNames[s]
}

// Step names used in StepError.
const (
	StepWorkspace = "workspace"
	StepClone     = "clone"
	StepBranch    = "branch"
	StepApply     = "apply"
	StepCommit    = "commit"
	StepPush      = "push"
	StepPR        = "pull request"
)

// StepError reports the workflow step that failed.
type StepError struct {
	Step string
	Err  error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Credentials identify the caller to the git host and
// the API. Read once at startup.
type Credentials struct {
	// User is the git user name, used in the clone
	// URL and as commit author name.
	User string
	// Email is the commit author email.
	Email string
	// Token authenticates clone, push and the API.
	Token string
	// Host is the git host (e.g. "github.com").
	Host string
	// APIHost is the provider API host (e.g.
	// "api.github.com").
	APIHost string
}

// Params are the per-run inputs.
type Params struct {
	Organization  string
	Repository    string
	CommitMessage string
	BaseBranch    string
	HeadBranch    string
}

// Config holds all settings for a run. Build it once
// and pass it to Run.
type Config struct {
	Credentials Credentials
	Params      Params

	// Patch is the unified diff to apply.
	Patch []byte

	// WorkDir is the parent directory of the clone.
	// The checkout lands in WorkDir/Repository.
	WorkDir string

	// CloneURL overrides the authenticated https URL
	// built from Credentials.
	CloneURL string

	// CommandTimeout bounds each git command. Zero
	// disables it.
	CommandTimeout time.Duration

	// Title and Body of the pull request.
	Title string
	Body  string

	// Provider creates the pull request.
	Provider git.Provider

	// Commander runs git. Defaults to an exec.Runner
	// with CommandTimeout.
	Commander git.Commander
}

// Result describes the outcome of a run.
type Result struct {
	// URL is the pull request URL, set on success.
	URL string
	// Stage is the last stage reached.
	Stage Stage
	// Dir is the checkout location.
	Dir string
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	const errCtx = "validating config"

	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"organization", c.Params.Organization},
		{"repository", c.Params.Repository},
		{"commit message", c.Params.CommitMessage},
		{"base branch", c.Params.BaseBranch},
		{"head branch", c.Params.HeadBranch},
		{"pull request title", c.Title},
	}

	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s must be set", r.name))
		}
	}

	for _, n := range []struct {
		name  string
		value string
	}{
		{"organization", c.Params.Organization},
		{"repository", c.Params.Repository},
	} {
		if n.value == "" {
			continue
		}

		if err := checkPathSegment(n.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.name, err))
		}
	}

	if c.CloneURL == "" && c.Credentials.Token == "" {
		errs = append(errs, errors.New("token must be set"))
	}

	if c.CloneURL == "" && c.Credentials.Host == "" {
		errs = append(errs, errors.New("host must be set"))
	}

	if c.Provider == nil {
		errs = append(errs, errors.New("provider must be set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", errCtx, errors.Join(errs...))
	}

	return nil
}

// checkPathSegment rejects names that would resolve
// outside the work directory once joined to it.
func checkPathSegment(name string) error {
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}

	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf(
			"invalid name %q: contains a path separator", name,
		)
	}

	return nil
}

// Run executes the workflow. Each step runs only after
// the previous one succeeded; the first failure stops
// the run with a *StepError and nothing is rolled back.
// The checkout is left on disk.
func Run(ctx context.Context, cfg Config) (Result, error) {
	const errCtx = "creating pull request"

	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	cmd := cfg.Commander
	if cmd == nil {
		cmd = exec.Runner{Timeout: cfg.CommandTimeout}
	}

	p := cfg.Params
	res := Result{
		Stage: StageStart,
		Dir:   filepath.Join(cfg.WorkDir, p.Repository),
	}

	fail := func(step string, err error) (Result, error) {
		slog.Error(
			"step failed",
			"step", step,
			"stage", res.Stage.String(),
			"error", err,
		)

		return res, &StepError{Step: step, Err: err}
	}

	advance := func(s Stage) {
		res.Stage = s
		slog.Info("stage reached", "stage", s.String())
	}

	// Step 1: Prepare workspace.
	if err := git.PrepareWorkspace(res.Dir); err != nil {
		return fail(StepWorkspace, err)
	}

	advance(StageWorkspaceReady)

	// Step 2: Clone.
	cloneURL := cfg.CloneURL
	if cloneURL == "" {
		cloneURL = git.CloneURL(
			cfg.Credentials.User,
			cfg.Credentials.Token,
			cfg.Credentials.Host,
			p.Organization,
			p.Repository,
		)
	}

	repo, err := git.Clone(ctx, cmd, cloneURL, res.Dir)
	if err != nil {
		return fail(StepClone, err)
	}

	advance(StageCloned)

	// Step 3: Create head branch.
	if err := repo.CreateBranch(ctx, p.HeadBranch); err != nil {
		return fail(StepBranch, err)
	}

	advance(StageBranched)

	// Step 4: Apply patch.
	if err := repo.Apply(ctx, cfg.Patch); err != nil {
		return fail(StepApply, err)
	}

	advance(StagePatched)

	// Step 5: Commit and push.
	if err := repo.Commit(ctx, p.CommitMessage, git.Identity{
		Name:  cfg.Credentials.User,
		Email: cfg.Credentials.Email,
	}); err != nil {
		return fail(StepCommit, err)
	}

	if err := repo.Push(ctx, p.HeadBranch); err != nil {
		return fail(StepPush, err)
	}

	advance(StageCommittedPushed)

	// Step 6: Create pull request.
	url, err := cfg.Provider.CreatePR(ctx, git.PullRequest{
		Head:  p.HeadBranch,
		Base:  p.BaseBranch,
		Title: cfg.Title,
		Body:  cfg.Body,
	})
	if err != nil {
		return fail(StepPR, err)
	}

	res.URL = url
	advance(StagePRCreated)

	return res, nil
}
