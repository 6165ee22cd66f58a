package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/byte4ever/create_pr/exec"
)

// ErrNothingToCommit is returned by Commit when the
// working tree has no staged changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// Commander runs a command in a directory. exec.Runner
// satisfies it.
type Commander interface {
	Ex(
		ctx context.Context,
		dir string,
		name string,
		arg ...string,
	) (string, error)
}

// Identity is the author used for commits. Empty fields
// fall back to the ambient git configuration.
type Identity struct {
	Name  string
	Email string
}

// Repo is a local clone of a git repository. Create
// with Clone. The clone is left on disk.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string

	cmd Commander
}

// CloneURL builds the authenticated https clone URL
// https://{user}:{token}@{host}/{org}/{repo}.
func CloneURL(
	user string,
	token string,
	host string,
	org string,
	repo string,
) string {
	// Hosts may carry a path prefix (ghe.example.com/git).
	host, prefix, _ := strings.Cut(host, "/")
	if prefix != "" {
		prefix = "/" + strings.Trim(prefix, "/")
	}

	u := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   prefix + "/" + org + "/" + repo,
	}

	if user != "" || token != "" {
		u.User = url.UserPassword(user, token)
	}

	return u.String()
}

// PrepareWorkspace removes dir if it exists so that the
// clone starts from an empty location.
func PrepareWorkspace(dir string) error {
	const errCtx = "preparing workspace"

	if dir == "" || dir == "." || dir == "/" {
		return fmt.Errorf(
			"%s: refusing to remove %q", errCtx, dir,
		)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf(
			"%s: remove dir: %w", errCtx, err,
		)
	}

	return nil
}

// Clone clones repo into dir and returns the checkout.
// dir must not exist or be empty; call PrepareWorkspace
// first.
func Clone(
	ctx context.Context,
	cmd Commander,
	repo string,
	dir string,
) (*Repo, error) {
	const errCtx = "cloning repository"

	remoteName := "origin"

	if _, err := cmd.Ex(
		ctx, "", "git",
		"clone", "--origin", remoteName, repo, dir,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Repo{
		Dir:        dir,
		RemoteName: remoteName,
		cmd:        cmd,
	}, nil
}

// CreateBranch creates branch from the current HEAD and
// checks it out.
func (r *Repo) CreateBranch(
	ctx context.Context,
	branch string,
) error {
	const errCtx = "creating branch"

	if _, err := r.git(
		ctx, "checkout", "-b", branch,
	); err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, branch, err,
		)
	}

	return nil
}

// Apply applies a unified diff to the working tree. The
// patch is written to a temporary file outside the
// checkout and removed afterwards. Whitespace-only patch
// text is a no-op.
func (r *Repo) Apply(
	ctx context.Context,
	patch []byte,
) (retErr error) {
	const errCtx = "applying patch"

	if len(strings.TrimSpace(string(patch))) == 0 {
		slog.Info("empty patch, working tree unchanged")

		return nil
	}

	fi, err := os.CreateTemp("", "create_pr-*.patch")
	if err != nil {
		return fmt.Errorf(
			"%s: create temp file: %w", errCtx, err,
		)
	}

	defer func() {
		if rmErr := os.Remove(fi.Name()); rmErr != nil &&
			!errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn(
				"cannot remove patch file",
				"path", fi.Name(),
				"error", rmErr,
			)
		}
	}()

	if _, err := fi.Write(patch); err != nil {
		_ = fi.Close()

		return fmt.Errorf(
			"%s: write temp file: %w", errCtx, err,
		)
	}

	if err := fi.Close(); err != nil {
		return fmt.Errorf(
			"%s: close temp file: %w", errCtx, err,
		)
	}

	if _, err := r.git(ctx, "apply", fi.Name()); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// IsClean reports whether the working tree has no
// uncommitted changes.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	const errCtx = "checking repo status"

	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(out) == "", nil
}

// Commit stages all changes and commits them. Returns
// ErrNothingToCommit when the tree is clean.
func (r *Repo) Commit(
	ctx context.Context,
	message string,
	id Identity,
) error {
	const errCtx = "committing changes"

	if _, err := r.git(ctx, "add", "."); err != nil {
		return fmt.Errorf(
			"%s: stage: %w", errCtx, err,
		)
	}

	clean, err := r.IsClean(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if clean {
		return fmt.Errorf("%s: %w", errCtx, ErrNothingToCommit)
	}

	var args []string

	if id.Name != "" {
		args = append(args, "-c", "user.name="+id.Name)
	}

	if id.Email != "" {
		args = append(args, "-c", "user.email="+id.Email)
	}

	args = append(args, "commit", "-m", message)

	if _, err := r.git(ctx, args...); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Push pushes branch to the remote. All changes should
// be committed before calling Push.
func (r *Repo) Push(ctx context.Context, branch string) error {
	const errCtx = "pushing branch"

	if _, err := r.git(
		ctx, "push", r.RemoteName, branch,
	); err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, branch, err,
		)
	}

	return nil
}

func (r *Repo) git(
	ctx context.Context,
	args ...string,
) (string, error) {
	cmd := r.cmd
	if cmd == nil {
		cmd = exec.Runner{}
	}

	return cmd.Ex(ctx, r.Dir, "git", args...)
}
