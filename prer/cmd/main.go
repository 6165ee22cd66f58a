// Command create_pr clones a repository, applies a patch
// on a new branch, pushes it and opens a pull request.
// The pull request URL is the only line written to
// stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/byte4ever/create_pr/prer"
	"github.com/byte4ever/create_pr/prtemplate"
)

// envBindings maps configuration keys to the
// environment variables holding credentials.
var envBindings = map[string]string{
	"user":     "GITHUB_USER",
	"email":    "GITHUB_EMAIL",
	"token":    "GITHUB_TOKEN",
	"host":     "GITHUB_HOST",
	"api-host": "GITHUB_API_HOST",
}

// options is decoded from flags, environment and the
// optional config file.
type options struct {
	Organization   string        `mapstructure:"organization"`
	Repository     string        `mapstructure:"repository"`
	CommitMessage  string        `mapstructure:"commit-message"`
	BaseBranch     string        `mapstructure:"base-branch"`
	HeadBranch     string        `mapstructure:"head-branch"`
	InputDiffFile  string        `mapstructure:"input-diff-file"`
	WorkDir        string        `mapstructure:"work-dir"`
	CloneURL       string        `mapstructure:"clone-url"`
	Provider       string        `mapstructure:"provider"`
	PRTitle        string        `mapstructure:"pr-title"`
	PRBody         string        `mapstructure:"pr-body"`
	PRTemplate     string        `mapstructure:"pr-template"`
	CommandTimeout time.Duration `mapstructure:"command-timeout"`
	HTTPTimeout    time.Duration `mapstructure:"http-timeout"`
	LogLevel       string        `mapstructure:"log-level"`

	User    string `mapstructure:"user"`
	Email   string `mapstructure:"email"`
	Token   string `mapstructure:"token"`
	Host    string `mapstructure:"host"`
	APIHost string `mapstructure:"api-host"`
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	var configFile string

	cmd := &cobra.Command{
		Use:   "create_pr",
		Short: "Apply a patch to a repository and open a pull request",
		Long: `create_pr clones ORGANIZATION/REPOSITORY, creates HEAD_BRANCH,
applies the patch read from --input-diff-file (stdin by default), commits,
pushes and opens a pull request against BASE_BRANCH.

Credentials are read from GITHUB_USER, GITHUB_EMAIL, GITHUB_TOKEN,
GITHUB_HOST (default github.com) and GITHUB_API_HOST (default
api.github.com; for GitHub Enterprise use e.g. ghe.example.com/api/v3).

Example:
  git diff | create_pr -o acme -r widgets -c "Bump widgets" --head-branch bump`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v, configFile)
			if err != nil {
				return err
			}

			return run(
				cmd.Context(),
				opts,
				cmd.InOrStdin(),
				cmd.OutOrStdout(),
				cmd.ErrOrStderr(),
			)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(
		&configFile, "config", "",
		"Optional YAML config file",
	)
	fs.StringP(
		"organization", "o", "",
		"Repository user or organization",
	)
	fs.StringP(
		"repository", "r", "",
		"Repository name",
	)
	fs.StringP(
		"commit-message", "c", "",
		"Commit message for the applied diff",
	)
	fs.StringP(
		"base-branch", "b", "main",
		"Base branch name",
	)
	fs.String(
		"head-branch", "",
		"Head branch name",
	)
	fs.String(
		"input-diff-file", "-",
		"Patch file, - for stdin",
	)
	fs.String(
		"work-dir", ".",
		"Directory the repository is cloned into",
	)
	fs.String(
		"clone-url", "",
		"Clone from this URL instead of the authenticated https URL",
	)
	fs.String(
		"provider", "github",
		"Git hosting platform: github, gitlab, or bitbucket",
	)
	fs.String(
		"pr-title", "",
		"Pull request title (default: first line of the commit message)",
	)
	fs.String(
		"pr-body", "",
		"Pull request body (default: the commit message)",
	)
	fs.String(
		"pr-template", "",
		"YAML file with title and body keys",
	)
	fs.Duration(
		"command-timeout", 5*time.Minute,
		"Timeout for each git command",
	)
	fs.Duration(
		"http-timeout", 30*time.Second,
		"Timeout for the pull request API call",
	)
	fs.String(
		"log-level", "info",
		"Log level: debug, info, warn, or error",
	)

	if err := v.BindPFlags(fs); err != nil {
		panic(fmt.Sprintf("binding flags: %v", err))
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			panic(fmt.Sprintf("binding env %s: %v", env, err))
		}
	}

	v.SetDefault("host", "github.com")

	return cmd
}

// loadOptions merges the config file, environment and
// flags into options.
func loadOptions(v *viper.Viper, configFile string) (options, error) {
	const errCtx = "loading configuration"

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return options{}, fmt.Errorf(
				"%s: read %s: %w", errCtx, configFile, err,
			)
		}
	}

	var opts options

	if err := v.Unmarshal(&opts, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	)); err != nil {
		return options{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	opts.Token = strings.TrimSpace(opts.Token)

	return opts, nil
}

// run builds the workflow configuration and executes it.
func run(
	ctx context.Context,
	opts options,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
) error {
	const errCtx = "running create_pr"

	if err := setupLogging(stderr, opts.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	patch, err := readPatch(opts.InputDiffFile, stdin)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	tpl := prtemplate.Template{}

	if opts.PRTemplate != "" {
		tpl, err = prtemplate.Load(opts.PRTemplate)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	title, body := tpl.Override(prtemplate.Template{
		Title: opts.PRTitle,
		Body:  opts.PRBody,
	}).Render(prtemplate.Vars{
		Organization:  opts.Organization,
		Repository:    opts.Repository,
		HeadBranch:    opts.HeadBranch,
		BaseBranch:    opts.BaseBranch,
		CommitMessage: opts.CommitMessage,
	})

	provider, err := newProvider(opts.Provider, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := prer.Config{
		Credentials: prer.Credentials{
			User:    opts.User,
			Email:   opts.Email,
			Token:   opts.Token,
			Host:    opts.Host,
			APIHost: opts.APIHost,
		},
		Params: prer.Params{
			Organization:  opts.Organization,
			Repository:    opts.Repository,
			CommitMessage: opts.CommitMessage,
			BaseBranch:    opts.BaseBranch,
			HeadBranch:    opts.HeadBranch,
		},
		Patch:          patch,
		WorkDir:        opts.WorkDir,
		CloneURL:       opts.CloneURL,
		CommandTimeout: opts.CommandTimeout,
		Title:          title,
		Body:           body,
		Provider:       provider,
	}

	res, err := prer.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"pull request created",
		"url", res.URL,
		"checkout", res.Dir,
	)

	if _, err := fmt.Fprintln(stdout, res.URL); err != nil {
		return fmt.Errorf(
			"%s: write url: %w", errCtx, err,
		)
	}

	return nil
}

// readPatch reads the patch from path, or from stdin
// when path is "-" or empty.
func readPatch(path string, stdin io.Reader) ([]byte, error) {
	const errCtx = "reading patch"

	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: stdin: %w", errCtx, err,
			)
		}

		return data, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return data, nil
}

// setupLogging installs a text slog handler on w.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		w, &slog.HandlerOptions{Level: lvl},
	)))

	return nil
}
