package prtemplate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/create_pr/prtemplate"
)

var vars = prtemplate.Vars{
	Organization:  "acme",
	Repository:    "widgets",
	HeadBranch:    "feature/x",
	BaseBranch:    "main",
	CommitMessage: "Bump widgets\n\nLonger description.",
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tpl       prtemplate.Template
		wantTitle string
		wantBody  string
	}{
		{
			name:      "defaults from commit message",
			tpl:       prtemplate.Template{},
			wantTitle: "Bump widgets",
			wantBody:  "Bump widgets\n\nLonger description.",
		},
		{
			name: "placeholders expanded",
			tpl: prtemplate.Template{
				Title: "[{org}/{repo}] {head}",
				Body:  "Merge {head} into {base}\n\n{message}",
			},
			wantTitle: "[acme/widgets] feature/x",
			wantBody: "Merge feature/x into main\n\n" +
				"Bump widgets\n\nLonger description.",
		},
		{
			name: "unknown placeholders kept",
			tpl: prtemplate.Template{
				Title: "fix {ticket}",
				Body:  `{"a": 1}`,
			},
			wantTitle: "fix {ticket}",
			wantBody:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			title, body := tt.tpl.Render(vars)

			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestRender_defaults_keep_braces_verbatim(t *testing.T) {
	t.Parallel()

	v := vars
	v.CommitMessage = "Support {org} and {head} in paths\n\nSee {base}."

	title, body := prtemplate.Template{}.Render(v)

	assert.Equal(t, "Support {org} and {head} in paths", title)
	assert.Equal(t, "Support {org} and {head} in paths\n\nSee {base}.", body)
}

func TestOverride(t *testing.T) {
	t.Parallel()

	base := prtemplate.Template{Title: "file title", Body: "file body"}

	got := base.Override(prtemplate.Template{Title: "flag title"})

	assert.Equal(t, "flag title", got.Title)
	assert.Equal(t, "file body", got.Body)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pr.yaml")

	//nolint:gosec // test file
	err := os.WriteFile(path, []byte(
		"title: \"Update {repo}\"\nbody: |\n  Automated change.\n  Base: {base}\n",
	), 0o600)
	require.NoError(t, err)

	tpl, err := prtemplate.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Update {repo}", tpl.Title)
	assert.Equal(t, "Automated change.\nBase: {base}\n", tpl.Body)

	title, body := tpl.Render(vars)
	assert.Equal(t, "Update widgets", title)
	assert.Equal(t, "Automated change.\nBase: main\n", body)
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	_, err := prtemplate.Load(
		filepath.Join(t.TempDir(), "missing.yaml"),
	)

	assert.ErrorContains(t, err, "loading pr template")
}

func TestLoad_invalid_yaml(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pr.yaml")

	//nolint:gosec // test file
	err := os.WriteFile(path, []byte("title: [unclosed\n"), 0o600)
	require.NoError(t, err)

	_, err = prtemplate.Load(path)

	assert.ErrorContains(t, err, "parse")
}
