package prtemplate

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
)

// Template holds the unexpanded pull request title and
// body. Empty fields fall back to the commit message.
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Vars are the values substituted for {org}, {repo},
// {head}, {base} and {message} placeholders.
type Vars struct {
	Organization  string
	Repository    string
	HeadBranch    string
	BaseBranch    string
	CommitMessage string
}

// Load reads a YAML template file with optional title
// and body keys.
func Load(path string) (Template, error) {
	const errCtx = "loading pr template"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf(
			"%s: parse %s: %w", errCtx, path, err,
		)
	}

	return tpl, nil
}

// Override returns t with non-empty fields of o
// replacing its own.
func (t Template) Override(o Template) Template {
	if o.Title != "" {
		t.Title = o.Title
	}

	if o.Body != "" {
		t.Body = o.Body
	}

	return t
}

// Render expands placeholders and returns the final
// title and body. Unknown placeholders are preserved
// as-is. An empty title defaults to the first line of
// the commit message and an empty body to the whole
// message; defaults are used verbatim, never expanded.
func (t Template) Render(v Vars) (title string, body string) {
	msg := strings.TrimSpace(v.CommitMessage)

	ctx := map[string]interface{}{
		"org":     v.Organization,
		"repo":    v.Repository,
		"head":    v.HeadBranch,
		"base":    v.BaseBranch,
		"message": msg,
	}

	expand := func(s string) string {
		return fasttemplate.ExecuteStringStd(s, "{", "}", ctx)
	}

	if t.Title == "" {
		title, _, _ = strings.Cut(msg, "\n")
	} else {
		title = expand(t.Title)
	}

	if t.Body == "" {
		body = msg
	} else {
		body = expand(t.Body)
	}

	return strings.TrimSpace(title), body
}
