package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bigcalc/bigcalc/internal/site"
)

const (
	EventPush   = "push"
	branchRefNS = "refs/heads/"
)

// CI environment variables as set by GitHub Actions.
const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvRef        = "GITHUB_REF"
	EnvRefName    = "GITHUB_REF_NAME"
	EnvSHA        = "GITHUB_SHA"
	EnvRepository = "GITHUB_REPOSITORY"
)

// Event is the source control event that triggered a run.
type Event struct {
	Name       string `json:"name"`
	Ref        string `json:"ref"`
	SHA        string `json:"sha"`
	Repository string `json:"repository,omitempty"`
}

// Branch returns the branch name of a refs/heads/ ref, or "" otherwise.
func (e Event) Branch() string {
	if name, ok := strings.CutPrefix(e.Ref, branchRefNS); ok {
		return name
	}
	return ""
}

func (e Event) IsPush() bool {
	return e.Name == EventPush
}

// ShouldPublish reports whether e is a push to the production branch.
func (e Event) ShouldPublish(productionBranch string) (bool, string) {
	switch {
	case !e.IsPush():
		return false, fmt.Sprintf("event %q is not a push", e.Name)
	case e.Branch() != productionBranch:
		return false, fmt.Sprintf("%s is not the production branch %s", e.Ref, productionBranch)
	}
	return true, ""
}

// ResolveEvent fills the fields missing from flags from the CI environment,
// then from the git checkout in dir. Only the ref is required.
func ResolveEvent(ctx context.Context, flags Event, getenv func(string) string, runner site.Runner, dir string) (Event, error) {
	e := flags
	git := func(args ...string) string {
		out, err := runner.Run(ctx, dir, nil, "git", args...)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}

	if e.Name == "" {
		e.Name = getenv(EnvEventName)
	}
	if e.Name == "" {
		e.Name = EventPush
	}

	if e.Ref == "" {
		e.Ref = getenv(EnvRef)
	}
	if e.Ref == "" {
		if name := getenv(EnvRefName); name != "" {
			e.Ref = branchRefNS + name
		}
	}
	if e.Ref == "" {
		if name := git("rev-parse", "--abbrev-ref", "HEAD"); name != "" && name != "HEAD" {
			e.Ref = branchRefNS + name
		}
	}
	if e.Ref != "" && !strings.HasPrefix(e.Ref, "refs/") {
		e.Ref = branchRefNS + e.Ref
	}

	if e.SHA == "" {
		e.SHA = getenv(EnvSHA)
	}
	if e.SHA == "" {
		e.SHA = git("rev-parse", "HEAD")
	}

	if e.Repository == "" {
		e.Repository = getenv(EnvRepository)
	}
	if e.Repository == "" {
		e.Repository = ParseRepositoryURL(git("config", "--get", "remote.origin.url"))
	}

	if e.Ref == "" {
		return Event{}, errors.New("unable to determine the pushed ref: pass --ref or run inside a git checkout")
	}
	return e, nil
}

// ParseRepositoryURL extracts owner/name from a GitHub remote URL, returning
// "" for anything else.
func ParseRepositoryURL(remote string) string {
	remote = strings.TrimSpace(remote)
	var p string
	switch {
	case strings.HasPrefix(remote, "git@github.com:"):
		p = strings.TrimPrefix(remote, "git@github.com:")
	default:
		u, err := url.Parse(remote)
		if err != nil || u.Hostname() != "github.com" {
			return ""
		}
		p = strings.TrimPrefix(u.Path, "/")
	}
	p = strings.TrimSuffix(strings.TrimSuffix(p, "/"), ".git")
	if strings.Count(p, "/") != 1 {
		return ""
	}
	return p
}
