package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// GitHubURL is the content source identity extracted from a GitHub URL.
type GitHubURL struct {
	Owner string
	Repo  string
	Ref   string
}

// ShareURL is a parsed sidekick share link.
type ShareURL struct {
	Project string
	GitURL  string
}

// ParseGitHubURL extracts {owner, repo, ref} from a GitHub URL. Accepted
// shapes are /<owner>/<repo> (ref defaults to "main") and
// /<owner>/<repo>/tree/<ref>. Anything else, including non-github.com
// origins, returns nil; the caller decides the user-facing behavior.
func ParseGitHubURL(raw string) *GitHubURL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	if u.Scheme != "https" || u.Host != "github.com" {
		return nil
	}
	parts := splitPath(u.Path)
	if len(parts) < 2 {
		return nil
	}
	gh := &GitHubURL{
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
		Ref:   DefaultRef,
	}
	switch {
	case len(parts) == 2:
		// ref stays "main"
	case parts[2] == "tree" && len(parts) > 3:
		// branch names may contain slashes
		gh.Ref = strings.Join(parts[3:], "/")
	default:
		return nil
	}
	if gh.Owner == "" || gh.Repo == "" || gh.Ref == "" {
		return nil
	}
	return gh
}

// IsValidGitHubURL reports whether raw parses into a complete
// (owner, repo, ref) triple.
func IsValidGitHubURL(raw string) bool {
	return ParseGitHubURL(raw) != nil
}

// ParseShareURL recognizes sidekick share links: URLs under the trusted tool
// page carrying project and giturl query parameters. trustedHost may be
// empty to use DefaultShareHost. A URL failing the host/path check is
// invalid regardless of its query content; share links are only trusted
// when they come from the controlled tool page.
func ParseShareURL(raw string, trustedHost string) *ShareURL {
	if trustedHost == "" {
		trustedHost = DefaultShareHost
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	if u.Scheme != "https" || u.Host != trustedHost {
		return nil
	}
	if !strings.HasPrefix(u.Path, ShareToolPath) {
		return nil
	}
	query := u.Query()
	giturl := query.Get("giturl")
	if giturl == "" {
		return nil
	}
	return &ShareURL{
		Project: query.Get("project"),
		GitURL:  giturl,
	}
}

// ComputeInnerHost synthesizes the preview hostname for a content source.
// Pure string template, no lookup; the result is a candidate display link
// only.
func ComputeInnerHost(owner, repo, ref string) string {
	return fmt.Sprintf("%s--%s--%s.%s", ref, repo, owner, InnerHostSuffix)
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
