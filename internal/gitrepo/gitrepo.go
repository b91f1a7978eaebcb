// Package gitrepo derives repository defaults from the local git checkout so
// `coderev ask` can be run without naming the repository explicitly.
package gitrepo

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var githubRemoteRegex = regexp.MustCompile(`(?:github\.com[:/])([^/]+/[^/]+?)(?:\.git)?/?$`)

// DefaultResolver derives repo and branch from git commands.
type DefaultResolver struct{}

// NewResolver creates a repository resolver for the working directory.
func NewResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// Repo returns the "owner/name" slug of the origin remote.
func (r *DefaultResolver) Repo(dir string) (string, error) {
	output, err := exec.Command("git", "-C", dir, "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git checkout with an origin remote (pass REPO explicitly)")
	}
	return ParseRemote(strings.TrimSpace(string(output)))
}

// Branch returns the currently checked-out branch.
func (r *DefaultResolver) Branch(dir string) (string, error) {
	output, err := exec.Command("git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("could not determine current branch (pass BRANCH explicitly)")
	}
	branch := strings.TrimSpace(string(output))
	if branch == "" || branch == "HEAD" {
		return "", fmt.Errorf("detached HEAD; pass BRANCH explicitly")
	}
	return branch, nil
}

// ParseRemote extracts "owner/name" from a GitHub remote URL. Both HTTPS and
// SSH forms are accepted:
//
//	https://github.com/user/repo.git -> user/repo
//	git@github.com:user/repo.git    -> user/repo
func ParseRemote(url string) (string, error) {
	match := githubRemoteRegex.FindStringSubmatch(url)
	if match == nil {
		return "", fmt.Errorf("remote %q is not a GitHub repository", url)
	}
	return match[1], nil
}
