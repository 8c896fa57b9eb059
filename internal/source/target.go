package source

import (
	"fmt"
	"strings"
)

// Target identifies one repository to fetch, and optionally build
type Target struct {
	URL string
	Tag string

	name string
}

// NewTarget creates a target. An empty tag selects the default branch.
func NewTarget(url, tag string) (Target, error) {
	name := RepoName(url)
	if name == "" {
		return Target{}, fmt.Errorf("invalid repository url: %q", url)
	}

	return Target{URL: url, Tag: tag, name: name}, nil
}

// Name is the short repository name, e.g. kokkos-kernels
func (t Target) Name() string {
	return t.name
}

// String renders url@tag for logs
func (t Target) String() string {
	if t.Tag == "" {
		return t.URL
	}

	return t.URL + "@" + t.Tag
}

// RepoName derives the short name of a repository from its url: the last
// path segment without a trailing .git
func RepoName(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")

	// scp-like urls: git@github.com:kokkos/kokkos.git
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}

	return strings.TrimSuffix(url, ".git")
}
