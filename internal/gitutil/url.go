// Package gitutil parses GitHub repository and pull request references.
package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/review-broker/internal/core"
)

var (
	prURLRegex   = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)
	repoURLRegex = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?github\.com/)?([^/\s]+)/([^/\s]+)$`)
	segmentRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ParseRepository accepts "owner/name", "github.com/owner/name" or a full
// https URL (optionally ending in ".git") and returns the repository.
func ParseRepository(ref string) (core.Repository, error) {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, "/")
	ref = strings.TrimSuffix(ref, ".git")

	matches := repoURLRegex.FindStringSubmatch(ref)
	if len(matches) != 3 {
		return core.Repository{}, fmt.Errorf("%w: invalid repository reference %q", core.ErrInvalidInput, ref)
	}

	owner, name := matches[1], matches[2]
	if !validSegment(owner) || !validSegment(name) {
		return core.Repository{}, fmt.Errorf("%w: invalid repository reference %q", core.ErrInvalidInput, ref)
	}
	return core.Repository{Owner: owner, Name: name}, nil
}

func validSegment(s string) bool {
	return segmentRegex.MatchString(s) && s != "." && s != ".."
}

// ParsePullRequestURL parses a GitHub Pull Request URL and extracts the owner, repo, and PR number.
// Supported format: https://github.com/{owner}/{repo}/pull/{number}
func ParsePullRequestURL(url string) (repo core.Repository, prNumber int, err error) {
	url = strings.TrimSuffix(url, "/")

	matches := prURLRegex.FindStringSubmatch(url)
	if len(matches) != 4 {
		return core.Repository{}, 0, fmt.Errorf("%w: invalid pull request URL format: %s", core.ErrInvalidInput, url)
	}

	repo, err = ParseRepository(matches[1] + "/" + matches[2])
	if err != nil {
		return core.Repository{}, 0, err
	}

	prNumber, err = strconv.Atoi(matches[3])
	if err != nil {
		return core.Repository{}, 0, fmt.Errorf("%w: invalid PR number '%s': %v", core.ErrInvalidInput, matches[3], err)
	}

	return repo, prNumber, nil
}
