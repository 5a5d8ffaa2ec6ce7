package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-broker/internal/core"
)

type diffFetcher struct {
	client *github.Client
	logger *slog.Logger
}

func newDiffFetcher(client *github.Client, logger *slog.Logger) *diffFetcher {
	return &diffFetcher{client: client, logger: logger}
}

// ResolveRevision returns the head commit of the pull request.
func (g *diffFetcher) ResolveRevision(ctx context.Context, repo core.Repository, prNumber int) (string, error) {
	pr, err := g.pullRequest(ctx, repo, prNumber)
	if err != nil {
		return "", err
	}
	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return "", &core.FetchError{Kind: core.FetchNotFound, Op: "get pull request", Err: errors.New("pull request has no head commit")}
	}
	return sha, nil
}

// FetchDiff lists the changed files of the pull request. The pull request and
// its files are fetched concurrently; a head that no longer matches revision
// fails with FetchStaleRevision so a review never mixes two revisions.
func (g *diffFetcher) FetchDiff(ctx context.Context, repo core.Repository, prNumber int, revision string) ([]core.ChangedFile, error) {
	var files []core.ChangedFile
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		pr, err := g.pullRequest(egCtx, repo, prNumber)
		if err != nil {
			return err
		}
		if head := pr.GetHead().GetSHA(); revision != "" && head != revision {
			return &core.FetchError{
				Kind: core.FetchStaleRevision,
				Op:   "get pull request",
				Err:  fmt.Errorf("head moved from %s to %s", revision, head),
			}
		}
		return nil
	})

	eg.Go(func() error {
		var err error
		files, err = g.changedFiles(egCtx, repo, prNumber)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (g *diffFetcher) pullRequest(ctx context.Context, repo core.Repository, prNumber int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, repo.Owner, repo.Name, prNumber)
	if err != nil {
		g.logger.Error("failed to get pull request", "repo", repo.FullName(), "pr", prNumber, "error", err)
		return nil, classify("get pull request", err)
	}
	return pr, nil
}

// changedFiles pages through the files of a pull request; the API returns at
// most 100 per page.
func (g *diffFetcher) changedFiles(ctx context.Context, repo core.Repository, prNumber int) ([]core.ChangedFile, error) {
	var all []core.ChangedFile
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, repo.Owner, repo.Name, prNumber, opts)
		if err != nil {
			g.logger.Error("failed to list files for pull request", "repo", repo.FullName(), "pr", prNumber, "error", err)
			return nil, classify("list files", err)
		}

		for _, file := range files {
			all = append(all, core.ChangedFile{
				Path:  file.GetFilename(),
				Patch: file.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// classify maps go-github errors onto fetch error kinds.
func classify(op string, err error) error {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return &core.FetchError{Kind: core.FetchRateLimited, Op: op, Err: err}
	case errors.As(err, &respErr) && respErr.Response != nil:
		return &core.FetchError{Kind: kindForStatus(respErr.Response.StatusCode), Op: op, Err: err}
	default:
		return &core.FetchError{Kind: core.FetchTransient, Op: op, Err: err}
	}
}

func kindForStatus(code int) core.FetchErrorKind {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return core.FetchNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return core.FetchAuth
	case code == http.StatusTooManyRequests:
		return core.FetchRateLimited
	case code >= 500:
		return core.FetchTransient
	default:
		return core.FetchNotFound
	}
}
