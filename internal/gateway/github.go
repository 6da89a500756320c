// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/triage-tools/github-triage/internal/cache"
	"github.com/triage-tools/github-triage/internal/domain"
)

// Summary identifies a pull request together with the timestamp of its
// last change, which decides whether a cached snapshot can be reused.
type Summary struct {
	Number    int
	UpdatedAt time.Time
}

// Source defines the behavior of a gateway for enumerating a project's
// pull requests and assembling the full state of each one.
type Source interface {
	ListPullRequests(ctx context.Context, project string) ([]Summary, error)
	Assemble(ctx context.Context, project string, number int, updatedAt time.Time) (*domain.PullRequest, error)
}

// FetchError attributes a failure to a single pull request. Number 0
// means the project-level listing itself failed.
type FetchError struct {
	Project string
	Number  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Number == 0 {
		return fmt.Sprintf("%s: %v", e.Project, e.Err)
	}
	return fmt.Sprintf("%s#%d: %v", e.Project, e.Number, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// GitHubGateway is the concrete implementation of the Source interface.
// It consults the snapshot cache before touching the network.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	store         *cache.Store
	closedWindow  time.Duration
	logger        *log.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of
// GitHubGateway. Closed pull requests whose last update is older than
// closedWindow are left out of listings.
func NewGitHubGateway(token string, timeout, closedWindow time.Duration, store *cache.Store, logger *log.Logger) (Source, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	// An empty token means anonymous access; the oauth2 transport would
	// still send an Authorization header, so it is only added when needed.
	var transport http.RoundTripper = rateLimitWaiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		store:         store,
		closedWindow:  closedWindow,
		logger:        logger,
	}, nil
}

func splitProject(project string) (string, string, error) {
	owner, repo, ok := strings.Cut(project, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid project %q, expected owner/repo", project)
	}
	return owner, repo, nil
}

// ListPullRequests enumerates every open pull request plus the closed
// ones updated within the configured window, newest first.
func (g *GitHubGateway) ListPullRequests(ctx context.Context, project string) ([]Summary, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, &FetchError{Project: project, Err: err}
	}

	g.logger.Println("[1/2] Listing open pull requests...")
	open, err := g.listOpen(ctx, owner, repo)
	if err != nil {
		return nil, &FetchError{Project: project, Err: fmt.Errorf("failed to list open pull requests: %w", err)}
	}

	g.logger.Println("[2/2] Listing recently closed pull requests...")
	closed, err := g.listRecentlyClosed(ctx, owner, repo)
	if err != nil {
		return nil, &FetchError{Project: project, Err: fmt.Errorf("failed to list closed pull requests: %w", err)}
	}

	summaries := append(open, closed...)
	g.logger.Printf("Found %d open and %d recently closed pull requests.", len(open), len(closed))
	return summaries, nil
}

func (g *GitHubGateway) listOpen(ctx context.Context, owner, repo string) ([]Summary, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var summaries []Summary
	for {
		prs, resp, err := g.restClient.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, pr := range prs {
			summaries = append(summaries, Summary{
				Number:    pr.GetNumber(),
				UpdatedAt: pr.GetUpdatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of open pull requests...")
	}
	return summaries, nil
}

// listRecentlyClosed walks closed PRs ordered by update time, newest
// first, and stops at the first one older than the window.
func (g *GitHubGateway) listRecentlyClosed(ctx context.Context, owner, repo string) ([]Summary, error) {
	cutoff := time.Now().Add(-g.closedWindow)
	opts := &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var summaries []Summary
	for {
		prs, resp, err := g.restClient.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, pr := range prs {
			if pr.GetUpdatedAt().Time.Before(cutoff) {
				return summaries, nil
			}
			summaries = append(summaries, Summary{
				Number:    pr.GetNumber(),
				UpdatedAt: pr.GetUpdatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of closed pull requests...")
	}
	return summaries, nil
}

// Assemble returns the full state of one pull request, served from the
// cache when the snapshot is still current and fetched otherwise. Fresh
// fetches are recorded in the cache under the listing's timestamp.
func (g *GitHubGateway) Assemble(ctx context.Context, project string, number int, updatedAt time.Time) (*domain.PullRequest, error) {
	if pr, ok := g.store.Fresh(project, number, updatedAt); ok {
		g.logger.Printf("Using cached snapshot for %s#%d", project, number)
		return pr, nil
	}

	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, &FetchError{Project: project, Number: number, Err: err}
	}

	g.logger.Printf("Fetching pull request %s#%d...", project, number)
	detail, _, err := g.restClient.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, &FetchError{Project: project, Number: number, Err: fmt.Errorf("failed to fetch pull request: %w", err)}
	}

	commitTimes, err := g.fetchCommitTimes(ctx, owner, repo, number)
	if err != nil {
		return nil, &FetchError{Project: project, Number: number, Err: fmt.Errorf("failed to fetch commits: %w", err)}
	}

	reviews, err := g.fetchReviews(ctx, owner, repo, number)
	if err != nil {
		return nil, &FetchError{Project: project, Number: number, Err: fmt.Errorf("failed to fetch reviews: %w", err)}
	}

	labels := make([]string, 0, len(detail.Labels))
	for _, l := range detail.Labels {
		labels = append(labels, l.GetName())
	}

	pr := &domain.PullRequest{
		Project:     project,
		Number:      number,
		Title:       detail.GetTitle(),
		Author:      detail.GetUser().GetLogin(),
		HTMLURL:     detail.GetHTMLURL(),
		Closed:      detail.GetState() == "closed",
		Merged:      detail.GetMerged(),
		Draft:       detail.GetDraft(),
		CreatedAt:   detail.GetCreatedAt().Time,
		UpdatedAt:   detail.GetUpdatedAt().Time,
		Labels:      labels,
		Reviews:     reviews,
		CommitTimes: commitTimes,
	}
	g.store.Put(project, number, updatedAt, pr)
	return pr, nil
}

// fetchCommitTimes collects one timestamp per commit, taking the later
// of the author and committer dates.
func (g *GitHubGateway) fetchCommitTimes(ctx context.Context, owner, repo string, number int) ([]time.Time, error) {
	opts := &github.ListOptions{PerPage: 100}
	var times []time.Time
	for {
		commits, resp, err := g.restClient.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, err
		}
		for _, c := range commits {
			commit := c.GetCommit()
			at := commit.GetAuthor().GetDate().Time
			if ct := commit.GetCommitter().GetDate().Time; ct.After(at) {
				at = ct
			}
			if !at.IsZero() {
				times = append(times, at)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of commits...")
	}
	return times, nil
}
