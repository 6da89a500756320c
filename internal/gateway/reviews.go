package gateway

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/triage-tools/github-triage/internal/domain"
)

// reviewsQuery fetches the full review history of one pull request.
// Dismissed reviews are included on purpose: a dismissed review still
// marks the PR as having been looked at, even though its verdict no
// longer stands.
type reviewsQuery struct {
	Repository struct {
		PullRequest struct {
			Reviews struct {
				PageInfo struct {
					HasNextPage bool
					EndCursor   githubv4.String
				}
				Nodes []struct {
					State       string
					SubmittedAt githubv4.DateTime
					Author      struct {
						Login string
					}
				}
			} `graphql:"reviews(first: 100, after: $cursor, states: [COMMENTED, APPROVED, CHANGES_REQUESTED, DISMISSED])"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (g *GitHubGateway) fetchReviews(ctx context.Context, owner, repo string, number int) ([]domain.ReviewEvent, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"number": githubv4.Int(number),
		"cursor": (*githubv4.String)(nil),
	}

	var events []domain.ReviewEvent
	for {
		var q reviewsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for reviews: %w", err)
		}
		for _, node := range q.Repository.PullRequest.Reviews.Nodes {
			events = append(events, domain.ReviewEvent{
				Reviewer:    node.Author.Login,
				Decision:    domain.ParseDecision(node.State),
				SubmittedAt: node.SubmittedAt.Time,
			})
		}
		if !q.Repository.PullRequest.Reviews.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequest.Reviews.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of reviews...")
	}
	return events, nil
}
