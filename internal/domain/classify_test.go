package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// day returns a fixed timestamp n days after the test epoch, so cases read
// as "created day 0, reviewed day 1, pushed day 2".
func day(n int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestClassify(t *testing.T) {
	rules := DefaultLabelRules()

	testCases := []struct {
		name     string
		pr       PullRequest
		expected Category
	}{
		{
			name:     "no reviews and no labels is unreviewed",
			pr:       PullRequest{CreatedAt: day(0)},
			expected: CategoryUnreviewed,
		},
		{
			name: "draft with no labels is needs-work regardless of reviews",
			pr: PullRequest{
				Draft:     true,
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
			},
			expected: CategoryNeedsWork,
		},
		{
			name:     "closed without merge and without backport label is needs-champion",
			pr:       PullRequest{Closed: true, CreatedAt: day(0)},
			expected: CategoryNeedsChampion,
		},
		{
			name: "closed draft without merge still goes to needs-champion first",
			pr:   PullRequest{Closed: true, Draft: true, CreatedAt: day(0)},
			// Rule 1 precedes the draft rule.
			expected: CategoryNeedsChampion,
		},
		{
			name: "backport label wins over closed-unmerged",
			pr: PullRequest{
				Closed:    true,
				CreatedAt: day(0),
				Labels:    []string{"needs-backport"},
			},
			expected: CategoryNeedsBackport,
		},
		{
			name: "backport label wins over draft",
			pr: PullRequest{
				Draft:     true,
				CreatedAt: day(0),
				Labels:    []string{"needs-backport"},
			},
			expected: CategoryNeedsBackport,
		},
		{
			name: "merged PR is not needs-champion",
			pr: PullRequest{
				Closed:    true,
				Merged:    true,
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
			},
			expected: CategoryApproved,
		},
		{
			name: "needs-work label on an otherwise clean PR",
			pr: PullRequest{
				CreatedAt: day(0),
				Labels:    []string{"needs-work", "enhancement"},
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
			},
			expected: CategoryNeedsWork,
		},
		{
			name: "unresolved change request is needs-work",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionChangesRequested, SubmittedAt: day(1)},
				},
			},
			expected: CategoryNeedsWork,
		},
		{
			name: "change request resolved by later approval from the same reviewer",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionChangesRequested, SubmittedAt: day(1)},
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(2)},
				},
			},
			expected: CategoryApproved,
		},
		{
			name: "comment does not resolve an earlier change request",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionChangesRequested, SubmittedAt: day(1)},
					{Reviewer: "ana", Decision: DecisionCommented, SubmittedAt: day(2)},
				},
			},
			expected: CategoryNeedsWork,
		},
		{
			name: "approval by a different reviewer does not resolve a change request",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionChangesRequested, SubmittedAt: day(1)},
					{Reviewer: "bob", Decision: DecisionApproved, SubmittedAt: day(2)},
				},
			},
			expected: CategoryNeedsWork,
		},
		{
			name: "dismissed change request does not count as needs-work",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionDismissed, SubmittedAt: day(1)},
				},
			},
			// Still a review event, and no commit after it.
			expected: CategoryApproved,
		},
		{
			name: "needs-decision label on a reviewed PR",
			pr: PullRequest{
				CreatedAt: day(0),
				Labels:    []string{"needs-decision"},
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionCommented, SubmittedAt: day(1)},
				},
			},
			expected: CategoryNeedsDecision,
		},
		{
			name: "needs-decision precedes updated-since-review",
			pr: PullRequest{
				CreatedAt: day(0),
				Labels:    []string{"needs-decision"},
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
				CommitTimes: []time.Time{day(2)},
			},
			expected: CategoryNeedsDecision,
		},
		{
			name: "commit after the latest review is updated-since-review",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
				CommitTimes: []time.Time{day(0), day(2)},
			},
			expected: CategoryUpdatedSinceReview,
		},
		{
			name: "commit before the latest review stays clean",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(2)},
				},
				CommitTimes: []time.Time{day(1)},
			},
			expected: CategoryApproved,
		},
		{
			name: "no commits falls back to creation time",
			pr: PullRequest{
				CreatedAt: day(0),
				Reviews: []ReviewEvent{
					{Reviewer: "ana", Decision: DecisionApproved, SubmittedAt: day(1)},
				},
			},
			expected: CategoryApproved,
		},
		{
			name: "unrecognized labels are ignored",
			pr: PullRequest{
				CreatedAt: day(0),
				Labels:    []string{"bug", "help wanted"},
			},
			expected: CategoryUnreviewed,
		},
	}

	valid := make(map[Category]bool)
	for _, c := range Categories() {
		valid[c] = true
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(&tc.pr, rules)
			assert.Equal(t, tc.expected, got)
			// Totality: the result is always one of the known categories.
			assert.True(t, valid[got], "Classify returned unknown category %q", got)
		})
	}
}

func TestClassifyCustomLabelNames(t *testing.T) {
	rules := LabelRules{
		NeedsWork:     "triage:work",
		NeedsDecision: "triage:decision",
		NeedsChampion: "triage:champion",
		NeedsBackport: "triage:backport",
	}

	pr := PullRequest{
		Closed:    true,
		CreatedAt: day(0),
		Labels:    []string{"triage:backport"},
	}
	assert.Equal(t, CategoryNeedsBackport, Classify(&pr, rules))

	// The default names mean nothing once overridden.
	pr = PullRequest{
		CreatedAt: day(0),
		Labels:    []string{"needs-work"},
	}
	assert.Equal(t, CategoryUnreviewed, Classify(&pr, rules))
}

func TestLastCommitAtFallsBackToCreation(t *testing.T) {
	pr := PullRequest{CreatedAt: day(3)}
	assert.Equal(t, day(3), pr.LastCommitAt())

	pr.CommitTimes = []time.Time{day(5), day(4)}
	assert.Equal(t, day(5), pr.LastCommitAt())
}

func TestParseDecision(t *testing.T) {
	assert.Equal(t, DecisionApproved, ParseDecision("APPROVED"))
	assert.Equal(t, DecisionChangesRequested, ParseDecision("CHANGES_REQUESTED"))
	assert.Equal(t, DecisionDismissed, ParseDecision("DISMISSED"))
	assert.Equal(t, DecisionCommented, ParseDecision("COMMENTED"))
	// Anything unrecognized degrades to a plain comment.
	assert.Equal(t, DecisionCommented, ParseDecision("PENDING"))
}
