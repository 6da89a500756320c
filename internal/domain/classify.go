package domain

import "time"

// Classify maps one pull request to exactly one category. It is pure: no
// I/O, no clock, deterministic for a given pull request and rule set.
//
// Rules are checked in a fixed order and the first match wins:
//  1. closed without merge and not labeled for backport -> needs-champion
//  2. labeled for backport, regardless of state        -> needs-backport
//  3. draft                                            -> needs-work
//  4. needs-work label, or an unresolved change request -> needs-work
//  5. needs-decision label                             -> needs-decision
//  6. no reviews at all                                -> unreviewed
//  7. commits newer than the latest review             -> updated-since-review
//  8. otherwise                                        -> approved
func Classify(pr *PullRequest, rules LabelRules) Category {
	backport := pr.HasLabel(rules.NeedsBackport)

	switch {
	case pr.Closed && !pr.Merged && !backport:
		return CategoryNeedsChampion
	case backport:
		return CategoryNeedsBackport
	case pr.Draft:
		return CategoryNeedsWork
	case pr.HasLabel(rules.NeedsWork) || hasUnresolvedChangeRequest(pr.Reviews):
		return CategoryNeedsWork
	case pr.HasLabel(rules.NeedsDecision):
		return CategoryNeedsDecision
	case len(pr.Reviews) == 0:
		return CategoryUnreviewed
	case pr.LastCommitAt().After(pr.LastReviewAt()):
		return CategoryUpdatedSinceReview
	default:
		return CategoryApproved
	}
}

// hasUnresolvedChangeRequest reports whether any reviewer's change request
// still stands. A change request is resolved only by a strictly later
// approval from the same reviewer; comments do not supersede it, and
// dismissed reviews are excluded from the computation entirely.
func hasUnresolvedChangeRequest(reviews []ReviewEvent) bool {
	lastRequest := make(map[string]time.Time)
	lastApproval := make(map[string]time.Time)

	for _, ev := range reviews {
		switch ev.Decision {
		case DecisionChangesRequested:
			if ev.SubmittedAt.After(lastRequest[ev.Reviewer]) {
				lastRequest[ev.Reviewer] = ev.SubmittedAt
			}
		case DecisionApproved:
			if ev.SubmittedAt.After(lastApproval[ev.Reviewer]) {
				lastApproval[ev.Reviewer] = ev.SubmittedAt
			}
		}
	}

	for reviewer, requestedAt := range lastRequest {
		if !lastApproval[reviewer].After(requestedAt) {
			return true
		}
	}
	return false
}
