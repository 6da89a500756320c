// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// Decision is a reviewer's verdict on a pull request.
type Decision string

const (
	DecisionApproved         Decision = "approved"
	DecisionChangesRequested Decision = "changes-requested"
	DecisionCommented        Decision = "commented"
	DecisionDismissed        Decision = "dismissed"
)

// ParseDecision converts a GitHub review state (e.g. "APPROVED") to a Decision.
func ParseDecision(state string) Decision {
	switch state {
	case "APPROVED", "approved":
		return DecisionApproved
	case "CHANGES_REQUESTED", "changes-requested":
		return DecisionChangesRequested
	case "DISMISSED", "dismissed":
		return DecisionDismissed
	default:
		return DecisionCommented
	}
}

// ReviewEvent is a single submitted review on a pull request.
// Ordering by SubmittedAt matters: the latest decision per reviewer wins.
type ReviewEvent struct {
	Reviewer    string    `json:"reviewer"`
	Decision    Decision  `json:"decision"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PullRequest is the assembled state of one pull request for a single
// classification pass. It is immutable once assembled and doubles as the
// cache snapshot, hence the JSON tags.
type PullRequest struct {
	Project     string        `json:"project"`
	Number      int           `json:"number"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	HTMLURL     string        `json:"html_url"`
	Closed      bool          `json:"closed"`
	Merged      bool          `json:"merged"`
	Draft       bool          `json:"draft"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Labels      []string      `json:"labels,omitempty"`
	Reviews     []ReviewEvent `json:"reviews,omitempty"`
	CommitTimes []time.Time   `json:"commit_times,omitempty"`
}

// HasLabel reports whether the pull request carries the named label.
func (pr *PullRequest) HasLabel(name string) bool {
	for _, l := range pr.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// LastCommitAt returns the most recent commit timestamp. A pull request
// with no commits is treated as committed at its creation time.
func (pr *PullRequest) LastCommitAt() time.Time {
	last := pr.CreatedAt
	for _, t := range pr.CommitTimes {
		if t.After(last) {
			last = t
		}
	}
	return last
}

// LastReviewAt returns the most recent review timestamp, or the zero time
// when the pull request has no reviews.
func (pr *PullRequest) LastReviewAt() time.Time {
	var last time.Time
	for _, ev := range pr.Reviews {
		if ev.SubmittedAt.After(last) {
			last = ev.SubmittedAt
		}
	}
	return last
}
