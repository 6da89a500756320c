package domain

import "time"

// Category is the review-status bucket a pull request lands in. Every pull
// request maps to exactly one category per classification pass.
type Category string

const (
	// CategoryUnreviewed marks pull requests nobody has reviewed yet.
	CategoryUnreviewed Category = "unreviewed"
	// CategoryNeedsWork marks drafts, explicitly labeled PRs, and PRs with
	// an unresolved change request.
	CategoryNeedsWork Category = "needs-work"
	// CategoryNeedsDecision marks PRs waiting on a maintainer decision.
	CategoryNeedsDecision Category = "needs-decision"
	// CategoryNeedsChampion marks closed-but-unmerged PRs with no owner.
	CategoryNeedsChampion Category = "needs-champion"
	// CategoryNeedsBackport marks PRs labeled for backporting, open or not.
	CategoryNeedsBackport Category = "needs-backport"
	// CategoryUpdatedSinceReview marks PRs with commits newer than the last
	// review, so existing feedback may be stale.
	CategoryUpdatedSinceReview Category = "updated-since-review"
	// CategoryApproved is the catch-all for reviewed, currently clean PRs.
	CategoryApproved Category = "approved"
)

// Categories returns all categories in report display order.
func Categories() []Category {
	return []Category{
		CategoryUnreviewed,
		CategoryNeedsWork,
		CategoryNeedsDecision,
		CategoryNeedsChampion,
		CategoryNeedsBackport,
		CategoryUpdatedSinceReview,
		CategoryApproved,
	}
}

// Title returns the human-readable report heading for a category.
func (c Category) Title() string {
	switch c {
	case CategoryUnreviewed:
		return "Unreviewed"
	case CategoryNeedsWork:
		return "Needs work"
	case CategoryNeedsDecision:
		return "Needs decision"
	case CategoryNeedsChampion:
		return "Needs champion"
	case CategoryNeedsBackport:
		return "Needs backport"
	case CategoryUpdatedSinceReview:
		return "Updated since last review"
	case CategoryApproved:
		return "Approved / other"
	default:
		return string(c)
	}
}

// LabelRules maps the four triage label names onto their categories.
// Labels outside these four are ignored for classification.
type LabelRules struct {
	NeedsWork     string `yaml:"needs_work"`
	NeedsDecision string `yaml:"needs_decision"`
	NeedsChampion string `yaml:"needs_champion"`
	NeedsBackport string `yaml:"needs_backport"`
}

// DefaultLabelRules returns the conventional label names.
func DefaultLabelRules() LabelRules {
	return LabelRules{
		NeedsWork:     "needs-work",
		NeedsDecision: "needs-decision",
		NeedsChampion: "needs-champion",
		NeedsBackport: "needs-backport",
	}
}

// Group is one report section: a category and the pull requests in it,
// sorted by number, with age statistics over days since last update.
type Group struct {
	Category      Category       `json:"category"`
	PRs           []*PullRequest `json:"pull_requests"`
	MedianAgeDays float64        `json:"median_age_days"`
	P90AgeDays    float64        `json:"p90_age_days"`
}

// Failure records a pull request whose state could not be assembled; the
// run continues and reports it as unclassifiable.
type Failure struct {
	Number int    `json:"number"`
	Reason string `json:"reason"`
}

// Report is the categorized snapshot of one classification pass.
type Report struct {
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generated_at"`
	Groups      []Group   `json:"groups"`
	Unavailable []Failure `json:"unavailable,omitempty"`
	Total       int       `json:"total"`
}
