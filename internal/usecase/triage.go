// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/triage-tools/github-triage/internal/domain"
	"github.com/triage-tools/github-triage/internal/gateway"
)

// Triager is the use case for building a review-status report.
// It orchestrates listing, assembling and classifying pull requests.
type Triager struct {
	source  gateway.Source
	rules   domain.LabelRules
	workers int
	logger  *log.Logger
}

// NewTriager creates a new Triager instance. workers bounds how many
// pull requests are assembled concurrently.
func NewTriager(source gateway.Source, rules domain.LabelRules, workers int, logger *log.Logger) *Triager {
	if workers < 1 {
		workers = 1
	}
	return &Triager{
		source:  source,
		rules:   rules,
		workers: workers,
		logger:  logger,
	}
}

// Triage builds the review-status report for one project. A failure on a
// single pull request lands in Report.Unavailable instead of aborting
// the run; only a failed listing is fatal.
func (t *Triager) Triage(ctx context.Context, project string) (*domain.Report, error) {
	return t.buildReport(ctx, project, time.Now())
}

func (t *Triager) buildReport(ctx context.Context, project string, now time.Time) (*domain.Report, error) {
	t.logger.Println("Usecase: Listing pull requests...")
	summaries, err := t.source.ListPullRequests(ctx, project)
	if err != nil {
		return nil, err
	}

	t.logger.Printf("Usecase: Assembling %d pull requests with %d workers...", len(summaries), t.workers)

	// Each goroutine writes only its own slot, so no locking is needed.
	results := make([]*domain.PullRequest, len(summaries))
	failures := make([]error, len(summaries))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(t.workers)
	for i, s := range summaries {
		eg.Go(func() error {
			pr, err := t.source.Assemble(egCtx, project, s.Number, s.UpdatedAt)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = pr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	buckets := make(map[domain.Category][]*domain.PullRequest)
	var unavailable []domain.Failure
	for i, pr := range results {
		if pr == nil {
			unavailable = append(unavailable, domain.Failure{
				Number: summaries[i].Number,
				Reason: failureReason(failures[i]),
			})
			continue
		}
		category := domain.Classify(pr, t.rules)
		buckets[category] = append(buckets[category], pr)
	}
	sort.Slice(unavailable, func(i, j int) bool {
		return unavailable[i].Number < unavailable[j].Number
	})

	groups := make([]domain.Group, 0, len(buckets))
	total := 0
	for _, category := range domain.Categories() {
		prs := buckets[category]
		if len(prs) == 0 {
			continue
		}
		sort.Slice(prs, func(i, j int) bool {
			return prs[i].Number < prs[j].Number
		})

		ages := make([]float64, 0, len(prs))
		for _, pr := range prs {
			ages = append(ages, now.Sub(pr.UpdatedAt).Hours()/24)
		}
		median, err := stats.Median(ages)
		if err != nil {
			return nil, fmt.Errorf("failed to compute median age: %w", err)
		}
		p90, err := stats.Percentile(ages, 90)
		if err != nil {
			return nil, fmt.Errorf("failed to compute p90 age: %w", err)
		}

		groups = append(groups, domain.Group{
			Category:      category,
			PRs:           prs,
			MedianAgeDays: median,
			P90AgeDays:    p90,
		})
		total += len(prs)
	}

	t.logger.Printf("Usecase: Classified %d pull requests (%d unavailable).", total, len(unavailable))
	return &domain.Report{
		Project:     project,
		GeneratedAt: now,
		Groups:      groups,
		Unavailable: unavailable,
		Total:       total,
	}, nil
}

// failureReason strips the project#number prefix a FetchError carries,
// since the report already shows the number next to the reason. A source
// that yields neither a snapshot nor an error still needs a reason.
func failureReason(err error) string {
	if err == nil {
		return "snapshot unavailable"
	}
	var fetchErr *gateway.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Err.Error()
	}
	return err.Error()
}
