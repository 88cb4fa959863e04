package votes

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

// minTrendingAge floors a solution's age so brand new solutions do not
// divide by zero.
const minTrendingAge = time.Minute

// Aggregator derives issue metadata from the solutions attached to issues
type Aggregator struct {
	content storage.ContentReader
	joiner  *Joiner
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAggregator creates an aggregator. metrics may be nil.
func NewAggregator(content storage.ContentReader, joiner *Joiner, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		content: content,
		joiner:  joiner,
		metrics: metrics,
		now:     time.Now,
	}
}

// AttachIssueMetadata sets Meta on every issue:
//
//	votes              sum of up/down/total over its solutions
//	solutionCount      number of solutions referencing it
//	totalTrendingScore sum of solution.up / age in hours
//	lastCreated        newest solution createdAt, else the issue's own
//
// A failure leaves every issue untouched.
func (a *Aggregator) AttachIssueMetadata(ctx context.Context, issues []*models.ContentObject, user *models.User) error {
	if len(issues) == 0 {
		return nil
	}

	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "votes.AttachIssueMetadata")
	defer span.End()
	span.SetAttributes(attribute.Int("agora.issues", len(issues)))

	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}

	solutions, err := a.content.FindSolutionsByIssues(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find solutions failed")
		return fmt.Errorf("find solutions: %w", err)
	}
	if err := a.joiner.Attach(ctx, solutions, user, nil); err != nil {
		span.SetStatus(codes.Error, "solution vote join failed")
		return err
	}

	now := a.now()
	for _, issue := range issues {
		issue.Meta = fold(issue, solutions, now)
	}

	span.SetAttributes(attribute.Int("agora.solutions", len(solutions)))
	if a.metrics != nil {
		a.metrics.IssueAggregationDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

func fold(issue *models.ContentObject, solutions []*models.ContentObject, now time.Time) *models.IssueMetadata {
	meta := &models.IssueMetadata{LastCreated: issue.CreatedAt}
	newest := time.Time{}

	for _, sol := range solutions {
		if !sol.References(issue.ID) {
			continue
		}
		meta.SolutionCount++
		if sol.Votes != nil {
			meta.Votes.Up += sol.Votes.Up
			meta.Votes.Down += sol.Votes.Down
			meta.Votes.Total += sol.Votes.Total
			meta.TotalTrendingScore += float64(sol.Votes.Up) / ageInHours(sol.CreatedAt, now)
		}
		if sol.CreatedAt.After(newest) {
			newest = sol.CreatedAt
		}
	}

	if meta.SolutionCount > 0 {
		meta.LastCreated = newest
	}
	return meta
}

func ageInHours(created, now time.Time) float64 {
	age := now.Sub(created)
	if age < minTrendingAge {
		age = minTrendingAge
	}
	return age.Hours()
}
