package votes

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/agora/pkg/async"
	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

const normalizeTimeout = 5 * time.Second

// VoteStore is what the join reads votes from and heals legacy rows through
type VoteStore interface {
	storage.VoteReader
	NormalizeVoteObjectType(ctx context.Context, voteID string, kind models.Kind) error
}

// Joiner attaches vote summaries to content objects
type Joiner struct {
	votes    VoteStore
	resolver PostcodeResolver
	launch   async.Launcher
	metrics  *observability.Metrics
}

// NewJoiner creates a joiner. metrics may be nil; resolver may be nil when no
// caller ever passes a region filter.
func NewJoiner(votes VoteStore, resolver PostcodeResolver, metrics *observability.Metrics) *Joiner {
	return &Joiner{
		votes:    votes,
		resolver: resolver,
		launch:   async.SafeGo,
		metrics:  metrics,
	}
}

// WithLauncher replaces how legacy-row fixes are started, e.g. with a
// shutdown-aware Tracker.
func (j *Joiner) WithLauncher(launch async.Launcher) *Joiner {
	j.launch = launch
	return j
}

// Attach sets Votes on every object. When regions is non-empty only votes
// cast by users whose postcode lies inside those regions are counted. On any
// error no object is modified.
func (j *Joiner) Attach(ctx context.Context, objects []*models.ContentObject, user *models.User, regions []RegionRef) error {
	if len(objects) == 0 {
		return nil
	}

	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "votes.Attach")
	defer span.End()
	span.SetAttributes(
		attribute.Int("agora.objects", len(objects)),
		attribute.Int("agora.regions", len(regions)),
	)

	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		ids = append(ids, obj.ID)
	}

	var (
		fetched   []*models.Vote
		postcodes map[string]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		votes, err := j.votes.FindVotesByObjects(gctx, ids)
		if err != nil {
			return fmt.Errorf("fetch votes: %w", err)
		}
		fetched = votes
		return nil
	})
	if len(regions) > 0 {
		g.Go(func() error {
			if j.resolver == nil {
				return fmt.Errorf("%w: region filtering is not configured", ErrInvalidRegion)
			}
			pcs, err := j.resolver.PostcodesFor(gctx, RegionIDs(regions))
			if err != nil {
				return fmt.Errorf("resolve regions: %w", err)
			}
			postcodes = make(map[string]struct{}, len(pcs))
			for _, pc := range pcs {
				postcodes[pc] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vote join failed")
		if j.metrics != nil {
			j.metrics.VoteJoinErrorsTotal.Inc()
		}
		return err
	}

	j.healLegacyTypes(ctx, fetched)

	counted := fetched
	if postcodes != nil {
		counted = make([]*models.Vote, 0, len(fetched))
		for _, v := range fetched {
			if voterIn(v, postcodes) {
				counted = append(counted, v)
			}
		}
	}

	byObject := make(map[string][]*models.Vote, len(objects))
	for _, v := range counted {
		byObject[v.Object.ID] = append(byObject[v.Object.ID], v)
	}
	for _, obj := range objects {
		obj.Votes = summarize(byObject[obj.ID], user)
	}

	span.SetAttributes(attribute.Int("agora.votes", len(counted)))
	if j.metrics != nil {
		j.metrics.VotesJoinedTotal.Add(float64(len(counted)))
		j.metrics.VoteJoinDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// summarize tallies one object's votes. Zero counts as down.
func summarize(votes []*models.Vote, user *models.User) *models.VoteSummary {
	s := &models.VoteSummary{Total: len(votes)}
	for _, v := range votes {
		if v.Value.Positive() {
			s.Up++
		} else {
			s.Down++
		}
		if user.Authenticated() && v.UserID == user.ID {
			s.CurrentUser = v
		}
	}
	return s
}

// healLegacyTypes rewrites lowercase object types to the canonical kind. The
// writes are not awaited and their failure does not affect the response.
func (j *Joiner) healLegacyTypes(ctx context.Context, votes []*models.Vote) {
	for _, v := range votes {
		kind, legacy, err := models.ParseKind(v.RawObjectType)
		if err != nil || !legacy {
			continue
		}
		voteID := v.ID
		j.launch(ctx, normalizeTimeout, "normalize vote object type", func(ctx context.Context) error {
			err := j.votes.NormalizeVoteObjectType(ctx, voteID, kind)
			if j.metrics != nil {
				result := "ok"
				if err != nil {
					result = "error"
				}
				j.metrics.VoteNormalizationsTotal.WithLabelValues(result).Inc()
			}
			return err
		})
	}
}
