package maintenance

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
)

const defaultBatchSize = 500

// Store is what the housekeeping jobs need
type Store interface {
	FindLegacyVotes(ctx context.Context, limit int) ([]*models.Vote, error)
	NormalizeVoteObjectType(ctx context.Context, voteID string, kind models.Kind) error
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Sweeper runs the individual jobs
type Sweeper struct {
	store     Store
	logger    *observability.Logger
	batchSize int
}

// NewSweeper creates a sweeper. logger may be nil.
func NewSweeper(store Store, logger *observability.Logger) *Sweeper {
	if logger == nil {
		logger = observability.GetLogger(context.Background())
	}
	return &Sweeper{store: store, logger: logger, batchSize: defaultBatchSize}
}

// NormalizeLegacyVotes rewrites one batch of legacy discriminators and
// returns how many were fixed. The store only hands back rows that match a
// kind; anything else that slips through is logged and skipped.
func (s *Sweeper) NormalizeLegacyVotes(ctx context.Context) (int, error) {
	legacy, err := s.store.FindLegacyVotes(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("find legacy votes: %w", err)
	}

	fixed := 0
	for _, v := range legacy {
		kind, _, err := models.ParseKind(v.RawObjectType)
		if err != nil || kind == models.KindOrganization {
			s.logger.WithFields(map[string]interface{}{
				"vote_id":     v.ID,
				"object_type": v.RawObjectType,
			}).Warn("vote has unrecognised object type")
			continue
		}
		if err := s.store.NormalizeVoteObjectType(ctx, v.ID, kind); err != nil {
			return fixed, fmt.Errorf("normalize vote %s: %w", v.ID, err)
		}
		fixed++
	}
	return fixed, nil
}

// PurgeExpiredTokens deletes expired API tokens
func (s *Sweeper) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpiredTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return n, nil
}
