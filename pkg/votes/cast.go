package votes

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

// CastRequest is the body of a vote-or-update request
type CastRequest struct {
	Object         string   `json:"object"`
	ObjectType     string   `json:"objectType"`
	OrganizationID string   `json:"organizationId"`
	VoteValue      *float64 `json:"voteValue"`
}

// CastStore is what casting needs from the store
type CastStore interface {
	storage.ContentReader
	storage.VoteWriter
}

// Caster records votes
type Caster struct {
	store   CastStore
	metrics *observability.Metrics
}

// NewCaster creates a caster. metrics may be nil.
func NewCaster(store CastStore, metrics *observability.Metrics) *Caster {
	return &Caster{store: store, metrics: metrics}
}

// Cast records user's vote, replacing any earlier vote by the same user on
// the same object. created reports whether a new row was inserted.
// Validation failures wrap ErrInvalidVote; an unknown object wraps
// storage.ErrNotFound.
func (c *Caster) Cast(ctx context.Context, user *models.User, req CastRequest) (vote *models.Vote, created bool, err error) {
	if !user.Authenticated() {
		return nil, false, fmt.Errorf("%w: no voter", ErrInvalidVote)
	}
	if req.Object == "" {
		return nil, false, fmt.Errorf("%w: object is required", ErrInvalidVote)
	}
	if req.VoteValue == nil {
		return nil, false, fmt.Errorf("%w: voteValue is required", ErrInvalidVote)
	}
	value, err := models.ParseVoteValue(*req.VoteValue)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidVote, err)
	}
	kind, _, err := models.ParseKind(req.ObjectType)
	if err != nil || kind == models.KindOrganization {
		return nil, false, fmt.Errorf("%w: objectType %q cannot be voted on", ErrInvalidVote, req.ObjectType)
	}

	obj, err := c.store.GetObject(ctx, req.Object)
	if err != nil {
		return nil, false, err
	}
	if obj.SoftDeleted {
		return nil, false, fmt.Errorf("object %s: %w", req.Object, storage.ErrNotFound)
	}
	if obj.Kind != kind {
		return nil, false, fmt.Errorf("%w: object %s is a %s, not a %s", ErrInvalidVote, obj.ID, obj.Kind, kind)
	}

	orgID := req.OrganizationID
	if obj.OrganizationID != nil {
		if orgID != "" && orgID != *obj.OrganizationID {
			return nil, false, fmt.Errorf("%w: object does not belong to organization %s", ErrInvalidVote, orgID)
		}
		orgID = *obj.OrganizationID
	}

	vote = &models.Vote{
		UserID:         user.ID,
		Object:         obj.Ref(),
		OrganizationID: orgID,
		Value:          value,
	}
	created, err = c.store.UpsertVote(ctx, vote)
	if err != nil {
		return nil, false, err
	}

	if c.metrics != nil {
		result := "updated"
		if created {
			result = "created"
		}
		c.metrics.VotesCastTotal.WithLabelValues(result).Inc()
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"object":  vote.Object.String(),
		"created": created,
	}).Debug("vote recorded")

	return vote, created, nil
}
