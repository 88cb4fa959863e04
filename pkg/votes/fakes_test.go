package votes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

type fakeVotes struct {
	mu         sync.Mutex
	votes      []*models.Vote
	err        error
	calls      int
	normalized map[string]models.Kind
}

func (f *fakeVotes) FindVotesByObjects(ctx context.Context, objectIDs []string) ([]*models.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(objectIDs))
	for _, id := range objectIDs {
		wanted[id] = true
	}
	var out []*models.Vote
	for _, v := range f.votes {
		if wanted[v.Object.ID] {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVotes) NormalizeVoteObjectType(ctx context.Context, voteID string, kind models.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.normalized == nil {
		f.normalized = make(map[string]models.Kind)
	}
	f.normalized[voteID] = kind
	return nil
}

type fakeRegions struct {
	regions map[string]*models.Region
	calls   int
	err     error
}

func (f *fakeRegions) GetRegions(ctx context.Context, ids []string) ([]*models.Region, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Region
	for _, id := range ids {
		if r, ok := f.regions[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeContent struct {
	objects   map[string]*models.ContentObject
	solutions []*models.ContentObject
	err       error
}

func (f *fakeContent) GetObject(ctx context.Context, id string) (*models.ContentObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	if obj, ok := f.objects[id]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("object %s: %w", id, storage.ErrNotFound)
}

func (f *fakeContent) ListObjects(ctx context.Context, filter storage.ContentFilter) ([]*models.ContentObject, error) {
	return nil, nil
}

func (f *fakeContent) FindSolutionsByIssues(ctx context.Context, issueIDs []string) ([]*models.ContentObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.solutions, nil
}

func vote(id, userID, objectID string, value models.VoteValue, postcode string) *models.Vote {
	return &models.Vote{
		ID:            id,
		UserID:        userID,
		Object:        models.ObjectRef{Kind: models.KindSolution, ID: objectID},
		Value:         value,
		Voter:         &models.Voter{PostalCode: postcode},
		RawObjectType: string(models.KindSolution),
		CreatedAt:     time.Now(),
	}
}

func strPtr(s string) *string { return &s }
