package votes

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

// PostcodeResolver expands region ids into the union of their postcodes
type PostcodeResolver interface {
	PostcodesFor(ctx context.Context, regionIDs []string) ([]string, error)
}

// GeofenceResolver reads regions straight from the store on every call
type GeofenceResolver struct {
	regions storage.RegionReader
}

// NewGeofenceResolver creates a resolver over regions
func NewGeofenceResolver(regions storage.RegionReader) *GeofenceResolver {
	return &GeofenceResolver{regions: regions}
}

// PostcodesFor unions the postcodes of every region, deduplicated, in region
// order. Any id that does not resolve fails the call with ErrNotFound.
func (g *GeofenceResolver) PostcodesFor(ctx context.Context, regionIDs []string) ([]string, error) {
	byRegion, err := g.fetch(ctx, regionIDs)
	if err != nil {
		return nil, err
	}
	return unionPostcodes(regionIDs, byRegion), nil
}

func (g *GeofenceResolver) fetch(ctx context.Context, regionIDs []string) (map[string][]string, error) {
	if len(regionIDs) == 0 {
		return map[string][]string{}, nil
	}
	regions, err := g.regions.GetRegions(ctx, regionIDs)
	if err != nil {
		return nil, err
	}

	byRegion := make(map[string][]string, len(regions))
	for _, r := range regions {
		byRegion[r.ID] = r.Postcodes
	}
	for _, id := range regionIDs {
		if _, ok := byRegion[id]; !ok {
			return nil, fmt.Errorf("region %s: %w", id, storage.ErrNotFound)
		}
	}
	return byRegion, nil
}

func unionPostcodes(regionIDs []string, byRegion map[string][]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, id := range regionIDs {
		for _, pc := range byRegion[id] {
			if _, dup := seen[pc]; dup {
				continue
			}
			seen[pc] = struct{}{}
			out = append(out, pc)
		}
	}
	return out
}

// voterIn reports whether the vote's caster lives inside the postcode set,
// by either postcode field.
func voterIn(v *models.Vote, postcodes map[string]struct{}) bool {
	if v.Voter == nil {
		return false
	}
	if v.Voter.PostalCode != "" {
		if _, ok := postcodes[v.Voter.PostalCode]; ok {
			return true
		}
	}
	if v.Voter.Woodfordian != "" {
		if _, ok := postcodes[v.Voter.Woodfordian]; ok {
			return true
		}
	}
	return false
}
