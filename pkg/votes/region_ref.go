package votes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RegionRef references a region by id, in the wire shape {"_id": "..."}
type RegionRef struct {
	ID string `json:"_id"`
}

// ParseRegionRefs parses a region query parameter. The value is either a
// single JSON object or an array of them. An empty value means no filter.
func ParseRegionRefs(raw string) ([]RegionRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var refs []RegionRef
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
		}
	} else {
		var ref RegionRef
		if err := json.Unmarshal([]byte(raw), &ref); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
		}
		refs = []RegionRef{ref}
	}

	for _, ref := range refs {
		if ref.ID == "" {
			return nil, fmt.Errorf("%w: missing _id", ErrInvalidRegion)
		}
	}
	return refs, nil
}

// RegionIDs returns the ids of refs in order
func RegionIDs(refs []RegionRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
