package votes

import "errors"

var (
	// ErrInvalidRegion is returned for a region query that is not a JSON
	// {"_id": ...} object or array of them.
	ErrInvalidRegion = errors.New("invalid region reference")

	// ErrInvalidVote is returned when a vote request fails validation
	ErrInvalidVote = errors.New("invalid vote")
)
