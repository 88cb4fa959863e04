// Package votes attaches vote tallies to content on read, geofences voters
// by region postcode, derives issue metadata and records votes.
//
// Tallies are never stored. Every read recomputes them from the vote rows:
//
//	joiner := votes.NewJoiner(store, resolver, metrics)
//	if err := joiner.Attach(ctx, objects, user, regions); err != nil {
//		// the whole join failed; render nothing
//	}
//
// Issues additionally get solution counts and a trending score from
// Aggregator.AttachIssueMetadata.
package votes
