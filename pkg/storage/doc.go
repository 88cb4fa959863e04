// Package storage defines the persistence contracts used by the access and
// vote engines.
//
// The contracts are split by concern (OrganizationReader, ContentReader,
// VoteReader, ...) so each engine depends only on what it reads. Store
// composes all of them and is implemented by package sqlstore, which runs on
// PostgreSQL in production and SQLite for development and tests.
//
// # Errors
//
// Implementations return ErrNotFound for missing rows and wrap every backend
// failure with ErrUnavailable:
//
//	org, err := store.GetOrganizationBySlug(ctx, slug)
//	switch {
//	case errors.Is(err, storage.ErrNotFound):
//		// 404
//	case err != nil:
//		// 500
//	}
//
// # Votes
//
// The votes table carries a UNIQUE(object_id, user_id) constraint. UpsertVote
// always attempts the insert first and falls back to an update when the
// constraint fires, so two concurrent votes from the same user converge on a
// single row without any application-level locking.
package storage
