// Package models defines the domain types shared by the authorization engine,
// the vote aggregation engine, the store and the HTTP layer.
//
// # Roles
//
// Roles form a closed set (guest, user, endorser, admin). Guest is never stored:
// it is the sentinel returned by (*User).EffectiveRoles when no identity is
// present, so callers can rely on the role set never being empty.
//
// # Object references
//
// Votes and suggestions point at other content through ObjectRef, a tagged
// union of a Kind and an id. Kinds are canonical capitalised names; legacy
// lowercase spellings are still accepted by ParseKind so old rows can be
// normalised on read.
package models
