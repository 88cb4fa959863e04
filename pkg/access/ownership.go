package access

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/rbac"
	"github.com/platinummonkey/agora/pkg/storage"
)

// Resolver decides delegated standing for a mutation
type Resolver interface {
	Resolve(ctx context.Context, verb rbac.Verb, orgSlug string, target *Target, user *models.User) (bool, error)
}

// OwnershipResolver grants mutations to owners and moderators of the
// organization responsible for the target.
type OwnershipResolver struct {
	orgs storage.OrganizationReader
}

// NewOwnershipResolver creates a resolver reading organizations from orgs
func NewOwnershipResolver(orgs storage.OrganizationReader) *OwnershipResolver {
	return &OwnershipResolver{orgs: orgs}
}

// Resolve reports whether user has owner or moderator standing for verb.
//
//   - post: the organization named by the request slug.
//   - put: organizations may only be edited by their owner or an admin;
//     other content is checked against the organization it references.
//   - delete: like put, except an organization target is checked against
//     the request slug.
//
// Content with neither an organization nor an owner is admin-only.
// A slug that does not resolve fails with storage.ErrNotFound.
func (r *OwnershipResolver) Resolve(ctx context.Context, verb rbac.Verb, orgSlug string, target *Target, user *models.User) (bool, error) {
	if !user.Authenticated() {
		return false, nil
	}

	switch verb {
	case rbac.VerbPost:
		return r.standingBySlug(ctx, orgSlug, user)

	case rbac.VerbPut:
		if target.IsOrganization() {
			return user.IsAdmin() || target.OwnedBy(user.ID), nil
		}
		return r.standingByReference(ctx, target, user)

	case rbac.VerbDelete:
		if target.IsOrganization() {
			return r.standingBySlug(ctx, orgSlug, user)
		}
		return r.standingByReference(ctx, target, user)
	}

	return false, nil
}

func (r *OwnershipResolver) standingBySlug(ctx context.Context, slug string, user *models.User) (bool, error) {
	if slug == "" {
		return false, fmt.Errorf("no organization for request: %w", storage.ErrNotFound)
	}
	org, err := r.orgs.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return org.HasStanding(user.ID), nil
}

// standingByReference fetches the organization the target points at rather
// than trusting any embedded copy, which may be stale or missing.
func (r *OwnershipResolver) standingByReference(ctx context.Context, target *Target, user *models.User) (bool, error) {
	if target == nil {
		return false, nil
	}
	if target.OrganizationID == nil {
		if target.OwnerID == nil {
			return user.IsAdmin(), nil
		}
		return false, nil
	}

	org, err := r.orgs.GetOrganization(ctx, *target.OrganizationID)
	if err != nil {
		return false, err
	}
	return org.HasStanding(user.ID), nil
}
