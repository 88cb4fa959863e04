package access

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/rbac"
	"github.com/platinummonkey/agora/pkg/storage"
)

type fakeOrgs struct {
	byID  map[string]*models.Organization
	err   error
	calls int
}

func newFakeOrgs(orgs ...*models.Organization) *fakeOrgs {
	f := &fakeOrgs{byID: make(map[string]*models.Organization)}
	for _, o := range orgs {
		f.byID[o.ID] = o
	}
	return f
}

func (f *fakeOrgs) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if org, ok := f.byID[id]; ok {
		return org, nil
	}
	return nil, fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
}

func (f *fakeOrgs) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, org := range f.byID {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", slug, storage.ErrNotFound)
}

type fakeLoader struct {
	target *Target
	err    error
	seen   []rbac.Resource
}

func (f *fakeLoader) LoadTarget(ctx context.Context, resource rbac.Resource) (*Target, error) {
	f.seen = append(f.seen, resource)
	return f.target, f.err
}

func strPtr(s string) *string { return &s }

// fixture: org "acme" owned by "owner" and moderated by "mod"
func acme() *models.Organization {
	return &models.Organization{
		ID:         "org-acme",
		Slug:       "acme",
		OwnerID:    strPtr("owner"),
		Moderators: []string{"mod"},
	}
}

func verifiedUser(id string, roles ...models.Role) *models.User {
	return &models.User{ID: id, Roles: roles, Verified: true}
}
