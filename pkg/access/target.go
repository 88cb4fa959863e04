package access

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/rbac"
	"github.com/platinummonkey/agora/pkg/storage"
)

// Target is the object a request acts on, reduced to what authorization
// needs. Organizations are targets too: their owner is the OwnerID and their
// own id is the OrganizationID.
type Target struct {
	Kind           models.Kind
	ID             string
	OwnerID        *string
	OrganizationID *string
}

// IsOrganization reports whether the target is an organization itself
func (t *Target) IsOrganization() bool {
	return t != nil && t.Kind == models.KindOrganization
}

// OwnedBy reports whether userID is the target's author
func (t *Target) OwnedBy(userID string) bool {
	return t != nil && t.OwnerID != nil && userID != "" && *t.OwnerID == userID
}

// TargetFromObject builds a Target from stored content
func TargetFromObject(obj *models.ContentObject) *Target {
	return &Target{
		Kind:           obj.Kind,
		ID:             obj.ID,
		OwnerID:        obj.OwnerID,
		OrganizationID: obj.OrganizationID,
	}
}

// TargetFromOrganization builds a Target for an organization route
func TargetFromOrganization(org *models.Organization) *Target {
	id := org.ID
	return &Target{
		Kind:           models.KindOrganization,
		ID:             org.ID,
		OwnerID:        org.OwnerID,
		OrganizationID: &id,
	}
}

// TargetLoader fetches the target of an object route. A nil Target with a
// nil error means the route has no ownable target.
type TargetLoader interface {
	LoadTarget(ctx context.Context, resource rbac.Resource) (*Target, error)
}

// TargetStore is what StoreTargetLoader reads from
type TargetStore interface {
	storage.ContentReader
	storage.OrganizationReader
}

// StoreTargetLoader loads targets from the content and organization tables
type StoreTargetLoader struct {
	store TargetStore
}

// NewStoreTargetLoader creates a loader over store
func NewStoreTargetLoader(store TargetStore) *StoreTargetLoader {
	return &StoreTargetLoader{store: store}
}

// LoadTarget resolves resource to a Target
func (l *StoreTargetLoader) LoadTarget(ctx context.Context, resource rbac.Resource) (*Target, error) {
	if resource.Class != rbac.ClassObject || resource.ID == "" {
		return nil, nil
	}

	switch resource.Type {
	case "organizations":
		org, err := l.store.GetOrganization(ctx, resource.ID)
		if err != nil {
			return nil, err
		}
		return TargetFromOrganization(org), nil
	}

	kind, ok := models.KindForCollection(resource.Type)
	if !ok {
		return nil, nil
	}
	obj, err := l.store.GetObject(ctx, resource.ID)
	if err != nil {
		return nil, err
	}
	if obj.SoftDeleted || obj.Kind != kind {
		return nil, fmt.Errorf("%s %s: %w", resource.Type, resource.ID, storage.ErrNotFound)
	}
	return TargetFromObject(obj), nil
}
