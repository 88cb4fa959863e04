package middleware

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/agora/pkg/contextkeys"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

// OrgHeader names the tenant for routes without an {org} variable
const OrgHeader = "X-Organization"

// OrgContextMiddleware resolves the request tenant by slug, taken from the
// {org} route variable or the X-Organization header, and adds it to the
// context. Requests naming no tenant pass through untouched.
func OrgContextMiddleware(orgs storage.OrganizationReader) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := mux.Vars(r)["org"]
			if slug == "" {
				slug = r.Header.Get(OrgHeader)
			}
			if slug == "" {
				next.ServeHTTP(w, r)
				return
			}

			org, err := orgs.GetOrganizationBySlug(r.Context(), slug)
			if errors.Is(err, storage.ErrNotFound) {
				httputil.WriteNotFoundError(w, "Organization not found")
				return
			}
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).WithField("org", slug).Error("organization lookup failed")
				httputil.WriteInternalError(w)
				return
			}

			ctx := contextkeys.WithOrg(r.Context(), org)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
