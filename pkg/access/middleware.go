package access

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/agora/pkg/contextkeys"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/rbac"
	"github.com/platinummonkey/agora/pkg/storage"
)

// Middleware runs the engine before any handler. It expects the user and
// organization to have been placed in the context already. Object routes get
// their target loaded first so that authors and moderators can be recognised.
func Middleware(engine *Engine, loader TargetLoader) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := observability.FromContext(ctx)

			req := Request{
				User:   contextkeys.GetUser(ctx),
				Method: r.Method,
				Path:   r.URL.Path,
			}
			if org := contextkeys.GetOrg(ctx); org != nil {
				req.OrgSlug = org.Slug
			}

			if resource, ok := rbac.Classify(r.URL.Path); ok && loader != nil {
				target, err := loader.LoadTarget(ctx, resource)
				if err != nil {
					writeLookupError(w, logger, err)
					return
				}
				req.Target = target
			}

			decision, err := engine.Decide(ctx, req)
			if err != nil {
				writeLookupError(w, logger, err)
				return
			}
			if !decision.Allowed() {
				WriteDecision(w, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeLookupError(w http.ResponseWriter, logger *observability.Logger, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Not found")
		return
	}
	logger.WithError(err).Error("access check failed")
	httputil.WriteInternalError(w)
}
