package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/agora/pkg/contextkeys"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/middleware"
	"github.com/platinummonkey/agora/pkg/votes"
)

// VoteHandlers handles vote casting
type VoteHandlers struct {
	caster  *votes.Caster
	limiter *middleware.RateLimitMiddleware
}

// NewVoteHandlers creates vote handlers. A nil limiter disables rate
// limiting.
func NewVoteHandlers(caster *votes.Caster, limiter *middleware.RateLimiter) *VoteHandlers {
	return &VoteHandlers{caster: caster, limiter: middleware.NewRateLimitMiddleware(limiter)}
}

// RegisterRoutes registers vote routes
func (h *VoteHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/votes", h.limiter.Handler(http.HandlerFunc(h.cast))).Methods(http.MethodPost)
}

// cast records the caller's vote, updating it if one already exists.
// 201 means a new vote, 200 an update.
func (h *VoteHandlers) cast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req votes.CastRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if org := contextkeys.GetOrg(ctx); org != nil && req.OrganizationID == "" {
		req.OrganizationID = org.ID
	}

	vote, created, err := h.caster.Cast(ctx, contextkeys.GetUser(ctx), req)
	if err != nil {
		writeError(w, r, err, "Object not found")
		return
	}
	if created {
		httputil.WriteCreated(w, vote)
		return
	}
	httputil.WriteSuccess(w, vote)
}
