package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

// RegionStore reads and edits geofence regions
type RegionStore interface {
	storage.RegionReader
	storage.RegionWriter
}

// RegionHandlers edits geofence regions
type RegionHandlers struct {
	store RegionStore
	cache RegionInvalidator
}

// NewRegionHandlers creates region handlers. cache may be nil when the
// region cache is disabled.
func NewRegionHandlers(store RegionStore, cache RegionInvalidator) *RegionHandlers {
	return &RegionHandlers{store: store, cache: cache}
}

// RegisterRoutes registers region routes
func (h *RegionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/regions/{id}/postcodes", h.replacePostcodes).Methods(http.MethodPut)
}

// ReplacePostcodesRequest is the body of a postcode replacement
type ReplacePostcodesRequest struct {
	Postcodes []string `json:"postcodes"`
}

// RegionPostcodesResponse is the postcode set as stored, after duplicates
// and blanks were dropped
type RegionPostcodesResponse struct {
	ID        string   `json:"id"`
	Postcodes []string `json:"postcodes"`
}

func (h *RegionHandlers) replacePostcodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req ReplacePostcodesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Postcodes == nil {
		httputil.WriteBadRequest(w, "postcodes is required")
		return
	}

	if err := h.store.ReplacePostcodes(ctx, id, req.Postcodes); err != nil {
		writeError(w, r, err, "Region not found")
		return
	}

	// stale entries still expire with the cache TTL
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, id); err != nil {
			observability.FromContext(ctx).WithError(err).WithField("region", id).Warn("region cache invalidation failed")
		}
	}

	regions, err := h.store.GetRegions(ctx, []string{id})
	if err != nil {
		writeError(w, r, err, "Region not found")
		return
	}
	if len(regions) == 0 {
		httputil.WriteNotFoundError(w, "Region not found")
		return
	}
	stored := regions[0].Postcodes
	if stored == nil {
		stored = []string{}
	}
	httputil.WriteSuccess(w, RegionPostcodesResponse{ID: id, Postcodes: stored})
}
