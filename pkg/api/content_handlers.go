package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/agora/pkg/contextkeys"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
	"github.com/platinummonkey/agora/pkg/votes"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ContentStore is what the content handlers read and write
type ContentStore interface {
	storage.ContentReader
	storage.ContentWriter
}

// ContentHandlers serves every content collection (issues, solutions, ...)
// through one set of routes keyed by the {type} segment.
type ContentHandlers struct {
	store      ContentStore
	joiner     *votes.Joiner
	aggregator *votes.Aggregator
}

// NewContentHandlers creates content handlers
func NewContentHandlers(store ContentStore, joiner *votes.Joiner, aggregator *votes.Aggregator) *ContentHandlers {
	return &ContentHandlers{store: store, joiner: joiner, aggregator: aggregator}
}

// RegisterRoutes registers content routes
func (h *ContentHandlers) RegisterRoutes(router *mux.Router) {
	collection := "/{type:" + collectionPattern + "}"
	router.HandleFunc(collection, h.list).Methods(http.MethodGet)
	router.HandleFunc(collection, h.create).Methods(http.MethodPost)
	router.HandleFunc(collection+"/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc(collection+"/{id}", h.update).Methods(http.MethodPut)
	router.HandleFunc(collection+"/{id}", h.remove).Methods(http.MethodDelete)
}

// CreateContentRequest is the body of a create request. Owner and
// organization are never taken from the body.
type CreateContentRequest struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Issues []string          `json:"issues,omitempty"`
	Parent *models.ObjectRef `json:"parent,omitempty"`
}

// UpdateContentRequest is the body of an update request. Absent fields are
// left unchanged.
type UpdateContentRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func kindOf(r *http.Request) models.Kind {
	kind, _ := models.KindForCollection(mux.Vars(r)["type"])
	return kind
}

func (h *ContentHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := kindOf(r)

	limit, err := httputil.ParseQueryInt(r, "limit", defaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	regions, err := votes.ParseRegionRefs(r.URL.Query().Get("region"))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filter := storage.ContentFilter{Kind: kind, Limit: limit, Offset: offset}
	if org := contextkeys.GetOrg(ctx); org != nil {
		filter.OrganizationID = &org.ID
	}

	objs, err := h.store.ListObjects(ctx, filter)
	if err != nil {
		writeError(w, r, err, "Not found")
		return
	}
	if err := h.decorate(r, kind, objs, regions); err != nil {
		writeError(w, r, err, "Region not found")
		return
	}
	if objs == nil {
		objs = []*models.ContentObject{}
	}
	httputil.WriteSuccess(w, objs)
}

func (h *ContentHandlers) get(w http.ResponseWriter, r *http.Request) {
	kind := kindOf(r)
	regions, err := votes.ParseRegionRefs(r.URL.Query().Get("region"))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	obj, ok := h.load(w, r, kind)
	if !ok {
		return
	}
	objs := []*models.ContentObject{obj}
	if err := h.decorate(r, kind, objs, regions); err != nil {
		writeError(w, r, err, "Region not found")
		return
	}
	httputil.WriteSuccess(w, obj)
}

func (h *ContentHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := kindOf(r)

	var req CreateContentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	if len(req.Issues) > 0 && kind != models.KindSolution {
		httputil.WriteBadRequest(w, "only solutions reference issues")
		return
	}

	obj := &models.ContentObject{
		Kind:     kind,
		Title:    req.Title,
		Body:     req.Body,
		IssueIDs: req.Issues,
		Parent:   req.Parent,
	}
	if user := contextkeys.GetUser(ctx); user != nil {
		obj.OwnerID = &user.ID
	}
	if org := contextkeys.GetOrg(ctx); org != nil {
		obj.OrganizationID = &org.ID
	}

	if err := h.store.CreateObject(ctx, obj); err != nil {
		writeError(w, r, err, "Not found")
		return
	}
	httputil.WriteCreated(w, obj)
}

func (h *ContentHandlers) update(w http.ResponseWriter, r *http.Request) {
	kind := kindOf(r)

	var req UpdateContentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		httputil.WriteBadRequest(w, "title must not be empty")
		return
	}

	obj, ok := h.load(w, r, kind)
	if !ok {
		return
	}
	if req.Title != nil {
		obj.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		obj.Body = *req.Body
	}
	if err := h.store.UpdateObject(r.Context(), obj); err != nil {
		writeError(w, r, err, fmt.Sprintf("%s not found", kind))
		return
	}
	httputil.WriteSuccess(w, obj)
}

func (h *ContentHandlers) remove(w http.ResponseWriter, r *http.Request) {
	kind := kindOf(r)
	obj, ok := h.load(w, r, kind)
	if !ok {
		return
	}
	if err := h.store.SoftDeleteObject(r.Context(), obj.ID); err != nil {
		writeError(w, r, err, fmt.Sprintf("%s not found", kind))
		return
	}
	httputil.WriteNoContent(w)
}

// load fetches the {id} object, treating soft-deleted objects and objects
// of another kind as missing.
func (h *ContentHandlers) load(w http.ResponseWriter, r *http.Request, kind models.Kind) (*models.ContentObject, bool) {
	notFound := fmt.Sprintf("%s not found", kind)
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	obj, err := h.store.GetObject(r.Context(), id)
	if err != nil {
		writeError(w, r, err, notFound)
		return nil, false
	}
	if obj.SoftDeleted || obj.Kind != kind {
		httputil.WriteNotFoundError(w, notFound)
		return nil, false
	}
	return obj, true
}

// decorate attaches vote tallies and, for issues, solution metadata
func (h *ContentHandlers) decorate(r *http.Request, kind models.Kind, objs []*models.ContentObject, regions []votes.RegionRef) error {
	ctx := r.Context()
	user := contextkeys.GetUser(ctx)

	if err := h.joiner.Attach(ctx, objs, user, regions); err != nil {
		return err
	}
	if kind == models.KindIssue {
		return h.aggregator.AttachIssueMetadata(ctx, objs, user)
	}
	return nil
}
