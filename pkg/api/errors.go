package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
	"github.com/platinummonkey/agora/pkg/votes"
)

// writeError maps domain errors onto status codes. Anything unrecognised
// is logged and reported as a bare 500 so that no partial result leaks.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFoundError(w, notFound)
	case errors.Is(err, votes.ErrInvalidVote), errors.Is(err, votes.ErrInvalidRegion):
		httputil.WriteBadRequest(w, err.Error())
	default:
		observability.FromContext(r.Context()).
			WithError(err).
			WithFields(map[string]interface{}{"method": r.Method, "path": r.URL.Path}).
			Error("request failed")
		httputil.WriteInternalError(w)
	}
}
