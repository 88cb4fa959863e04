// Package httputil provides HTTP utilities for standardized request/response handling.
//
// Every error reply has the shape {"message": "..."}; a 403 that asks the
// caller to verify their account additionally carries {"role": "user"}.
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteRoleRequired(w, "verify your account", "user")
//
//	var req CastRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
package httputil
