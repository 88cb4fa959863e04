package access

import (
	"net/http"

	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/models"
)

// Outcome is the terminal result of an access decision
type Outcome int

const (
	Allow Outcome = iota
	RequireAuthentication
	RequireVerification
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RequireAuthentication:
		return "require_authentication"
	case RequireVerification:
		return "require_verification"
	default:
		return "forbidden"
	}
}

// Decision is an Outcome plus a short, log-only explanation
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Allowed reports whether the request may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// WriteDecision renders a denial. It must not be called for Allow.
//
//	RequireAuthentication -> 401 {message}
//	RequireVerification   -> 403 {message, role: "user"}
//	Forbidden             -> 403 {message}
func WriteDecision(w http.ResponseWriter, d Decision) {
	switch d.Outcome {
	case RequireAuthentication:
		httputil.WriteUnauthorized(w, "Authentication required")
	case RequireVerification:
		httputil.WriteRoleRequired(w, "Your account must be verified to do that", string(models.RoleUser))
	default:
		httputil.WriteForbidden(w, "You do not have permission to do that")
	}
}
