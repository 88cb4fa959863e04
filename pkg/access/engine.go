package access

import (
	"context"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/rbac"
)

// Request is everything the engine looks at
type Request struct {
	User    *models.User
	Method  string
	Path    string
	OrgSlug string
	Target  *Target
}

// Engine evaluates access decisions. It is safe for concurrent use.
type Engine struct {
	checker  rbac.Checker
	resolver Resolver
	metrics  *observability.Metrics
}

// NewEngine creates an engine. A nil checker uses the default role table;
// metrics may be nil.
func NewEngine(checker rbac.Checker, resolver Resolver, metrics *observability.Metrics) *Engine {
	if checker == nil {
		checker = rbac.NewPermissionChecker(nil)
	}
	return &Engine{checker: checker, resolver: resolver, metrics: metrics}
}

// Decide runs, in order: author fast path, role table, the 401 check, the
// no-bypass-for-reads rule, and the ownership fallback. Errors come only from
// the ownership resolver.
func (e *Engine) Decide(ctx context.Context, req Request) (Decision, error) {
	d, err := e.decide(ctx, req)
	if err != nil {
		return Decision{}, err
	}

	if e.metrics != nil {
		e.metrics.AccessDecisionsTotal.WithLabelValues(d.Outcome.String()).Inc()
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"method":  req.Method,
		"path":    req.Path,
		"outcome": d.Outcome.String(),
	}).Debug(d.Reason)

	return d, nil
}

func (e *Engine) decide(ctx context.Context, req Request) (Decision, error) {
	user := req.User

	if user.Authenticated() && req.Target.OwnedBy(user.ID) {
		return Decision{Outcome: Allow, Reason: "author of target"}, nil
	}

	result := e.checker.CheckPermission(user.EffectiveRoles(), req.Method, req.Path)
	if result.Allowed {
		return Decision{Outcome: Allow, Reason: result.Reason}, nil
	}

	if !user.Authenticated() {
		return Decision{Outcome: RequireAuthentication, Reason: "no identity"}, nil
	}

	verb := rbac.VerbFromMethod(req.Method)
	if !verb.Mutating() {
		return Decision{Outcome: Forbidden, Reason: "reads have no ownership bypass"}, nil
	}

	if e.resolver != nil {
		ok, err := e.resolver.Resolve(ctx, verb, req.OrgSlug, req.Target, user)
		if err != nil {
			return Decision{}, fmt.Errorf("resolve ownership: %w", err)
		}
		if ok {
			return Decision{Outcome: Allow, Reason: "owner or moderator"}, nil
		}
	}

	if !user.HasRole(models.RoleUser) || !user.Verified {
		return Decision{Outcome: RequireVerification, Reason: "unverified or missing user role"}, nil
	}
	return Decision{Outcome: Forbidden, Reason: result.Reason}, nil
}
