package modelexec

import (
	"context"

	"github.com/rfoley/loom/internal/budget"
	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/orchestrator"
)

// Router dispatches task execution by model: local models go to the
// Ollama backend, everything else to Anthropic. Either backend may be
// nil, in which case requests routed to it fail with a validation
// error instead of a panic.
type Router struct {
	hosted orchestrator.ModelExecutor
	local  orchestrator.ModelExecutor
}

// NewRouter creates a Router over the two backends.
func NewRouter(hosted, local orchestrator.ModelExecutor) *Router {
	return &Router{hosted: hosted, local: local}
}

// Execute routes the request to the backend serving its model.
func (r *Router) Execute(ctx context.Context, req orchestrator.ExecRequest) (*orchestrator.ExecResult, error) {
	if budget.IsLocal(req.Model) {
		if r.local == nil {
			return nil, loomerrors.New(loomerrors.CodeValidation,
				"no local backend configured for model %s", req.Model)
		}
		return r.local.Execute(ctx, req)
	}
	if r.hosted == nil {
		return nil, loomerrors.New(loomerrors.CodeValidation,
			"no hosted backend configured for model %s", req.Model)
	}
	return r.hosted.Execute(ctx, req)
}
