package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/internal/dashboard"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

// Summarizer computes the dashboard projection.
type Summarizer interface {
	Summary(ctx context.Context, actor auth.Actor, now time.Time) (dashboard.Summary, error)
}

func DashboardSummary(svc Summarizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context(), middleware.ActorFromContext(r.Context()), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
