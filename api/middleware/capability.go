package middleware

import (
	"net/http"

	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

// RequireCapability rejects requests whose actor's role lacks capability.
// Services repeat the check at their own boundary.
func RequireCapability(capability enums.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ActorFromContext(r.Context()).Require(capability); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
