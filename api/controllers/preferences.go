package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

const maxPreferenceBody = 8 << 10

// PreferenceStore reads and writes unit preferences.
type PreferenceStore interface {
	Load(ctx context.Context, actor auth.Actor, key string) (json.RawMessage, error)
	Save(ctx context.Context, actor auth.Actor, key string, value json.RawMessage) error
}

type preferenceResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func PreferenceGet(svc PreferenceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		key := chi.URLParam(r, "key")
		value, err := svc.Load(r.Context(), middleware.ActorFromContext(r.Context()), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preferenceResponse{Key: key, Value: value})
	}
}

// PreferencePut stores the raw JSON request body under key.
func PreferencePut(svc PreferenceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPreferenceBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid preference body"))
			return
		}

		key := chi.URLParam(r, "key")
		value := json.RawMessage(raw)
		if err := svc.Save(r.Context(), middleware.ActorFromContext(r.Context()), key, value); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preferenceResponse{Key: key, Value: value})
	}
}
