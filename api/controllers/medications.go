package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/api/validators"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/reconciliation"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/types"
)

type medicationRequest struct {
	Name         string               `json:"name" validate:"required"`
	Dosage       string               `json:"dosage" validate:"required"`
	RefNumber    string               `json:"refNumber" validate:"required"`
	Category     string               `json:"category"`
	ExpiryDate   types.Date           `json:"expiryDate"`
	Kind         enums.MedicationKind `json:"type" validate:"required"`
	MinThreshold *int                 `json:"minThreshold"`
	CurrentStock *int                 `json:"currentStock"`
	ImageURL     *string              `json:"imageUrl"`
}

func (m medicationRequest) toInput() ledger.MedicationInput {
	return ledger.MedicationInput{
		Name:         validators.SanitizeString(m.Name, 200),
		Dosage:       validators.SanitizeString(m.Dosage, 100),
		RefNumber:    validators.SanitizeString(m.RefNumber, 64),
		Category:     validators.SanitizeString(m.Category, 100),
		ExpiryDate:   m.ExpiryDate,
		Kind:         m.Kind,
		MinThreshold: m.MinThreshold,
		CurrentStock: m.CurrentStock,
		ImageURL:     m.ImageURL,
	}
}

// observationRequest carries either a typed count or a tray photo. The image
// is base64 in JSON.
type observationRequest struct {
	ObservedCount *int   `json:"observedCount"`
	Image         []byte `json:"image"`
	MimeType      string `json:"mimeType"`
	FallbackCount *int   `json:"fallbackCount"`
}

func (o observationRequest) source(est estimator.Estimator) (reconciliation.Source, error) {
	hasImage := len(o.Image) > 0
	switch {
	case o.ObservedCount != nil && hasImage:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "send observedCount or image, not both")
	case o.ObservedCount != nil:
		return reconciliation.ManualCount(*o.ObservedCount), nil
	case hasImage:
		return reconciliation.EstimatorSource{
			Estimator: est,
			Image:     o.Image,
			MimeType:  strings.TrimSpace(o.MimeType),
			Fallback:  o.FallbackCount,
		}, nil
	case o.FallbackCount != nil:
		return reconciliation.ManualCount(*o.FallbackCount), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "observedCount or image is required")
}

// Auditor runs an optical stock audit without dispensing.
type Auditor interface {
	Audit(ctx context.Context, actor auth.Actor, medicationID uuid.UUID, source reconciliation.Source) (*reconciliation.AuditResult, error)
}

// MedicationList filters by ?kind= and a case-insensitive ?q= search.
func MedicationList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		filter := ledger.ListFilter{Search: validators.SanitizeString(r.URL.Query().Get("q"), 100)}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, err := enums.ParseMedicationKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			filter.Kind = &kind
		}

		meds, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meds)
	}
}

// MedicationDispensable lists in-date medications with stock on hand.
func MedicationDispensable(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		meds, err := svc.Dispensable(r.Context(), middleware.ActorFromContext(r.Context()), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meds)
	}
}

func MedicationGet(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "medicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		med, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, med)
	}
}

func MedicationCreate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var body medicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		med, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, med)
	}
}

// MedicationUpdate edits details. Stock only changes when currentStock is sent.
func MedicationUpdate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "medicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body medicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		med, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, med)
	}
}

// MedicationAudit runs an optical count against current stock without mutating it.
func MedicationAudit(svc Auditor, est estimator.Estimator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "medicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxObservationBody)
		var body observationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := body.source(est)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Audit(r.Context(), middleware.ActorFromContext(r.Context()), id, source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
