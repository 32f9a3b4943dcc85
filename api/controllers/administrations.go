package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/api/validators"
	"github.com/mashael7430-ux/MPADCS/internal/administration"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

// base64 inflates the image by 4/3; the rest of the body is small.
const maxObservationBody = estimator.MaxImageBytes*4/3 + 64<<10

type dispenseRequest struct {
	MedicationID uuid.UUID `json:"medicationId"`
	Quantity     int       `json:"quantity"`
	PatientID    string    `json:"patientId"`
	Notes        *string   `json:"notes"`
	observationRequest
}

// AdministrationCreate records one dispense against a reconciled count.
func AdministrationCreate(svc administration.Service, est estimator.Estimator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "administration service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxObservationBody)
		var body dispenseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := body.source(est)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Dispense(r.Context(), middleware.ActorFromContext(r.Context()), administration.DispenseInput{
			MedicationID: body.MedicationID,
			Quantity:     body.Quantity,
			PatientID:    validators.SanitizeString(body.PatientID, 64),
			Notes:        body.Notes,
			Observation:  source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdministrationHistory lists log entries newest first, filtered by ?q= and capped by ?limit=.
func AdministrationHistory(svc administration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "administration service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", administration.DefaultHistoryLimit, 1, administration.MaxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), middleware.ActorFromContext(r.Context()), administration.HistoryFilter{
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 100),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func PatientList(svc administration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "administration service unavailable"))
			return
		}

		patients, err := svc.Patients(r.Context(), middleware.ActorFromContext(r.Context()), validators.SanitizeString(r.URL.Query().Get("q"), 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, patients)
	}
}
