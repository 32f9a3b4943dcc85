package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/api/responses"
	"github.com/mashael7430-ux/MPADCS/api/validators"
	"github.com/mashael7430-ux/MPADCS/internal/disposal"
	"github.com/mashael7430-ux/MPADCS/internal/supply"
	"github.com/mashael7430-ux/MPADCS/internal/workflow"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

type itemRequest struct {
	MedicationID uuid.UUID            `json:"medicationId"`
	Quantity     int                  `json:"quantity"`
	Reason       enums.DisposalReason `json:"reason,omitempty"`
}

type itemResponse = itemRequest

func toItemInputs(items []itemRequest) []workflow.ItemInput {
	out := make([]workflow.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, workflow.ItemInput{MedicationID: item.MedicationID, Quantity: item.Quantity, Reason: item.Reason})
	}
	return out
}

type supplyCreateRequest struct {
	Items     []itemRequest `json:"items"`
	Signature string        `json:"nurseManagerSignature"`
}

type supplyResolveRequest struct {
	Signature string `json:"pharmacistSignature"`
}

type disposalCreateRequest struct {
	Items     []itemRequest `json:"items"`
	Signature string        `json:"nurseSignature"`
}

type disposalResolveRequest struct {
	Signature string `json:"supervisorSignature"`
}

type prefillRequest struct {
	Mode  enums.DisposalReason `json:"mode"`
	Items []itemRequest        `json:"items"`
}

func SupplyCreate(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply service unavailable"))
			return
		}

		var body supplyCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), supply.CreateInput{
			Items:     toItemInputs(body.Items),
			Signature: body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// SupplyResolve countersigns a pending request and applies every line to stock.
func SupplyResolve(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body supplyResolveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Resolve(r.Context(), middleware.ActorFromContext(r.Context()), id, body.Signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func SupplyGet(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func SupplyList(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply service unavailable"))
			return
		}

		requests, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

func DisposalCreate(svc disposal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disposal service unavailable"))
			return
		}

		var body disposalCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), disposal.CreateInput{
			Items:     toItemInputs(body.Items),
			Signature: body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// DisposalResolve countersigns a pending record and retires its stock, clamped at zero.
func DisposalResolve(svc disposal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disposal service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disposalResolveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Resolve(r.Context(), middleware.ActorFromContext(r.Context()), id, body.Signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func DisposalGet(svc disposal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disposal service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func DisposalList(svc disposal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disposal service unavailable"))
			return
		}

		records, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// DisposalPrefill appends every expired (or surplus) medication not already in
// the draft. Expired mode also lists out-of-stock expired medications with
// quantity 0; those lines must be removed before DisposalCreate accepts the draft.
func DisposalPrefill(svc disposal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disposal service unavailable"))
			return
		}

		var body prefillRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Prefill(r.Context(), middleware.ActorFromContext(r.Context()), body.Mode, toItemInputs(body.Items))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]itemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, itemResponse{MedicationID: item.MedicationID, Quantity: item.Quantity, Reason: item.Reason})
		}
		responses.WriteSuccess(w, map[string]any{"items": out})
	}
}
