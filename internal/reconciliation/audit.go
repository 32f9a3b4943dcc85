package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

type medicationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Medication, error)
}

// AuditResult is an on-hand count check that changes nothing.
type AuditResult struct {
	MedicationID    uuid.UUID               `json:"medicationId"`
	MedicationName  string                  `json:"medicationName"`
	Source          enums.ObservationSource `json:"observationSource"`
	Confidence      *float64                `json:"confidence,omitempty"`
	IdentifiedLabel string                  `json:"identifiedMedication,omitempty"`
	Warning         string                  `json:"warning,omitempty"`
	Classification
}

// Auditor compares a medication's ledger stock with an observed count.
type Auditor struct {
	medications medicationReader
	logg        *logger.Logger
}

// NewAuditor wires the optical inventory audit.
func NewAuditor(medications medicationReader, logg *logger.Logger) (*Auditor, error) {
	if medications == nil {
		return nil, fmt.Errorf("medication reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Auditor{medications: medications, logg: logg}, nil
}

// Audit observes the current on-hand count and classifies it against stock.
func (a *Auditor) Audit(ctx context.Context, actor auth.Actor, medicationID uuid.UUID, source Source) (*AuditResult, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if medicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication id required")
	}
	if source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "observation required")
	}

	med, err := a.medications.FindByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	outcome := source.Observe(ctx, Expectation{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Dosage:         med.Dosage,
		Expected:       med.CurrentStock,
	})
	observed, err := outcome.Value()
	if err != nil {
		return nil, err
	}

	result := &AuditResult{
		MedicationID:    med.ID,
		MedicationName:  med.Name,
		Source:          outcome.Source,
		Confidence:      outcome.Confidence,
		IdentifiedLabel: outcome.IdentifiedLabel,
		Warning:         outcome.Warning,
		Classification:  Classify(med.CurrentStock, observed),
	}
	if !result.Verified {
		logCtx := a.logg.WithFields(ctx, map[string]any{
			"medication_id": med.ID.String(),
			"expected":      result.Expected,
			"observed":      result.Observed,
		})
		a.logg.Warn(logCtx, "inventory audit mismatch")
	}
	return result, nil
}
