package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/internal/testdb"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
)

type fakeMedications struct {
	findFn func(ctx context.Context, id uuid.UUID) (*models.Medication, error)
}

func (f fakeMedications) FindByID(ctx context.Context, id uuid.UUID) (*models.Medication, error) {
	return f.findFn(ctx, id)
}

func TestAuditClassifiesWithoutMutation(t *testing.T) {
	med := &models.Medication{ID: uuid.New(), Name: "Paracetamol 500 mg TAB", Dosage: "500 mg", CurrentStock: 100}
	auditor, err := NewAuditor(fakeMedications{findFn: func(ctx context.Context, id uuid.UUID) (*models.Medication, error) {
		if id != med.ID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
		}
		clone := *med
		return &clone, nil
	}}, testdb.Logger())
	if err != nil {
		t.Fatalf("new auditor: %v", err)
	}
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleSupervisor}
	stub := &stubEstimator{estimate: &estimator.Estimate{Count: 97, Confidence: 0.88}}

	result, err := auditor.Audit(context.Background(), actor, med.ID, EstimatorSource{Estimator: stub, Image: []byte{1}})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if result.Verified || result.Expected != 100 || result.Observed != 97 || result.Discrepancy != -3 {
		t.Fatalf("unexpected audit %+v", result)
	}
	if result.Source != enums.ObservationSourceEstimator {
		t.Fatalf("unexpected source %s", result.Source)
	}

	matching, err := auditor.Audit(context.Background(), actor, med.ID, ManualCount(100))
	if err != nil || !matching.Verified {
		t.Fatalf("expected verified manual audit, got %+v err=%v", matching, err)
	}
	if med.CurrentStock != 100 {
		t.Fatal("audit must not change stock")
	}

	if _, err := auditor.Audit(context.Background(), actor, uuid.New(), ManualCount(1)); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := auditor.Audit(context.Background(), auth.Actor{}, med.ID, ManualCount(1)); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
