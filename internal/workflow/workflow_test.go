package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

func TestValidateItemsCollectsEveryProblem(t *testing.T) {
	dup := uuid.New()
	err := ValidateItems([]ItemInput{
		{MedicationID: dup, Quantity: 1, Reason: enums.DisposalReasonExpired},
		{MedicationID: dup, Quantity: 0},
		{Quantity: 2, Reason: "damaged"},
	}, ItemRules{RequireReason: true})

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	problems := typed.Details().(map[string]any)["items"].([]string)
	if len(problems) != 5 {
		t.Fatalf("expected 5 problems, got %d: %v", len(problems), problems)
	}
	if !strings.Contains(problems[0], "items[1]: duplicates items[0]") {
		t.Fatalf("unexpected first problem %q", problems[0])
	}
}

func TestValidateItemsAcceptsSupplyLines(t *testing.T) {
	if err := ValidateItems([]ItemInput{{MedicationID: uuid.New(), Quantity: 10}}, ItemRules{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateItems(nil, ItemRules{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty items, got %v", err)
	}
}

func TestValidateSignature(t *testing.T) {
	if _, err := ValidateSignature("signature", "   "); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err := ValidateSignature("signature", "  N. Huda ")
	if err != nil || got != "N. Huda" {
		t.Fatalf("unexpected signature %q err=%v", got, err)
	}
}

type fakeLookup struct {
	meds []models.Medication
}

func (f fakeLookup) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Medication, error) {
	var out []models.Medication
	for _, med := range f.meds {
		for _, id := range ids {
			if med.ID == id {
				out = append(out, med)
			}
		}
	}
	return out, nil
}

func TestResolveMedications(t *testing.T) {
	known := models.Medication{ID: uuid.New(), Name: "Lasix"}
	lookup := fakeLookup{meds: []models.Medication{known}}

	byID, err := ResolveMedications(context.Background(), lookup, []ItemInput{{MedicationID: known.ID, Quantity: 1}})
	if err != nil || byID[known.ID].Name != "Lasix" {
		t.Fatalf("unexpected resolution %v err=%v", byID, err)
	}
	_, err = ResolveMedications(context.Background(), lookup, []ItemInput{{MedicationID: uuid.New(), Quantity: 1}})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown medication, got %v", err)
	}
}

func TestWithReferenceRetriesCollisions(t *testing.T) {
	attempts := 0
	ref, err := WithReference("REQ", "ux_supply_requests_reference", func(reference string) error {
		attempts++
		if !strings.HasPrefix(reference, "REQ-") || len(reference) != len("REQ-")+6 {
			t.Fatalf("unexpected reference %q", reference)
		}
		if attempts < 3 {
			return errors.New("UNIQUE constraint failed: supply_requests.reference")
		}
		return nil
	})
	if err != nil || attempts != 3 || ref == "" {
		t.Fatalf("expected success on third attempt, got ref=%q attempts=%d err=%v", ref, attempts, err)
	}

	_, err = WithReference("REQ", "ux_supply_requests_reference", func(string) error {
		return errors.New("UNIQUE constraint failed: supply_requests.reference")
	})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict after exhausting attempts, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := WithReference("REQ", "ux", func(string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}

func TestRequireSecondSigner(t *testing.T) {
	id := uuid.New()
	if err := RequireSecondSigner(id, id); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := RequireSecondSigner(id, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
