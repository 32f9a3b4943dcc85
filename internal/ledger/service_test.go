package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/internal/testdb"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/types"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	client *db.Client
	svc    *service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := testdb.New(t)
	logg := testdb.Logger()
	svc, err := NewService(NewRepository(client.DB()), client, NewKeyedLocker(), outbox.NewService(outbox.NewRepository(client.DB()), logg), logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return harness{client: client, svc: impl}
}

func manager() auth.Actor {
	return auth.Actor{StaffID: uuid.New(), Name: "Manager", Role: enums.StaffRoleNurseManager}
}

func intPtr(v int) *int { return &v }

func date(t *testing.T, value string) types.Date {
	t.Helper()
	d, err := types.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func (h harness) seed(t *testing.T, name string, stock int) *models.Medication {
	t.Helper()
	med, err := h.svc.Create(context.Background(), manager(), MedicationInput{
		Name:         name,
		Dosage:       "10 mg",
		RefNumber:    "REF-" + name,
		Category:     "General",
		ExpiryDate:   date(t, "2028-01-01"),
		CurrentStock: intPtr(stock),
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return med
}

func (h harness) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var med models.Medication
	if err := h.client.DB().First(&med, "id = ?", id).Error; err != nil {
		t.Fatalf("load medication: %v", err)
	}
	return med.CurrentStock
}

func (h harness) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := h.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func (h harness) apply(t *testing.T, delta Delta) (*DeltaResult, error) {
	t.Helper()
	var result *DeltaResult
	err := h.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		result, err = h.svc.ApplyDelta(context.Background(), tx, delta)
		return err
	})
	return result, err
}

func TestCreateDefaultsAndConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	med, err := h.svc.Create(ctx, manager(), MedicationInput{
		Name:       "Lasix 40 mg TAB",
		Dosage:     "40 mg",
		RefNumber:  "LSX-40",
		ExpiryDate: date(t, "2028-05-01"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if med.MinThreshold != models.DefaultMinThreshold {
		t.Fatalf("expected default threshold, got %d", med.MinThreshold)
	}
	if med.Kind != enums.MedicationKindDrug || med.CurrentStock != 0 {
		t.Fatalf("unexpected defaults %+v", med)
	}
	if got := h.countEvents(t, enums.EventMedicationUpserted); got != 1 {
		t.Fatalf("expected 1 upserted event, got %d", got)
	}

	_, err = h.svc.Create(ctx, manager(), MedicationInput{
		Name:       "Lasix copy",
		Dosage:     "40 mg",
		RefNumber:  "LSX-40",
		ExpiryDate: date(t, "2028-05-01"),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateValidatesAndAuthorizes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, manager(), MedicationInput{Name: "x", CurrentStock: intPtr(-1)})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	for _, field := range []string{"dosage", "refNumber", "expiryDate", "currentStock"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}

	nurse := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}
	if _, err := h.svc.Create(ctx, nurse, MedicationInput{}); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateKeepsStockUnlessIncluded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	med := h.seed(t, "Captopril", 40)

	input := MedicationInput{
		Name:         "Captopril 25 mg",
		Dosage:       "25 mg",
		RefNumber:    med.RefNumber,
		Category:     "Antihypertensives",
		ExpiryDate:   date(t, "2027-01-01"),
		MinThreshold: intPtr(12),
	}
	updated, err := h.svc.Update(ctx, manager(), med.ID, input)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CurrentStock != 40 || updated.MinThreshold != 12 || updated.Name != "Captopril 25 mg" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if got := h.countEvents(t, enums.EventMedicationStockAdjusted); got != 0 {
		t.Fatalf("expected no stock adjustment, got %d", got)
	}

	input.CurrentStock = intPtr(35)
	updated, err = h.svc.Update(ctx, manager(), med.ID, input)
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if updated.CurrentStock != 35 || h.stock(t, med.ID) != 35 {
		t.Fatalf("expected stock 35, got %d", updated.CurrentStock)
	}
	if got := h.countEvents(t, enums.EventMedicationStockAdjusted); got != 1 {
		t.Fatalf("expected one stock adjustment event, got %d", got)
	}

	if _, err := h.svc.Update(ctx, manager(), uuid.New(), input); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyDeltaStrictAndClamped(t *testing.T) {
	h := newHarness(t)
	med := h.seed(t, "Paracetamol", 12)

	_, err := h.apply(t, Delta{MedicationID: med.ID, Amount: -20, Source: enums.LedgerSourceAdministration})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := h.stock(t, med.ID); got != 12 {
		t.Fatalf("stock mutated on rejection: %d", got)
	}

	result, err := h.apply(t, Delta{MedicationID: med.ID, Amount: 10, Source: enums.LedgerSourceSupply})
	if err != nil {
		t.Fatalf("supply delta: %v", err)
	}
	if result.Previous != 12 || result.Current != 22 || result.Applied() != 10 {
		t.Fatalf("unexpected supply result %+v", result)
	}

	result, err = h.apply(t, Delta{MedicationID: med.ID, Amount: -30, Source: enums.LedgerSourceDisposal})
	if err != nil {
		t.Fatalf("disposal delta: %v", err)
	}
	if result.Current != 0 || result.Applied() != -22 {
		t.Fatalf("expected clamp to zero, got %+v", result)
	}
	if got := h.stock(t, med.ID); got != 0 {
		t.Fatalf("expected stored stock 0, got %d", got)
	}
}

func TestApplyDeltaRejectsStalePreCount(t *testing.T) {
	h := newHarness(t)
	med := h.seed(t, "Lasix", 45)

	_, err := h.apply(t, Delta{MedicationID: med.ID, Amount: -5, Source: enums.LedgerSourceAdministration, ExpectedCurrent: intPtr(44)})
	if !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if _, err := h.apply(t, Delta{MedicationID: uuid.New(), Amount: 1, Source: enums.LedgerSourceSupply}); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.apply(t, Delta{MedicationID: med.ID, Amount: 0, Source: enums.LedgerSourceSupply}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRepositoryApplyStockConditions(t *testing.T) {
	h := newHarness(t)
	med := h.seed(t, "Aspirin", 3)
	repo := NewRepository(h.client.DB())
	ctx := context.Background()

	ok, err := repo.ApplyStock(ctx, StockUpdate{MedicationID: med.ID, Delta: -4, At: fixedNow})
	if err != nil || ok {
		t.Fatalf("strict update below zero must not match: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ApplyStock(ctx, StockUpdate{MedicationID: med.ID, Delta: -4, Clamp: true, At: fixedNow})
	if err != nil || !ok {
		t.Fatalf("clamped update should match: ok=%v err=%v", ok, err)
	}
	if got := h.stock(t, med.ID); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestListAndDispensable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "Lasix", 10)
	h.seed(t, "Empty", 0)
	expired, err := h.svc.Create(ctx, manager(), MedicationInput{
		Name:         "Old Vaccine",
		Dosage:       "Adult Dose",
		RefNumber:    "VAC-OLD",
		Category:     "Adult Vaccine",
		Kind:         enums.MedicationKindVaccineAdult,
		ExpiryDate:   date(t, "2026-03-09"),
		CurrentStock: intPtr(8),
	})
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}

	viewer := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleSupervisor}
	dispensable, err := h.svc.Dispensable(ctx, viewer, fixedNow)
	if err != nil {
		t.Fatalf("dispensable: %v", err)
	}
	if len(dispensable) != 1 || dispensable[0].Name != "Lasix" {
		t.Fatalf("expected only Lasix to be dispensable, got %+v", dispensable)
	}

	kind := enums.MedicationKindVaccineAdult
	vaccines, err := h.svc.List(ctx, viewer, ListFilter{Kind: &kind})
	if err != nil || len(vaccines) != 1 || vaccines[0].ID != expired.ID {
		t.Fatalf("unexpected vaccine listing %+v err=%v", vaccines, err)
	}
	matches, err := h.svc.List(ctx, viewer, ListFilter{Search: "LAS"})
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected case-insensitive match, got %+v err=%v", matches, err)
	}
}

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inserted, err := h.svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if inserted != 5 {
		t.Fatalf("expected 5 seeded medications, got %d", inserted)
	}
	inserted, err = h.svc.SeedDefaults(ctx)
	if err != nil || inserted != 0 {
		t.Fatalf("expected second seed to be a no-op, got %d err=%v", inserted, err)
	}
}
