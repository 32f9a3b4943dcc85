package supply

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/testdb"
	"github.com/mashael7430-ux/MPADCS/internal/workflow"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type countingMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
}

func (m *countingMetrics) ObserveResolution(workflow string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolutions == nil {
		m.resolutions = map[string]int{}
	}
	m.resolutions[workflow]++
}

type harness struct {
	client  *db.Client
	svc     *service
	metrics *countingMetrics
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := testdb.New(t)
	logg := testdb.Logger()
	publisher := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	medRepo := ledger.NewRepository(client.DB())
	locker := ledger.NewKeyedLocker()
	ledgerSvc, err := ledger.NewService(medRepo, client, locker, publisher, logg)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(client.DB()),
		Medications: medRepo,
		Ledger:      ledgerSvc,
		Locker:      locker,
		Tx:          client,
		Outbox:      publisher,
		Metrics:     metrics,
		Logger:      logg,
	})
	if err != nil {
		t.Fatalf("supply service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return harness{client: client, svc: impl, metrics: metrics}
}

func (h harness) medication(t *testing.T, name string, stock int) *models.Medication {
	t.Helper()
	med := &models.Medication{
		Name:         name,
		Dosage:       "25 mg",
		RefNumber:    "REF-" + name,
		CurrentStock: stock,
		MinThreshold: 5,
		Category:     "General",
		ExpiryDate:   time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC),
		Kind:         enums.MedicationKindDrug,
		LastUpdated:  fixedNow,
	}
	if err := h.client.DB().Create(med).Error; err != nil {
		t.Fatalf("seed medication: %v", err)
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

func requester() auth.Actor {
	return auth.Actor{StaffID: uuid.New(), Name: "Manager", Role: enums.StaffRoleNurseManager}
}

func pharmacist() auth.Actor {
	return auth.Actor{StaffID: uuid.New(), Name: "Pharmacist", Role: enums.StaffRolePharmacist}
}

func TestCreateAndResolveAppliesEachLineOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lasix := h.medication(t, "Lasix", 5)
	captopril := h.medication(t, "Captopril", 0)

	request, err := h.svc.Create(ctx, requester(), CreateInput{
		Signature: "Manager A.",
		Items: []workflow.ItemInput{
			{MedicationID: lasix.ID, Quantity: 10},
			{MedicationID: captopril.ID, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if request.Status != enums.SupplyStatusPending || len(request.Reference) != len("REQ-XXXXXX") {
		t.Fatalf("unexpected request %+v", request)
	}
	if h.stock(t, lasix.ID) != 5 {
		t.Fatal("creation must not change stock")
	}

	resolved, err := h.svc.Resolve(ctx, pharmacist(), request.ID, "Pharm B.")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != enums.SupplyStatusDelivered || resolved.ReceivedAt == nil || resolved.FulfillerSignature == nil {
		t.Fatalf("unexpected resolved request %+v", resolved)
	}
	if len(resolved.Items) != 2 || resolved.Items[0].MedicationName != "Lasix" {
		t.Fatalf("expected ordered items, got %+v", resolved.Items)
	}
	if h.stock(t, lasix.ID) != 15 || h.stock(t, captopril.ID) != 10 {
		t.Fatalf("expected +10 each, got %d and %d", h.stock(t, lasix.ID), h.stock(t, captopril.ID))
	}

	_, err = h.svc.Resolve(ctx, pharmacist(), request.ID, "Pharm B.")
	if !pkgerrors.Is(err, pkgerrors.CodeAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if h.stock(t, lasix.ID) != 15 {
		t.Fatal("second resolve must not re-apply stock")
	}
	if h.metrics.resolutions["supply"] != 1 {
		t.Fatalf("expected one resolution metric, got %v", h.metrics.resolutions)
	}
}

func TestConcurrentResolveAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	med := h.medication(t, "Paracetamol", 0)
	request, err := h.svc.Create(ctx, requester(), CreateInput{
		Signature: "Manager",
		Items:     []workflow.ItemInput{{MedicationID: med.ID, Quantity: 7}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Resolve(ctx, pharmacist(), request.ID, "Pharm")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.Is(err, pkgerrors.CodeAlreadyResolved):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || h.stock(t, med.ID) != 7 {
		t.Fatalf("expected exactly one resolution, got %d and stock %d", succeeded, h.stock(t, med.ID))
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	med := h.medication(t, "Lasix", 5)

	cases := []struct {
		name  string
		actor auth.Actor
		input CreateInput
		code  pkgerrors.Code
	}{
		{"missing signature", requester(), CreateInput{Items: []workflow.ItemInput{{MedicationID: med.ID, Quantity: 1}}}, pkgerrors.CodeValidation},
		{"no items", requester(), CreateInput{Signature: "M"}, pkgerrors.CodeValidation},
		{"non-positive quantity", requester(), CreateInput{Signature: "M", Items: []workflow.ItemInput{{MedicationID: med.ID, Quantity: -2}}}, pkgerrors.CodeValidation},
		{"unknown medication", requester(), CreateInput{Signature: "M", Items: []workflow.ItemInput{{MedicationID: uuid.New(), Quantity: 1}}}, pkgerrors.CodeValidation},
		{"nurse cannot initiate supply", auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}, CreateInput{Signature: "M", Items: []workflow.ItemInput{{MedicationID: med.ID, Quantity: 1}}}, pkgerrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.Create(ctx, tc.actor, tc.input); !pkgerrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
	list, err := h.svc.List(ctx, pharmacist())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no requests, got %d err=%v", len(list), err)
	}
}

func TestResolveGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	med := h.medication(t, "Lasix", 5)
	admin := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleAdmin}
	request, err := h.svc.Create(ctx, admin, CreateInput{Signature: "Admin", Items: []workflow.ItemInput{{MedicationID: med.ID, Quantity: 3}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := h.svc.Resolve(ctx, admin, request.ID, "Admin"); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("initiator must not resolve, got %v", err)
	}
	if _, err := h.svc.Resolve(ctx, pharmacist(), request.ID, "  "); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for blank signature, got %v", err)
	}
	if _, err := h.svc.Resolve(ctx, requester(), request.ID, "M"); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("nurse manager cannot approve, got %v", err)
	}
	if _, err := h.svc.Resolve(ctx, pharmacist(), uuid.New(), "P"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.stock(t, med.ID) != 5 {
		t.Fatal("guarded resolves must not change stock")
	}
}

func TestListNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	med := h.medication(t, "Lasix", 5)
	for i := 0; i < 3; i++ {
		h.svc.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Hour) }
		if _, err := h.svc.Create(ctx, requester(), CreateInput{Signature: "M", Items: []workflow.ItemInput{{MedicationID: med.ID, Quantity: i + 1}}}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	list, err := h.svc.List(ctx, pharmacist())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Items[0].Quantity != 3 || list[2].Items[0].Quantity != 1 {
		t.Fatalf("expected newest first, got %+v", list)
	}
	got, err := h.svc.Get(ctx, pharmacist(), list[1].ID)
	if err != nil || got.Reference != list[1].Reference {
		t.Fatalf("get mismatch %+v err=%v", got, err)
	}
}
