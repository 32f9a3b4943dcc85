package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
	"github.com/mashael7430-ux/MPADCS/pkg/types"
)

const refNumberConstraint = "ux_medications_ref_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns medication records and every change to current stock.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Medication, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]models.Medication, error)
	Dispensable(ctx context.Context, actor auth.Actor, now time.Time) ([]models.Medication, error)
	Create(ctx context.Context, actor auth.Actor, input MedicationInput) (*models.Medication, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input MedicationInput) (*models.Medication, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, delta Delta) (*DeltaResult, error)
	SeedDefaults(ctx context.Context) (int, error)
}

// MedicationInput holds the editable fields of a medication. CurrentStock is
// only written when set; a nil MinThreshold falls back to the default on create.
type MedicationInput struct {
	Name         string
	Dosage       string
	RefNumber    string
	Category     string
	ExpiryDate   types.Date
	Kind         enums.MedicationKind
	MinThreshold *int
	CurrentStock *int
	ImageURL     *string
}

// Delta is one signed change to a medication's stock.
type Delta struct {
	MedicationID    uuid.UUID
	Amount          int
	Source          enums.LedgerSource
	ExpectedCurrent *int
	At              time.Time
}

// DeltaResult reports what the ledger actually applied.
type DeltaResult struct {
	MedicationID uuid.UUID
	Previous     int
	Current      int
}

// Applied is the signed change written, which differs from the requested
// amount only when a clamp floored the result.
func (r DeltaResult) Applied() int {
	return r.Current - r.Previous
}

type service struct {
	repo   Repository
	tx     txRunner
	locker Locker
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the ledger service.
func NewService(repo Repository, tx txRunner, locker Locker, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("medication repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if locker == nil {
		return nil, fmt.Errorf("ledger locker required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		locker: locker,
		outbox: publisher,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Medication, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]models.Medication, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid medication kind")
	}
	return s.repo.List(ctx, filter)
}

// Dispensable lists the medications that may be offered for administration.
func (s *service) Dispensable(ctx context.Context, actor auth.Actor, now time.Time) ([]models.Medication, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.Medication, 0, len(all))
	for _, med := range all {
		if med.Dispensable(now) {
			out = append(out, med)
		}
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input MedicationInput) (*models.Medication, error) {
	if err := actor.Require(enums.CapabilityManageInventory); err != nil {
		return nil, err
	}
	if input.Kind == "" {
		input.Kind = enums.MedicationKindDrug
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	medication := &models.Medication{
		MinThreshold: models.DefaultMinThreshold,
		LastUpdated:  now,
	}
	applyDetails(medication, input)
	if input.CurrentStock != nil {
		medication.CurrentStock = *input.CurrentStock
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, medication); err != nil {
			return mapWriteError(err)
		}
		return s.emitUpserted(ctx, tx, actor, medication, true)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithMedicationID(ctx, medication.ID.String())
	s.logg.Info(ctx, "medication created")
	return medication, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input MedicationInput) (*models.Medication, error) {
	if err := actor.Require(enums.CapabilityManageInventory); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication id required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Medication
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		medication, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if input.Kind == "" {
			input.Kind = medication.Kind
		}
		applyDetails(medication, input)
		medication.LastUpdated = now
		if err := repo.UpdateDetails(ctx, medication); err != nil {
			return mapWriteError(err)
		}

		if input.CurrentStock != nil && *input.CurrentStock != medication.CurrentStock {
			previous := medication.CurrentStock
			result, err := s.ApplyDelta(ctx, tx, Delta{
				MedicationID:    id,
				Amount:          *input.CurrentStock - previous,
				Source:          enums.LedgerSourceAdjustment,
				ExpectedCurrent: &previous,
				At:              now,
			})
			if err != nil {
				return err
			}
			medication.CurrentStock = result.Current
			if err := s.emitStockAdjusted(ctx, tx, actor, result, *input.CurrentStock-previous); err != nil {
				return err
			}
		}

		updated = medication
		return s.emitUpserted(ctx, tx, actor, medication, false)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithMedicationID(ctx, id.String())
	s.logg.Info(ctx, "medication updated")
	return updated, nil
}

// ApplyDelta changes one medication's stock inside the caller's transaction.
// Callers must hold the medication lock and pair the change with one audit record.
func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, delta Delta) (*DeltaResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if delta.MedicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication id required")
	}
	if delta.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}
	if !delta.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ledger source")
	}
	at := delta.At
	if at.IsZero() {
		at = s.now().UTC()
	}

	repo := s.repo.WithTx(tx)
	medication, err := repo.FindByID(ctx, delta.MedicationID)
	if err != nil {
		return nil, err
	}
	previous := medication.CurrentStock
	if delta.ExpectedCurrent != nil && *delta.ExpectedCurrent != previous {
		return nil, stockChanged(delta.MedicationID, *delta.ExpectedCurrent, previous)
	}
	if previous+delta.Amount < 0 && !delta.Source.Clamps() {
		return nil, InsufficientStock(delta.MedicationID, previous, -delta.Amount)
	}

	ok, err := repo.ApplyStock(ctx, StockUpdate{
		MedicationID:    delta.MedicationID,
		Delta:           delta.Amount,
		Clamp:           delta.Source.Clamps(),
		ExpectedCurrent: &previous,
		At:              at,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stock changed during update").
			WithDetails(map[string]any{"medicationId": delta.MedicationID})
	}

	current := previous + delta.Amount
	if current < 0 {
		current = 0
	}
	return &DeltaResult{MedicationID: delta.MedicationID, Previous: previous, Current: current}, nil
}

// InsufficientStock builds the strict-path rejection for a medication.
func InsufficientStock(id uuid.UUID, available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"medicationId":   id,
			"currentStock":   available,
			"requestedUnits": requested,
		})
}

func stockChanged(id uuid.UUID, expected, actual int) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "stock changed since it was read").
		WithDetails(map[string]any{
			"medicationId":  id,
			"expectedStock": expected,
			"currentStock":  actual,
		})
}

func (s *service) emitUpserted(ctx context.Context, tx *gorm.DB, actor auth.Actor, m *models.Medication, created bool) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMedicationUpserted,
		AggregateType: enums.AggregateMedication,
		AggregateID:   m.ID,
		Actor:         actor.EventActor(),
		Data: payloads.MedicationUpsertedEvent{
			MedicationID: m.ID,
			Name:         m.Name,
			RefNumber:    m.RefNumber,
			Kind:         m.Kind,
			CurrentStock: m.CurrentStock,
			MinThreshold: m.MinThreshold,
			ExpiryDate:   m.ExpiryDate.Format(time.DateOnly),
			Created:      created,
		},
	})
}

func (s *service) emitStockAdjusted(ctx context.Context, tx *gorm.DB, actor auth.Actor, result *DeltaResult, requested int) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMedicationStockAdjusted,
		AggregateType: enums.AggregateMedication,
		AggregateID:   result.MedicationID,
		Actor:         actor.EventActor(),
		Data: payloads.StockAdjustedEvent{
			MedicationID: result.MedicationID,
			Source:       enums.LedgerSourceAdjustment,
			Requested:    requested,
			Applied:      result.Applied(),
			Previous:     result.Previous,
			Current:      result.Current,
		},
	})
}

func applyDetails(m *models.Medication, input MedicationInput) {
	m.Name = strings.TrimSpace(input.Name)
	m.Dosage = strings.TrimSpace(input.Dosage)
	m.RefNumber = strings.TrimSpace(input.RefNumber)
	m.Category = strings.TrimSpace(input.Category)
	m.ExpiryDate = input.ExpiryDate.Time()
	m.Kind = input.Kind
	m.ImageURL = input.ImageURL
	if input.MinThreshold != nil {
		m.MinThreshold = *input.MinThreshold
	}
}

func validateInput(input MedicationInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.Dosage) == "" {
		details["dosage"] = "required"
	}
	if strings.TrimSpace(input.RefNumber) == "" {
		details["refNumber"] = "required"
	}
	if input.ExpiryDate.IsZero() {
		details["expiryDate"] = "required"
	}
	if input.Kind != "" && !input.Kind.IsValid() {
		details["type"] = "must be drug, vaccine_adult or vaccine_child"
	}
	if input.MinThreshold != nil && *input.MinThreshold < 0 {
		details["minThreshold"] = "must be >= 0"
	}
	if input.CurrentStock != nil && *input.CurrentStock < 0 {
		details["currentStock"] = "must be >= 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid medication").WithDetails(details)
	}
	return nil
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err, refNumberConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reference number already in use")
	}
	return err
}
