package administration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/reconciliation"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type medicationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Medication, error)
}

type stockLedger interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, delta ledger.Delta) (*ledger.DeltaResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type dispenseMetrics interface {
	ObserveDispense(verified bool, source string)
	ObserveRejection(reason string)
}

// Service records dispenses and answers log queries.
type Service interface {
	Dispense(ctx context.Context, actor auth.Actor, input DispenseInput) (*DispenseResult, error)
	History(ctx context.Context, actor auth.Actor, filter HistoryFilter) ([]models.AdministrationLogEntry, error)
	Patients(ctx context.Context, actor auth.Actor, search string) ([]PatientSummary, error)
}

// DispenseInput is one administration to a patient. Observation supplies the
// independently counted post-dispense stock.
type DispenseInput struct {
	MedicationID uuid.UUID
	Quantity     int
	PatientID    string
	Notes        *string
	Observation  reconciliation.Source
}

// DispenseResult is a committed administration.
type DispenseResult struct {
	Entry          *models.AdministrationLogEntry `json:"entry"`
	Classification reconciliation.Classification  `json:"reconciliation"`
	CurrentStock   int                            `json:"currentStock"`
}

// PatientSummary groups every administration to one patient.
type PatientSummary struct {
	PatientID          string    `json:"patientId"`
	Medications        []string  `json:"medications"`
	TotalDoses         int       `json:"totalDoses"`
	Administrations    int       `json:"administrations"`
	LastAdministeredAt time.Time `json:"lastDate"`
}

type service struct {
	repo        Repository
	medications medicationReader
	ledger      stockLedger
	locker      ledger.Locker
	tx          txRunner
	outbox      outboxPublisher
	metrics     dispenseMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams groups the administration service dependencies.
type ServiceParams struct {
	Repo        Repository
	Medications medicationReader
	Ledger      stockLedger
	Locker      ledger.Locker
	Tx          txRunner
	Outbox      outboxPublisher
	Metrics     dispenseMetrics
	Logger      *logger.Logger
}

// NewService wires the administration service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("administration repository required")
	case params.Medications == nil:
		return nil, fmt.Errorf("medication reader required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Locker == nil:
		return nil, fmt.Errorf("ledger locker required")
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		medications: params.Medications,
		ledger:      params.Ledger,
		locker:      params.Locker,
		tx:          params.Tx,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Dispense validates, waits for the observed count, then commits the stock
// decrement, the log entry and its events in one transaction. Any failure
// before commit leaves every store unchanged.
func (s *service) Dispense(ctx context.Context, actor auth.Actor, input DispenseInput) (*DispenseResult, error) {
	if err := actor.Require(enums.CapabilityDispense); err != nil {
		return nil, err
	}
	if err := validateDispense(input); err != nil {
		s.reject("validation")
		return nil, err
	}
	ctx = s.logg.WithMedicationID(ctx, input.MedicationID.String())

	release, err := s.locker.Acquire(ctx, input.MedicationID)
	if err != nil {
		s.reject("lock")
		return nil, err
	}
	defer release()

	med, err := s.medications.FindByID(ctx, input.MedicationID)
	if err != nil {
		s.reject("not_found")
		return nil, err
	}
	now := s.now().UTC()
	if med.IsExpired(now) {
		s.reject("expired")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication is expired").
			WithDetails(map[string]any{"medicationId": med.ID, "expiryDate": med.ExpiryDate.Format(time.DateOnly)})
	}
	if med.CurrentStock < input.Quantity {
		s.reject("insufficient_stock")
		return nil, ledger.InsufficientStock(med.ID, med.CurrentStock, input.Quantity)
	}

	preCount := med.CurrentStock
	expected := preCount - input.Quantity

	outcome := input.Observation.Observe(ctx, reconciliation.Expectation{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Dosage:         med.Dosage,
		Expected:       expected,
	})
	observed, err := outcome.Value()
	if err != nil {
		s.reject(string(outcome.Kind))
		s.logg.Warn(s.logg.WithField(ctx, "outcome", outcome.Kind), "dispense stopped before commit")
		return nil, err
	}
	classification := reconciliation.Classify(expected, observed)

	entry := &models.AdministrationLogEntry{
		MedicationID:      med.ID,
		MedicationName:    med.Name,
		QuantityGiven:     input.Quantity,
		PreCount:          preCount,
		ExpectedCount:     expected,
		PostCount:         observed,
		Verified:          classification.Verified,
		Discrepancy:       classification.Discrepancy,
		ObservationSource: outcome.Source,
		Confidence:        outcome.Confidence,
		IdentifiedLabel:   optional(outcome.IdentifiedLabel),
		EstimatorWarning:  optional(outcome.Warning),
		AdministeredBy:    actor.StaffID,
		AdminByName:       actor.Name,
		PatientID:         strings.TrimSpace(input.PatientID),
		Notes:             trimOptional(input.Notes),
	}

	var current int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
			MedicationID:    med.ID,
			Amount:          -input.Quantity,
			Source:          enums.LedgerSourceAdministration,
			ExpectedCurrent: &preCount,
			At:              now,
		})
		if err != nil {
			return err
		}
		current = result.Current

		entry.AdministeredAt = now
		if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		return s.emitDispensed(ctx, tx, actor, entry)
	})
	if err != nil {
		s.reject("commit")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDispense(entry.Verified, string(entry.ObservationSource))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"log_entry_id": entry.ID.String(),
		"quantity":     entry.QuantityGiven,
		"verified":     entry.Verified,
		"source":       entry.ObservationSource,
	})
	if entry.Verified {
		s.logg.Info(logCtx, "dispense recorded")
	} else {
		s.logg.Warn(s.logg.WithField(logCtx, "discrepancy", entry.Discrepancy), "dispense recorded with count mismatch")
	}

	return &DispenseResult{Entry: entry, Classification: classification, CurrentStock: current}, nil
}

// History lists log entries newest first.
func (s *service) History(ctx context.Context, actor auth.Actor, filter HistoryFilter) ([]models.AdministrationLogEntry, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	return s.repo.List(ctx, filter)
}

// Patients groups log entries by patient, most recently treated first.
func (s *service) Patients(ctx context.Context, actor auth.Actor, search string) ([]PatientSummary, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, HistoryFilter{Search: search})
	if err != nil {
		return nil, err
	}
	return SummarizePatients(entries), nil
}

// SummarizePatients folds log entries into per-patient summaries.
func SummarizePatients(entries []models.AdministrationLogEntry) []PatientSummary {
	byPatient := map[string]*PatientSummary{}
	seenMeds := map[string]map[string]struct{}{}
	order := []string{}

	for _, entry := range entries {
		summary, ok := byPatient[entry.PatientID]
		if !ok {
			summary = &PatientSummary{PatientID: entry.PatientID, LastAdministeredAt: entry.AdministeredAt}
			byPatient[entry.PatientID] = summary
			seenMeds[entry.PatientID] = map[string]struct{}{}
			order = append(order, entry.PatientID)
		}
		if _, dup := seenMeds[entry.PatientID][entry.MedicationName]; !dup {
			seenMeds[entry.PatientID][entry.MedicationName] = struct{}{}
			summary.Medications = append(summary.Medications, entry.MedicationName)
		}
		summary.TotalDoses += entry.QuantityGiven
		summary.Administrations++
		if entry.AdministeredAt.After(summary.LastAdministeredAt) {
			summary.LastAdministeredAt = entry.AdministeredAt
		}
	}

	out := make([]PatientSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byPatient[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAdministeredAt.After(out[j].LastAdministeredAt)
	})
	return out
}

func (s *service) emitDispensed(ctx context.Context, tx *gorm.DB, actor auth.Actor, entry *models.AdministrationLogEntry) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMedicationDispensed,
		AggregateType: enums.AggregateAdministration,
		AggregateID:   entry.ID,
		Actor:         actor.EventActor(),
		OccurredAt:    entry.AdministeredAt,
		Data: payloads.MedicationDispensedEvent{
			LogEntryID:        entry.ID,
			MedicationID:      entry.MedicationID,
			MedicationName:    entry.MedicationName,
			PatientID:         entry.PatientID,
			QuantityGiven:     entry.QuantityGiven,
			PreCount:          entry.PreCount,
			ExpectedCount:     entry.ExpectedCount,
			ObservedCount:     entry.PostCount,
			Verified:          entry.Verified,
			ObservationSource: entry.ObservationSource,
			AdministeredAt:    entry.AdministeredAt,
		},
	})
	if err != nil || entry.Verified {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDispenseMismatchFlagged,
		AggregateType: enums.AggregateAdministration,
		AggregateID:   entry.ID,
		Actor:         actor.EventActor(),
		OccurredAt:    entry.AdministeredAt,
		Data: payloads.DispenseMismatchFlaggedEvent{
			LogEntryID:     entry.ID,
			MedicationID:   entry.MedicationID,
			MedicationName: entry.MedicationName,
			ExpectedCount:  entry.ExpectedCount,
			ObservedCount:  entry.PostCount,
			Discrepancy:    entry.Discrepancy,
			AdminBy:        entry.AdminByName,
		},
	})
}

func (s *service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.ObserveRejection(reason)
	}
}

func validateDispense(input DispenseInput) error {
	details := map[string]any{}
	if input.MedicationID == uuid.Nil {
		details["medicationId"] = "required"
	}
	if input.Quantity <= 0 {
		details["quantity"] = "must be > 0"
	}
	if strings.TrimSpace(input.PatientID) == "" {
		details["patientId"] = "required"
	}
	if input.Observation == nil {
		details["observation"] = "observed count or image required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid dispense").WithDetails(details)
	}
	return nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	return optional(*value)
}
