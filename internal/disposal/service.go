package disposal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/workflow"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
)

const (
	referencePrefix     = "DISP"
	referenceConstraint = "ux_disposal_records_reference"
	metricsLabel        = "disposal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type medicationCatalog interface {
	workflow.MedicationLookup
	List(ctx context.Context, filter ledger.ListFilter) ([]models.Medication, error)
}

type stockLedger interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, delta ledger.Delta) (*ledger.DeltaResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type resolutionMetrics interface {
	ObserveResolution(workflow string)
}

// Service runs the retirement workflow. Completion removes every line from
// the ledger, flooring each medication at zero.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.DisposalRecord, error)
	Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.DisposalRecord, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DisposalRecord, error)
	List(ctx context.Context, actor auth.Actor) ([]models.DisposalRecord, error)
	Prefill(ctx context.Context, actor auth.Actor, mode enums.DisposalReason, draft []workflow.ItemInput) ([]workflow.ItemInput, error)
}

type CreateInput struct {
	Items     []workflow.ItemInput
	Signature string
}

type ServiceParams struct {
	Repo        Repository
	Medications medicationCatalog
	Ledger      stockLedger
	Locker      ledger.Locker
	Tx          txRunner
	Outbox      outboxPublisher
	Metrics     resolutionMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	medications medicationCatalog
	ledger      stockLedger
	locker      ledger.Locker
	tx          txRunner
	outbox      outboxPublisher
	metrics     resolutionMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("disposal repository required")
	case params.Medications == nil:
		return nil, fmt.Errorf("medication catalog required")
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

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.DisposalRecord, error) {
	if err := actor.Require(enums.CapabilityDisposalInitiate); err != nil {
		return nil, err
	}
	signature, err := workflow.ValidateSignature("nurseSignature", input.Signature)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateItems(input.Items, workflow.ItemRules{RequireReason: true}); err != nil {
		return nil, err
	}
	meds, err := workflow.ResolveMedications(ctx, s.medications, input.Items)
	if err != nil {
		return nil, err
	}

	var record *models.DisposalRecord
	_, err = workflow.WithReference(referencePrefix, referenceConstraint, func(reference string) error {
		record = &models.DisposalRecord{
			Reference:          reference,
			Status:             enums.DisposalStatusPending,
			InitiatorSignature: signature,
			InitiatedBy:        actor.StaffID,
			RequestedAt:        s.now().UTC(),
			Items:              buildItems(input.Items, meds),
		}
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
				return err
			}
			return s.emit(ctx, tx, actor, enums.EventDisposalRecordCreated, record)
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithWorkflowID(ctx, record.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "reference", record.Reference), "disposal record created")
	return record, nil
}

// Resolve completes a pending record. Each line removes at most what is on
// hand; the amount actually removed is stored on the item.
func (s *service) Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.DisposalRecord, error) {
	if err := actor.Require(enums.CapabilityDisposalApprove); err != nil {
		return nil, err
	}
	signature, err := workflow.ValidateSignature("supervisorSignature", signature)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, workflow.AlreadyResolved(record.ID, string(record.Status))
	}
	if err := workflow.RequireSecondSigner(record.InitiatedBy, actor.StaffID); err != nil {
		return nil, err
	}

	medIDs := make([]uuid.UUID, len(record.Items))
	for i, item := range record.Items {
		medIDs[i] = item.MedicationID
	}
	release, err := s.locker.Acquire(ctx, medIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	shortfall := 0
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		shortfall = 0
		repo := s.repo.WithTx(tx)
		flipped, err := repo.MarkCompleted(ctx, record.ID, actor.StaffID, signature, now)
		if err != nil {
			return err
		}
		if !flipped {
			return workflow.AlreadyResolved(record.ID, string(enums.DisposalStatusCompleted))
		}
		for _, item := range record.Items {
			result, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
				MedicationID: item.MedicationID,
				Amount:       -item.Quantity,
				Source:       enums.LedgerSourceDisposal,
				At:           now,
			})
			if err != nil {
				return err
			}
			applied := -result.Applied()
			if applied < item.Quantity {
				shortfall++
			}
			if err := repo.SetApplied(ctx, item.ID, applied); err != nil {
				return err
			}
		}
		completed, err := repo.FindByID(ctx, record.ID)
		if err != nil {
			return err
		}
		record = completed
		return s.emit(ctx, tx, actor, enums.EventDisposalRecordCompleted, record)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveResolution(metricsLabel)
	}
	ctx = s.logg.WithWorkflowID(ctx, record.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{"items": len(record.Items), "clamped_items": shortfall})
	if shortfall > 0 {
		s.logg.Warn(ctx, "disposal completed with lines floored at zero")
	} else {
		s.logg.Info(ctx, "disposal record completed")
	}
	return record, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DisposalRecord, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "disposal record id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, actor auth.Actor) ([]models.DisposalRecord, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Prefill appends every expired or stocked medication to draft at its full
// on-hand quantity, skipping ids the draft already holds. See PrefillItems.
func (s *service) Prefill(ctx context.Context, actor auth.Actor, mode enums.DisposalReason, draft []workflow.ItemInput) ([]workflow.ItemInput, error) {
	if err := actor.Require(enums.CapabilityDisposalInitiate); err != nil {
		return nil, err
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be expired or surplus").
			WithDetails(map[string]any{"mode": string(mode)})
	}
	meds, err := s.medications.List(ctx, ledger.ListFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list medications")
	}
	return PrefillItems(mode, draft, meds, s.now()), nil
}

// PrefillItems is the pure selection behind Prefill. Expired mode returns
// every medication expiring strictly before now, including zero-stock ones at
// quantity 0; Create rejects such lines, so clients must drop or edit them.
// Surplus mode only returns medications with stock on hand.
func PrefillItems(mode enums.DisposalReason, draft []workflow.ItemInput, meds []models.Medication, now time.Time) []workflow.ItemInput {
	out := make([]workflow.ItemInput, len(draft), len(draft)+len(meds))
	copy(out, draft)
	present := make(map[uuid.UUID]struct{}, len(draft))
	for _, item := range draft {
		present[item.MedicationID] = struct{}{}
	}
	for _, med := range meds {
		if _, ok := present[med.ID]; ok {
			continue
		}
		switch mode {
		case enums.DisposalReasonExpired:
			if !med.IsExpired(now) {
				continue
			}
		default:
			if med.CurrentStock <= 0 {
				continue
			}
		}
		present[med.ID] = struct{}{}
		out = append(out, workflow.ItemInput{
			MedicationID: med.ID,
			Quantity:     med.CurrentStock,
			Reason:       mode,
		})
	}
	return out
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, record *models.DisposalRecord) error {
	items := make([]payloads.WorkflowItem, len(record.Items))
	for i, item := range record.Items {
		items[i] = payloads.WorkflowItem{
			MedicationID: item.MedicationID,
			Name:         item.MedicationName,
			Quantity:     item.Quantity,
			Applied:      item.AppliedQuantity,
			Reason:       string(item.Reason),
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDisposalRecord,
		AggregateID:   record.ID,
		Actor:         actor.EventActor(),
		Data: payloads.DisposalRecordEvent{
			RecordID:  record.ID,
			Reference: record.Reference,
			Status:    record.Status,
			Items:     items,
		},
	})
}

func buildItems(inputs []workflow.ItemInput, meds map[uuid.UUID]models.Medication) []models.DisposalItem {
	items := make([]models.DisposalItem, len(inputs))
	for i, input := range inputs {
		items[i] = models.DisposalItem{
			Position:       i,
			MedicationID:   input.MedicationID,
			MedicationName: meds[input.MedicationID].Name,
			Quantity:       input.Quantity,
			Reason:         input.Reason,
		}
	}
	return items
}
