package supply

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
	referencePrefix     = "REQ"
	referenceConstraint = "ux_supply_requests_reference"
	metricsLabel        = "supply"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
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

// Service runs the replenishment workflow: pending until a fulfiller signs
// for delivery, which adds every line to the ledger.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.SupplyRequest, error)
	Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.SupplyRequest, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.SupplyRequest, error)
	List(ctx context.Context, actor auth.Actor) ([]models.SupplyRequest, error)
}

// CreateInput is a new supply request.
type CreateInput struct {
	Items     []workflow.ItemInput
	Signature string
}

// ServiceParams groups the supply service dependencies.
type ServiceParams struct {
	Repo        Repository
	Medications workflow.MedicationLookup
	Ledger      stockLedger
	Locker      ledger.Locker
	Tx          txRunner
	Outbox      outboxPublisher
	Metrics     resolutionMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	medications workflow.MedicationLookup
	ledger      stockLedger
	locker      ledger.Locker
	tx          txRunner
	outbox      outboxPublisher
	metrics     resolutionMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the supply workflow.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("supply repository required")
	case params.Medications == nil:
		return nil, fmt.Errorf("medication lookup required")
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

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.SupplyRequest, error) {
	if err := actor.Require(enums.CapabilitySupplyInitiate); err != nil {
		return nil, err
	}
	signature, err := workflow.ValidateSignature("nurseManagerSignature", input.Signature)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateItems(input.Items, workflow.ItemRules{}); err != nil {
		return nil, err
	}
	meds, err := workflow.ResolveMedications(ctx, s.medications, input.Items)
	if err != nil {
		return nil, err
	}

	var request *models.SupplyRequest
	_, err = workflow.WithReference(referencePrefix, referenceConstraint, func(reference string) error {
		request = &models.SupplyRequest{
			Reference:          reference,
			Status:             enums.SupplyStatusPending,
			RequesterSignature: signature,
			RequestedBy:        actor.StaffID,
			RequestedAt:        s.now().UTC(),
			Items:              buildItems(input.Items, meds),
		}
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
				return err
			}
			return s.emit(ctx, tx, actor, enums.EventSupplyRequestCreated, request)
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithWorkflowID(ctx, request.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "reference", request.Reference), "supply request created")
	return request, nil
}

// Resolve records delivery. Status flip and every stock increase commit together.
func (s *service) Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.SupplyRequest, error) {
	if err := actor.Require(enums.CapabilitySupplyApprove); err != nil {
		return nil, err
	}
	signature, err := workflow.ValidateSignature("pharmacistSignature", signature)
	if err != nil {
		return nil, err
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, workflow.AlreadyResolved(request.ID, string(request.Status))
	}
	if err := workflow.RequireSecondSigner(request.RequestedBy, actor.StaffID); err != nil {
		return nil, err
	}

	medIDs := make([]uuid.UUID, len(request.Items))
	for i, item := range request.Items {
		medIDs[i] = item.MedicationID
	}
	release, err := s.locker.Acquire(ctx, medIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		flipped, err := repo.MarkDelivered(ctx, request.ID, actor.StaffID, signature, now)
		if err != nil {
			return err
		}
		if !flipped {
			return workflow.AlreadyResolved(request.ID, string(enums.SupplyStatusDelivered))
		}
		for _, item := range request.Items {
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
				MedicationID: item.MedicationID,
				Amount:       item.Quantity,
				Source:       enums.LedgerSourceSupply,
				At:           now,
			}); err != nil {
				return err
			}
		}
		resolved, err := repo.FindByID(ctx, request.ID)
		if err != nil {
			return err
		}
		request = resolved
		return s.emit(ctx, tx, actor, enums.EventSupplyRequestDelivered, request)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveResolution(metricsLabel)
	}
	ctx = s.logg.WithWorkflowID(ctx, request.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "items", len(request.Items)), "supply request delivered")
	return request, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.SupplyRequest, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supply request id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, actor auth.Actor) ([]models.SupplyRequest, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, request *models.SupplyRequest) error {
	items := make([]payloads.WorkflowItem, len(request.Items))
	for i, item := range request.Items {
		items[i] = payloads.WorkflowItem{
			MedicationID: item.MedicationID,
			Name:         item.MedicationName,
			Quantity:     item.Quantity,
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSupplyRequest,
		AggregateID:   request.ID,
		Actor:         actor.EventActor(),
		Data: payloads.SupplyRequestEvent{
			RequestID: request.ID,
			Reference: request.Reference,
			Status:    request.Status,
			Items:     items,
		},
	})
}

func buildItems(inputs []workflow.ItemInput, meds map[uuid.UUID]models.Medication) []models.SupplyRequestItem {
	items := make([]models.SupplyRequestItem, len(inputs))
	for i, input := range inputs {
		items[i] = models.SupplyRequestItem{
			Position:       i,
			MedicationID:   input.MedicationID,
			MedicationName: meds[input.MedicationID].Name,
			Quantity:       input.Quantity,
		}
	}
	return items
}
