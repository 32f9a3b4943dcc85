package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/internal/dashboard"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
)

const scanDateLayout = "2006-01-02"

// alertNamespace seeds the per-day aggregate id so reruns on the same day
// collapse onto one event.
var alertNamespace = uuid.MustParse("6f0c3a52-8d7e-4b8e-9c1d-2a9e5b7f4c10")

type inventoryScanner interface {
	Scan(ctx context.Context, now time.Time) (dashboard.Summary, []models.Medication, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type alertGauges interface {
	SetAlertCounts(lowStock, expired int)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type InventoryAlertsJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Scanner inventoryScanner
	Outbox  outboxEmitter
	Metrics alertGauges
}

// NewInventoryAlertsJob builds the daily low-stock and expiry scan.
func NewInventoryAlertsJob(params InventoryAlertsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Scanner == nil {
		return nil, fmt.Errorf("inventory scanner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &inventoryAlertsJob{
		logg:    params.Logger,
		db:      params.DB,
		scanner: params.Scanner,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type inventoryAlertsJob struct {
	logg    *logger.Logger
	db      txRunner
	scanner inventoryScanner
	outbox  outboxEmitter
	metrics alertGauges
	now     func() time.Time
}

func (j *inventoryAlertsJob) Name() string { return "inventory-alerts" }

func (j *inventoryAlertsJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	summary, meds, err := j.scanner.Scan(ctx, now)
	if err != nil {
		return fmt.Errorf("scan inventory: %w", err)
	}
	if j.metrics != nil {
		j.metrics.SetAlertCounts(summary.LowStockCount, summary.ExpiredCount)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock": summary.LowStockCount,
		"expired":   summary.ExpiredCount,
	})
	if summary.LowStockCount == 0 && summary.ExpiredCount == 0 {
		j.logg.Info(logCtx, "inventory scan clean")
		return nil
	}

	byID := make(map[uuid.UUID]models.Medication, len(meds))
	for _, med := range meds {
		byID[med.ID] = med
	}
	scanDate := now.Format(scanDateLayout)
	event := outbox.DomainEvent{
		EventType:     enums.EventInventoryAlertsRaised,
		AggregateType: enums.AggregateInventory,
		AggregateID:   AlertAggregateID(now),
		Data: payloads.InventoryAlertsRaisedEvent{
			ScanDate: scanDate,
			LowStock: alerts(summary.LowStockIDs, byID),
			Expired:  alerts(summary.ExpiredIDs, byID),
		},
		OccurredAt: now,
	}
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	}); err != nil {
		return fmt.Errorf("queue inventory alerts: %w", err)
	}
	j.logg.Warn(j.logg.WithField(logCtx, "scan_date", scanDate), "inventory alerts raised")
	return nil
}

// AlertAggregateID is stable for every scan on the same UTC day.
func AlertAggregateID(now time.Time) uuid.UUID {
	return uuid.NewSHA1(alertNamespace, []byte("inventory-alerts:"+now.UTC().Format(scanDateLayout)))
}

func alerts(ids []uuid.UUID, byID map[uuid.UUID]models.Medication) []payloads.InventoryAlert {
	out := make([]payloads.InventoryAlert, 0, len(ids))
	for _, id := range ids {
		med, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, payloads.InventoryAlert{
			MedicationID: med.ID,
			Name:         med.Name,
			CurrentStock: med.CurrentStock,
			MinThreshold: med.MinThreshold,
			ExpiryDate:   med.ExpiryDate.Format(scanDateLayout),
		})
	}
	return out
}
