package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashael7430-ux/MPADCS/internal/administration"
	"github.com/mashael7430-ux/MPADCS/internal/dashboard"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/testdb"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
)

type recordingGauges struct {
	low, expired int
	calls        int
}

func (g *recordingGauges) SetAlertCounts(low, expired int) {
	g.low, g.expired = low, expired
	g.calls++
}

func TestInventoryAlertsJobEmitsOncePerDay(t *testing.T) {
	client := testdb.New(t)
	logg := testdb.Logger()
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	future := now.AddDate(1, 0, 0)
	seed := []models.Medication{
		{Name: "Lasix", Dosage: "40 mg", RefNumber: "LSX", CurrentStock: 50, MinThreshold: 10, Category: "Cardio", ExpiryDate: future, Kind: enums.MedicationKindDrug, LastUpdated: now},
		{Name: "Captopril", Dosage: "25 mg", RefNumber: "CPT", CurrentStock: 3, MinThreshold: 5, Category: "Cardio", ExpiryDate: future, Kind: enums.MedicationKindDrug, LastUpdated: now},
		{Name: "FLU", Dosage: "0.5 ml", RefNumber: "FLU", CurrentStock: 20, MinThreshold: 5, Category: "Vaccine", ExpiryDate: now.AddDate(0, 0, -1), Kind: enums.MedicationKindVaccineAdult, LastUpdated: now},
	}
	require.NoError(t, client.DB().Create(&seed).Error)

	scanner, err := dashboard.NewService(ledger.NewRepository(client.DB()), administration.NewRepository(client.DB()))
	require.NoError(t, err)
	gauges := &recordingGauges{}
	jobIface, err := NewInventoryAlertsJob(InventoryAlertsJobParams{
		Logger:  logg,
		DB:      client,
		Scanner: scanner,
		Outbox:  outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Metrics: gauges,
	})
	require.NoError(t, err)
	job := jobIface.(*inventoryAlertsJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	job.now = func() time.Time { return now.Add(4 * time.Hour) }
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 2, gauges.calls)
	assert.Equal(t, 1, gauges.low)
	assert.Equal(t, 1, gauges.expired)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventInventoryAlertsRaised).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, AlertAggregateID(now), events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var data payloads.InventoryAlertsRaisedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "2026-03-10", data.ScanDate)
	require.Len(t, data.LowStock, 1)
	assert.Equal(t, "Captopril", data.LowStock[0].Name)
	require.Len(t, data.Expired, 1)
	assert.Equal(t, "FLU", data.Expired[0].Name)
}

func TestInventoryAlertsJobSkipsCleanInventory(t *testing.T) {
	client := testdb.New(t)
	logg := testdb.Logger()
	scanner, err := dashboard.NewService(ledger.NewRepository(client.DB()), administration.NewRepository(client.DB()))
	require.NoError(t, err)
	job, err := NewInventoryAlertsJob(InventoryAlertsJobParams{
		Logger:  logg,
		DB:      client,
		Scanner: scanner,
		Outbox:  outbox.NewService(outbox.NewRepository(client.DB()), logg),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAlertAggregateIDIsDaily(t *testing.T) {
	morning := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, AlertAggregateID(morning), AlertAggregateID(morning.Add(20*time.Hour)))
	assert.NotEqual(t, AlertAggregateID(morning), AlertAggregateID(morning.AddDate(0, 0, 1)))
}
