package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashael7430-ux/MPADCS/internal/administration"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func med(category string, stock, threshold int, expiry time.Time) models.Medication {
	return models.Medication{
		ID:           uuid.New(),
		Category:     category,
		CurrentStock: stock,
		MinThreshold: threshold,
		ExpiryDate:   expiry,
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, administration.Counts{}, now)
	assert.Zero(t, got.InventoryCount)
	assert.Zero(t, got.TotalUnits)
	assert.Empty(t, got.Categories)
	assert.Empty(t, got.LowStockIDs)
}

func TestComputeLowStockIsInclusive(t *testing.T) {
	future := now.AddDate(1, 0, 0)
	meds := []models.Medication{
		med("A", 4, 5, future),
		med("A", 5, 5, future),
		med("A", 6, 5, future),
	}
	got := Compute(meds, administration.Counts{Total: 3, Verified: 2}, now)
	assert.Equal(t, 2, got.LowStockCount)
	assert.Equal(t, []uuid.UUID{meds[0].ID, meds[1].ID}, got.LowStockIDs)
	assert.Equal(t, 15, got.TotalUnits)
	assert.Equal(t, int64(2), got.VerifiedCount)
	assert.Equal(t, int64(3), got.TotalActions)
}

func TestComputeOnlyBelowThresholdCountsForSingleLow(t *testing.T) {
	future := now.AddDate(1, 0, 0)
	meds := []models.Medication{
		med("A", 4, 5, future),
		med("A", 6, 5, future),
		med("A", 7, 5, future),
	}
	got := Compute(meds, administration.Counts{}, now)
	assert.Equal(t, 1, got.LowStockCount)
}

func TestComputeExpiryAndCategories(t *testing.T) {
	future := now.AddDate(0, 6, 0)
	meds := []models.Medication{
		med("Cardio", 50, 10, future),
		med("Cardio", 20, 5, now.AddDate(0, 0, -1)),
		med("", 8, 5, future),
		med("Analgesic", 90, 5, future),
		med("Vaccine", 3, 5, future),
		med("Antibiotic", 12, 5, future),
		med("Dermal", 1, 0, now),
	}
	got := Compute(meds, administration.Counts{}, now)

	assert.Equal(t, 1, got.ExpiredCount, "expiry equal to now is not expired")
	assert.Equal(t, []uuid.UUID{meds[1].ID}, got.ExpiredIDs)
	require.Len(t, got.Categories, 5)
	assert.Equal(t, CategoryTotal{Category: "Analgesic", Units: 90}, got.Categories[0])
	assert.Equal(t, CategoryTotal{Category: "Cardio", Units: 70}, got.Categories[1])
	assert.Equal(t, CategoryTotal{Category: "Antibiotic", Units: 12}, got.Categories[2])
	assert.Equal(t, CategoryTotal{Category: "other", Units: 8}, got.Categories[3])
	assert.Equal(t, CategoryTotal{Category: "Vaccine", Units: 3}, got.Categories[4])
}

type stubLister struct {
	meds []models.Medication
	err  error
}

func (s stubLister) List(context.Context, ledger.ListFilter) ([]models.Medication, error) {
	return s.meds, s.err
}

type stubCounter struct {
	counts administration.Counts
}

func (s stubCounter) Counts(context.Context) (administration.Counts, error) {
	return s.counts, nil
}

func TestServiceSummary(t *testing.T) {
	meds := []models.Medication{med("A", 2, 5, now.AddDate(0, 0, -2))}
	svc, err := NewService(stubLister{meds: meds}, stubCounter{counts: administration.Counts{Total: 1}})
	require.NoError(t, err)

	viewer := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleSupervisor}
	summary, err := svc.Summary(context.Background(), viewer, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LowStockCount)
	assert.Equal(t, 1, summary.ExpiredCount)

	_, err = svc.Summary(context.Background(), auth.Actor{}, now)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestServiceScanWrapsErrors(t *testing.T) {
	svc, err := NewService(stubLister{err: errors.New("db down")}, stubCounter{})
	require.NoError(t, err)
	_, _, err = svc.Scan(context.Background(), now)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}
