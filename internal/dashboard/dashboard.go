// Package dashboard derives read-only inventory summaries from the ledger
// and the administration log. Nothing here is cached.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/internal/administration"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

const (
	topCategories   = 5
	defaultCategory = "other"
)

// CategoryTotal is the stock held under one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Units    int    `json:"units"`
}

// Summary is the dashboard projection.
type Summary struct {
	InventoryCount int             `json:"inventoryCount"`
	TotalUnits     int             `json:"totalUnits"`
	LowStockCount  int             `json:"lowStockCount"`
	ExpiredCount   int             `json:"expiredCount"`
	VerifiedCount  int64           `json:"verifiedCount"`
	TotalActions   int64           `json:"totalActions"`
	Categories     []CategoryTotal `json:"categories"`
	LowStockIDs    []uuid.UUID     `json:"lowStockIds"`
	ExpiredIDs     []uuid.UUID     `json:"expiredIds"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// Compute folds the medication snapshot and log counts into a Summary.
func Compute(meds []models.Medication, counts administration.Counts, now time.Time) Summary {
	out := Summary{
		InventoryCount: len(meds),
		VerifiedCount:  counts.Verified,
		TotalActions:   counts.Total,
		Categories:     []CategoryTotal{},
		LowStockIDs:    []uuid.UUID{},
		ExpiredIDs:     []uuid.UUID{},
		GeneratedAt:    now,
	}
	byCategory := map[string]int{}
	for _, med := range meds {
		out.TotalUnits += med.CurrentStock
		if med.IsLowStock() {
			out.LowStockCount++
			out.LowStockIDs = append(out.LowStockIDs, med.ID)
		}
		if med.IsExpired(now) {
			out.ExpiredCount++
			out.ExpiredIDs = append(out.ExpiredIDs, med.ID)
		}
		category := strings.TrimSpace(med.Category)
		if category == "" {
			category = defaultCategory
		}
		byCategory[category] += med.CurrentStock
	}

	for category, units := range byCategory {
		out.Categories = append(out.Categories, CategoryTotal{Category: category, Units: units})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		if out.Categories[i].Units != out.Categories[j].Units {
			return out.Categories[i].Units > out.Categories[j].Units
		}
		return out.Categories[i].Category < out.Categories[j].Category
	})
	if len(out.Categories) > topCategories {
		out.Categories = out.Categories[:topCategories]
	}
	return out
}

type medicationLister interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]models.Medication, error)
}

type logCounter interface {
	Counts(ctx context.Context) (administration.Counts, error)
}

// Service loads the current snapshot and computes summaries.
type Service struct {
	medications medicationLister
	log         logCounter
}

func NewService(medications medicationLister, log logCounter) (*Service, error) {
	if medications == nil {
		return nil, fmt.Errorf("medication lister required")
	}
	if log == nil {
		return nil, fmt.Errorf("log counter required")
	}
	return &Service{medications: medications, log: log}, nil
}

// Summary returns the dashboard for a staff member.
func (s *Service) Summary(ctx context.Context, actor auth.Actor, now time.Time) (Summary, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return Summary{}, err
	}
	summary, _, err := s.Scan(ctx, now)
	return summary, err
}

// Scan computes the summary without an actor and also returns the snapshot
// it was built from. Used by scheduled alerting.
func (s *Service) Scan(ctx context.Context, now time.Time) (Summary, []models.Medication, error) {
	meds, err := s.medications.List(ctx, ledger.ListFilter{})
	if err != nil {
		return Summary{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list medications")
	}
	counts, err := s.log.Counts(ctx)
	if err != nil {
		return Summary{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count administrations")
	}
	return Compute(meds, counts, now), meds, nil
}
