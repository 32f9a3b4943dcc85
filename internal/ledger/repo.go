package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

// ListFilter narrows medication listings.
type ListFilter struct {
	Kind   *enums.MedicationKind
	Search string
}

// StockUpdate is one conditional write against current_stock.
type StockUpdate struct {
	MedicationID    uuid.UUID
	Delta           int
	Clamp           bool
	ExpectedCurrent *int
	At              time.Time
}

// Repository manages persistence for medication records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, medication *models.Medication) error
	UpdateDetails(ctx context.Context, medication *models.Medication) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Medication, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medication, error)
	List(ctx context.Context, filter ListFilter) ([]models.Medication, error)
	Count(ctx context.Context) (int64, error)
	ApplyStock(ctx context.Context, update StockUpdate) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a medication repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, medication *models.Medication) error {
	return r.db.WithContext(ctx).Create(medication).Error
}

// UpdateDetails rewrites the descriptive columns. current_stock is never touched here.
func (r *repository) UpdateDetails(ctx context.Context, medication *models.Medication) error {
	res := r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("id = ?", medication.ID).
		Updates(map[string]any{
			"name":          medication.Name,
			"dosage":        medication.Dosage,
			"ref_number":    medication.RefNumber,
			"min_threshold": medication.MinThreshold,
			"category":      medication.Category,
			"expiry_date":   medication.ExpiryDate,
			"kind":          medication.Kind,
			"image_url":     medication.ImageURL,
			"last_updated":  medication.LastUpdated,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Medication, error) {
	var medication models.Medication
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&medication).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found").
				WithDetails(map[string]any{"medicationId": id})
		}
		return nil, err
	}
	return &medication, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medication, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var medications []models.Medication
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&medications).Error; err != nil {
		return nil, err
	}
	return medications, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Medication, error) {
	query := r.db.WithContext(ctx).Model(&models.Medication{})
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(ref_number) LIKE ? OR LOWER(category) LIKE ?", like, like, like)
	}
	var medications []models.Medication
	if err := query.Order("name ASC").Order("id ASC").Find(&medications).Error; err != nil {
		return nil, err
	}
	return medications, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Medication{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ApplyStock runs a single conditional UPDATE and reports whether the row matched.
// Strict updates only match when the result stays non-negative; clamped
// updates floor the result at zero.
func (r *repository) ApplyStock(ctx context.Context, update StockUpdate) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("id = ?", update.MedicationID)

	var next clause.Expr
	if update.Clamp {
		next = gorm.Expr("CASE WHEN current_stock + ? < 0 THEN 0 ELSE current_stock + ? END", update.Delta, update.Delta)
	} else {
		next = gorm.Expr("current_stock + ?", update.Delta)
		query = query.Where("current_stock + ? >= 0", update.Delta)
	}
	if update.ExpectedCurrent != nil {
		query = query.Where("current_stock = ?", *update.ExpectedCurrent)
	}

	res := query.Updates(map[string]any{
		"current_stock": next,
		"last_updated":  update.At,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
