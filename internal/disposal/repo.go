package disposal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

// Repository persists disposal records and their ordered items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.DisposalRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DisposalRecord, error)
	List(ctx context.Context) ([]models.DisposalRecord, error)
	MarkCompleted(ctx context.Context, id, approvedBy uuid.UUID, signature string, at time.Time) (bool, error)
	SetApplied(ctx context.Context, itemID uuid.UUID, applied int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a disposal record repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.DisposalRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DisposalRecord, error) {
	var record models.DisposalRecord
	err := r.withItems(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "disposal record not found")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context) ([]models.DisposalRecord, error) {
	var records []models.DisposalRecord
	if err := r.withItems(ctx).Order("requested_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkCompleted flips a pending record to completed and reports whether it did.
func (r *repository) MarkCompleted(ctx context.Context, id, approvedBy uuid.UUID, signature string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DisposalRecord{}).
		Where("id = ? AND status = ?", id, enums.DisposalStatusPending).
		Updates(map[string]any{
			"status":               enums.DisposalStatusCompleted,
			"supervisor_signature": signature,
			"approved_by":          approvedBy,
			"completed_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetApplied(ctx context.Context, itemID uuid.UUID, applied int) error {
	return r.db.WithContext(ctx).
		Model(&models.DisposalItem{}).
		Where("id = ?", itemID).
		Update("applied_quantity", applied).Error
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
