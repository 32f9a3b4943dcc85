package supply

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

// Repository persists supply requests and their ordered items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.SupplyRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error)
	List(ctx context.Context) ([]models.SupplyRequest, error)
	MarkDelivered(ctx context.Context, id, fulfilledBy uuid.UUID, signature string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a supply request repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the request and its items.
func (r *repository) Create(ctx context.Context, request *models.SupplyRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	var request models.SupplyRequest
	err := r.withItems(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply request not found")
		}
		return nil, err
	}
	return &request, nil
}

// List returns every request newest first.
func (r *repository) List(ctx context.Context) ([]models.SupplyRequest, error) {
	var requests []models.SupplyRequest
	if err := r.withItems(ctx).Order("requested_at DESC").Order("id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// MarkDelivered flips a pending request to delivered and reports whether it did.
func (r *repository) MarkDelivered(ctx context.Context, id, fulfilledBy uuid.UUID, signature string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Where("id = ? AND status = ?", id, enums.SupplyStatusPending).
		Updates(map[string]any{
			"status":              enums.SupplyStatusDelivered,
			"fulfiller_signature": signature,
			"fulfilled_by":        fulfilledBy,
			"received_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
