package administration

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// HistoryFilter narrows log listings. A zero Limit returns every match.
type HistoryFilter struct {
	Search string
	Limit  int
}

// Counts summarizes the log for dashboards.
type Counts struct {
	Total    int64
	Verified int64
}

// Repository persists administration log entries. Entries are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AdministrationLogEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]models.AdministrationLogEntry, error)
	Counts(ctx context.Context) (Counts, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an administration log repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AdministrationLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filter HistoryFilter) ([]models.AdministrationLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.AdministrationLogEntry{})
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(medication_name) LIKE ? OR LOWER(patient_id) LIKE ?", like, like)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var entries []models.AdministrationLogEntry
	if err := query.Order("administered_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	if err := r.db.WithContext(ctx).Model(&models.AdministrationLogEntry{}).Count(&out.Total).Error; err != nil {
		return Counts{}, err
	}
	if err := r.db.WithContext(ctx).Model(&models.AdministrationLogEntry{}).Where("verified = ?", true).Count(&out.Verified).Error; err != nil {
		return Counts{}, err
	}
	return out, nil
}
