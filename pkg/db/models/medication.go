package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// DefaultMinThreshold applies when a medication is created without a threshold.
const DefaultMinThreshold = 5

// Medication is one stock-keeping unit in the unit ledger. CurrentStock is
// owned by the ledger and never written outside of it.
type Medication struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string               `gorm:"column:name;not null" json:"name"`
	Dosage       string               `gorm:"column:dosage;not null" json:"dosage"`
	RefNumber    string               `gorm:"column:ref_number;not null;uniqueIndex:ux_medications_ref_number" json:"refNumber"`
	CurrentStock int                  `gorm:"column:current_stock;not null" json:"currentStock"`
	MinThreshold int                  `gorm:"column:min_threshold;not null" json:"minThreshold"`
	Category     string               `gorm:"column:category;not null" json:"category"`
	ExpiryDate   time.Time            `gorm:"column:expiry_date;type:date;not null" json:"expiryDate"`
	Kind         enums.MedicationKind `gorm:"column:kind;type:text;not null" json:"type"`
	ImageURL     *string              `gorm:"column:image_url" json:"imageUrl,omitempty"`
	LastUpdated  time.Time            `gorm:"column:last_updated;not null" json:"lastUpdated"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Medication) TableName() string { return "medications" }

func (m *Medication) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// IsExpired reports whether the expiry date lies strictly before now.
func (m Medication) IsExpired(now time.Time) bool {
	return m.ExpiryDate.Before(now)
}

// IsLowStock reports whether stock sits at or below the minimum threshold.
func (m Medication) IsLowStock() bool {
	return m.CurrentStock <= m.MinThreshold
}

// Dispensable reports whether the medication may be offered for administration.
func (m Medication) Dispensable(now time.Time) bool {
	return m.CurrentStock > 0 && !m.IsExpired(now)
}
