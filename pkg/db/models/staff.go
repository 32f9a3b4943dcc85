package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// Staff is a unit member who can sign in and act on the ledger.
type Staff struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StaffNumber  string          `gorm:"column:staff_number;not null;uniqueIndex:ux_staff_staff_number"`
	DisplayName  string          `gorm:"column:display_name;not null"`
	Role         enums.StaffRole `gorm:"column:role;type:text;not null"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Active       bool            `gorm:"column:active;not null"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Staff) TableName() string { return "staff" }

func (s *Staff) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
