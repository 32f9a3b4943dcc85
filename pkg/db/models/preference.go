package models

import (
	"encoding/json"
	"time"
)

// Preference stores one scalar setting as JSON.
type Preference struct {
	Key       string          `gorm:"column:key;primaryKey"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Preference) TableName() string { return "preferences" }
