package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// AdministrationLogEntry is the immutable record of one dispense. PostCount
// holds the observed count; the ledger keeps ExpectedCount.
type AdministrationLogEntry struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MedicationID      uuid.UUID               `gorm:"column:medication_id;type:uuid;not null;index:ix_administration_log_medication" json:"medicationId"`
	MedicationName    string                  `gorm:"column:medication_name;not null" json:"medicationName"`
	QuantityGiven     int                     `gorm:"column:quantity_given;not null" json:"quantityGiven"`
	PreCount          int                     `gorm:"column:pre_count;not null" json:"preCount"`
	ExpectedCount     int                     `gorm:"column:expected_count;not null" json:"expectedCount"`
	PostCount         int                     `gorm:"column:post_count;not null" json:"postCount"`
	Verified          bool                    `gorm:"column:verified;not null" json:"verified"`
	Discrepancy       int                     `gorm:"column:discrepancy;not null" json:"discrepancy"`
	ObservationSource enums.ObservationSource `gorm:"column:observation_source;type:text;not null" json:"observationSource"`
	Confidence        *float64                `gorm:"column:confidence" json:"confidence,omitempty"`
	IdentifiedLabel   *string                 `gorm:"column:identified_label" json:"identifiedMedication,omitempty"`
	EstimatorWarning  *string                 `gorm:"column:estimator_warning" json:"warning,omitempty"`
	AdministeredBy    uuid.UUID               `gorm:"column:administered_by;type:uuid;not null" json:"administeredBy"`
	AdminByName       string                  `gorm:"column:admin_by_name;not null" json:"adminBy"`
	PatientID         string                  `gorm:"column:patient_id;not null;index:ix_administration_log_patient" json:"patientId"`
	Notes             *string                 `gorm:"column:notes" json:"notes,omitempty"`
	AdministeredAt    time.Time               `gorm:"column:administered_at;not null;index:ix_administration_log_time" json:"timestamp"`
}

func (AdministrationLogEntry) TableName() string { return "administration_log" }

func (e *AdministrationLogEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
