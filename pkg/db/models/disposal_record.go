package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// DisposalRecord is a two-signature batch that retires stock from the unit.
type DisposalRecord struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Reference           string               `gorm:"column:reference;not null;uniqueIndex:ux_disposal_records_reference" json:"reference"`
	Status              enums.DisposalStatus `gorm:"column:status;type:text;not null" json:"status"`
	InitiatorSignature  string               `gorm:"column:initiator_signature;not null" json:"nurseSignature"`
	InitiatedBy         uuid.UUID            `gorm:"column:initiated_by;type:uuid;not null" json:"initiatedBy"`
	SupervisorSignature *string              `gorm:"column:supervisor_signature" json:"supervisorSignature,omitempty"`
	ApprovedBy          *uuid.UUID           `gorm:"column:approved_by;type:uuid" json:"approvedBy,omitempty"`
	RequestedAt         time.Time            `gorm:"column:requested_at;not null;index:ix_disposal_records_requested_at" json:"requestDate"`
	CompletedAt         *time.Time           `gorm:"column:completed_at" json:"completionDate,omitempty"`
	Items               []DisposalItem       `gorm:"foreignKey:RecordID;references:ID" json:"items"`
}

func (DisposalRecord) TableName() string { return "disposal_records" }

func (r *DisposalRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// DisposalItem is one line of a disposal record. AppliedQuantity is set on
// completion to the amount the ledger actually removed after clamping.
type DisposalItem struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	RecordID        uuid.UUID            `gorm:"column:record_id;type:uuid;not null;index:ix_disposal_items_record" json:"-"`
	Position        int                  `gorm:"column:position;not null" json:"-"`
	MedicationID    uuid.UUID            `gorm:"column:medication_id;type:uuid;not null" json:"medicationId"`
	MedicationName  string               `gorm:"column:medication_name;not null" json:"name"`
	Quantity        int                  `gorm:"column:quantity;not null" json:"quantity"`
	Reason          enums.DisposalReason `gorm:"column:reason;type:text;not null" json:"reason"`
	AppliedQuantity *int                 `gorm:"column:applied_quantity" json:"appliedQuantity,omitempty"`
}

func (DisposalItem) TableName() string { return "disposal_items" }

func (i *DisposalItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
