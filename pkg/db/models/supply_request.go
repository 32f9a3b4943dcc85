package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// SupplyRequest is a two-signature replenishment batch from the central pharmacy.
type SupplyRequest struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Reference          string              `gorm:"column:reference;not null;uniqueIndex:ux_supply_requests_reference" json:"reference"`
	Status             enums.SupplyStatus  `gorm:"column:status;type:text;not null" json:"status"`
	RequesterSignature string              `gorm:"column:requester_signature;not null" json:"nurseManagerSignature"`
	RequestedBy        uuid.UUID           `gorm:"column:requested_by;type:uuid;not null" json:"requestedBy"`
	FulfillerSignature *string             `gorm:"column:fulfiller_signature" json:"pharmacistSignature,omitempty"`
	FulfilledBy        *uuid.UUID          `gorm:"column:fulfilled_by;type:uuid" json:"fulfilledBy,omitempty"`
	RequestedAt        time.Time           `gorm:"column:requested_at;not null;index:ix_supply_requests_requested_at" json:"requestDate"`
	ReceivedAt         *time.Time          `gorm:"column:received_at" json:"receiveDate,omitempty"`
	Items              []SupplyRequestItem `gorm:"foreignKey:RequestID;references:ID" json:"items"`
}

func (SupplyRequest) TableName() string { return "supply_requests" }

func (r *SupplyRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// SupplyRequestItem is one ordered line of a supply request.
type SupplyRequestItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	RequestID      uuid.UUID `gorm:"column:request_id;type:uuid;not null;index:ix_supply_request_items_request" json:"-"`
	Position       int       `gorm:"column:position;not null" json:"-"`
	MedicationID   uuid.UUID `gorm:"column:medication_id;type:uuid;not null" json:"medicationId"`
	MedicationName string    `gorm:"column:medication_name;not null" json:"name"`
	Quantity       int       `gorm:"column:quantity;not null" json:"quantity"`
}

func (SupplyRequestItem) TableName() string { return "supply_request_items" }

func (i *SupplyRequestItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
