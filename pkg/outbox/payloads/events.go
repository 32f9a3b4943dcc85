package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// MedicationDispensedEvent is emitted for every committed administration.
type MedicationDispensedEvent struct {
	LogEntryID        uuid.UUID               `json:"log_entry_id"`
	MedicationID      uuid.UUID               `json:"medication_id"`
	MedicationName    string                  `json:"medication_name"`
	PatientID         string                  `json:"patient_id"`
	QuantityGiven     int                     `json:"quantity_given"`
	PreCount          int                     `json:"pre_count"`
	ExpectedCount     int                     `json:"expected_count"`
	ObservedCount     int                     `json:"observed_count"`
	Verified          bool                    `json:"verified"`
	ObservationSource enums.ObservationSource `json:"observation_source"`
	AdministeredAt    time.Time               `json:"administered_at"`
}

// DispenseMismatchFlaggedEvent asks downstream reviewers to look at a count discrepancy.
type DispenseMismatchFlaggedEvent struct {
	LogEntryID     uuid.UUID `json:"log_entry_id"`
	MedicationID   uuid.UUID `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	ExpectedCount  int       `json:"expected_count"`
	ObservedCount  int       `json:"observed_count"`
	Discrepancy    int       `json:"discrepancy"`
	AdminBy        string    `json:"admin_by"`
}

// MedicationUpsertedEvent carries catalogue changes for a medication.
type MedicationUpsertedEvent struct {
	MedicationID uuid.UUID            `json:"medication_id"`
	Name         string               `json:"name"`
	RefNumber    string               `json:"ref_number"`
	Kind         enums.MedicationKind `json:"kind"`
	CurrentStock int                  `json:"current_stock"`
	MinThreshold int                  `json:"min_threshold"`
	ExpiryDate   string               `json:"expiry_date"`
	Created      bool                 `json:"created"`
}

// StockAdjustedEvent records a ledger change caused by a workflow or manual adjustment.
type StockAdjustedEvent struct {
	MedicationID uuid.UUID          `json:"medication_id"`
	Source       enums.LedgerSource `json:"source"`
	SourceRef    string             `json:"source_ref,omitempty"`
	Requested    int                `json:"requested"`
	Applied      int                `json:"applied"`
	Previous     int                `json:"previous"`
	Current      int                `json:"current"`
}

// WorkflowItem is one line of a supply or disposal workflow.
type WorkflowItem struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Applied      *int      `json:"applied,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// SupplyRequestEvent covers both creation and delivery of a supply request.
type SupplyRequestEvent struct {
	RequestID uuid.UUID          `json:"request_id"`
	Reference string             `json:"reference"`
	Status    enums.SupplyStatus `json:"status"`
	Items     []WorkflowItem     `json:"items"`
}

// DisposalRecordEvent covers both creation and completion of a disposal record.
type DisposalRecordEvent struct {
	RecordID  uuid.UUID            `json:"record_id"`
	Reference string               `json:"reference"`
	Status    enums.DisposalStatus `json:"status"`
	Items     []WorkflowItem       `json:"items"`
}

// InventoryAlert is one medication needing attention.
type InventoryAlert struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Name         string    `json:"name"`
	CurrentStock int       `json:"current_stock"`
	MinThreshold int       `json:"min_threshold"`
	ExpiryDate   string    `json:"expiry_date"`
}

// InventoryAlertsRaisedEvent summarizes a scheduled low-stock and expiry scan.
type InventoryAlertsRaisedEvent struct {
	ScanDate string           `json:"scan_date"`
	LowStock []InventoryAlert `json:"low_stock"`
	Expired  []InventoryAlert `json:"expired"`
}
