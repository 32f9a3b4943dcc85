package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateMedication     OutboxAggregateType = "medication"
	AggregateAdministration OutboxAggregateType = "administration_log"
	AggregateSupplyRequest  OutboxAggregateType = "supply_request"
	AggregateDisposalRecord OutboxAggregateType = "disposal_record"
	AggregateInventory      OutboxAggregateType = "inventory"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMedication,
	AggregateAdministration,
	AggregateSupplyRequest,
	AggregateDisposalRecord,
	AggregateInventory,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event queued through the outbox.
type OutboxEventType string

const (
	EventMedicationDispensed     OutboxEventType = "medication_dispensed"
	EventDispenseMismatchFlagged OutboxEventType = "dispense_mismatch_flagged"
	EventMedicationUpserted      OutboxEventType = "medication_upserted"
	EventMedicationStockAdjusted OutboxEventType = "medication_stock_adjusted"
	EventSupplyRequestCreated    OutboxEventType = "supply_request_created"
	EventSupplyRequestDelivered  OutboxEventType = "supply_request_delivered"
	EventDisposalRecordCreated   OutboxEventType = "disposal_record_created"
	EventDisposalRecordCompleted OutboxEventType = "disposal_record_completed"
	EventInventoryAlertsRaised   OutboxEventType = "inventory_alerts_raised"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMedicationDispensed,
	EventDispenseMismatchFlagged,
	EventMedicationUpserted,
	EventMedicationStockAdjusted,
	EventSupplyRequestCreated,
	EventSupplyRequestDelivered,
	EventDisposalRecordCreated,
	EventDisposalRecordCompleted,
	EventInventoryAlertsRaised,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
