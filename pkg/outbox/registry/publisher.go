package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/config"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
// Ledger and dispense facts go to the inventory topic; two-signature
// workflows go to the workflow topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.InventoryTopic == "" {
		return nil, fmt.Errorf("inventory topic is required")
	}
	if cfg.WorkflowTopic == "" {
		return nil, fmt.Errorf("workflow topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	inventoryTopic := cfg.InventoryTopic
	workflowTopic := cfg.WorkflowTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventMedicationDispensed,
			AggregateType:  enums.AggregateAdministration,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.MedicationDispensedEvent{} },
		},
		{
			EventType:      enums.EventDispenseMismatchFlagged,
			AggregateType:  enums.AggregateAdministration,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.DispenseMismatchFlaggedEvent{} },
		},
		{
			EventType:      enums.EventMedicationUpserted,
			AggregateType:  enums.AggregateMedication,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.MedicationUpsertedEvent{} },
		},
		{
			EventType:      enums.EventMedicationStockAdjusted,
			AggregateType:  enums.AggregateMedication,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.StockAdjustedEvent{} },
		},
		{
			EventType:      enums.EventInventoryAlertsRaised,
			AggregateType:  enums.AggregateInventory,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryAlertsRaisedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventSupplyRequestCreated,
			AggregateType:  enums.AggregateSupplyRequest,
			Topic:          workflowTopic,
			PayloadFactory: func() interface{} { return &payloads.SupplyRequestEvent{} },
		},
		{
			EventType:      enums.EventSupplyRequestDelivered,
			AggregateType:  enums.AggregateSupplyRequest,
			Topic:          workflowTopic,
			PayloadFactory: func() interface{} { return &payloads.SupplyRequestEvent{} },
		},
		{
			EventType:      enums.EventDisposalRecordCreated,
			AggregateType:  enums.AggregateDisposalRecord,
			Topic:          workflowTopic,
			PayloadFactory: func() interface{} { return &payloads.DisposalRecordEvent{} },
		},
		{
			EventType:      enums.EventDisposalRecordCompleted,
			AggregateType:  enums.AggregateDisposalRecord,
			Topic:          workflowTopic,
			PayloadFactory: func() interface{} { return &payloads.DisposalRecordEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		out = append(out, desc.Topic)
	}
	return out
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
