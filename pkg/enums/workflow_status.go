package enums

import "fmt"

// SupplyStatus tracks a replenishment request. delivered is terminal.
type SupplyStatus string

const (
	SupplyStatusPending   SupplyStatus = "pending"
	SupplyStatusDelivered SupplyStatus = "delivered"
)

var validSupplyStatuses = []SupplyStatus{
	SupplyStatusPending,
	SupplyStatusDelivered,
}

// IsValid reports whether the value is a known SupplyStatus.
func (s SupplyStatus) IsValid() bool {
	for _, candidate := range validSupplyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s SupplyStatus) IsTerminal() bool {
	return s == SupplyStatusDelivered
}

// ParseSupplyStatus converts raw input into a SupplyStatus.
// "received" is accepted as an alias of delivered.
func ParseSupplyStatus(value string) (SupplyStatus, error) {
	if value == "received" {
		return SupplyStatusDelivered, nil
	}
	for _, candidate := range validSupplyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supply status %q", value)
}

// DisposalStatus tracks a disposal/return record. completed is terminal.
type DisposalStatus string

const (
	DisposalStatusPending   DisposalStatus = "pending"
	DisposalStatusCompleted DisposalStatus = "completed"
)

var validDisposalStatuses = []DisposalStatus{
	DisposalStatusPending,
	DisposalStatusCompleted,
}

// IsValid reports whether the value is a known DisposalStatus.
func (s DisposalStatus) IsValid() bool {
	for _, candidate := range validDisposalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s DisposalStatus) IsTerminal() bool {
	return s == DisposalStatusCompleted
}

// ParseDisposalStatus converts raw input into a DisposalStatus.
func ParseDisposalStatus(value string) (DisposalStatus, error) {
	for _, candidate := range validDisposalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid disposal status %q", value)
}
