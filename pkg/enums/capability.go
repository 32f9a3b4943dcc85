package enums

// Capability is a single permission checked at an operation boundary.
type Capability string

const (
	CapabilityView             Capability = "view"
	CapabilityDispense         Capability = "dispense"
	CapabilityManageInventory  Capability = "manage_inventory"
	CapabilitySupplyInitiate   Capability = "supply_initiate"
	CapabilitySupplyApprove    Capability = "supply_approve"
	CapabilityDisposalInitiate Capability = "disposal_initiate"
	CapabilityDisposalApprove  Capability = "disposal_approve"
	CapabilityManageStaff      Capability = "manage_staff"
)

var validCapabilities = []Capability{
	CapabilityView,
	CapabilityDispense,
	CapabilityManageInventory,
	CapabilitySupplyInitiate,
	CapabilitySupplyApprove,
	CapabilityDisposalInitiate,
	CapabilityDisposalApprove,
	CapabilityManageStaff,
}

// AllCapabilities returns every known capability.
func AllCapabilities() []Capability {
	out := make([]Capability, len(validCapabilities))
	copy(out, validCapabilities)
	return out
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}
