package auth

import "github.com/mashael7430-ux/MPADCS/pkg/enums"

var roleCapabilities = map[enums.StaffRole][]enums.Capability{
	enums.StaffRoleNurse: {
		enums.CapabilityView,
		enums.CapabilityDispense,
		enums.CapabilityDisposalInitiate,
	},
	enums.StaffRoleNurseManager: {
		enums.CapabilityView,
		enums.CapabilityDispense,
		enums.CapabilityManageInventory,
		enums.CapabilitySupplyInitiate,
		enums.CapabilityDisposalInitiate,
	},
	enums.StaffRolePharmacist: {
		enums.CapabilityView,
		enums.CapabilityManageInventory,
		enums.CapabilitySupplyApprove,
	},
	enums.StaffRoleSupervisor: {
		enums.CapabilityView,
		enums.CapabilityDisposalApprove,
	},
}

// Allows reports whether role holds capability. Admins hold every capability.
func Allows(role enums.StaffRole, capability enums.Capability) bool {
	if role == enums.StaffRoleAdmin {
		return capability.IsValid()
	}
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// CapabilitiesFor lists the capabilities granted to role.
func CapabilitiesFor(role enums.StaffRole) []enums.Capability {
	if role == enums.StaffRoleAdmin {
		return enums.AllCapabilities()
	}
	caps := roleCapabilities[role]
	out := make([]enums.Capability, len(caps))
	copy(out, caps)
	return out
}
