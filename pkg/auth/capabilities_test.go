package auth

import (
	"testing"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

func TestAllows(t *testing.T) {
	tests := []struct {
		role enums.StaffRole
		cap  enums.Capability
		want bool
	}{
		{enums.StaffRoleNurse, enums.CapabilityDispense, true},
		{enums.StaffRoleNurse, enums.CapabilityDisposalInitiate, true},
		{enums.StaffRoleNurse, enums.CapabilityDisposalApprove, false},
		{enums.StaffRoleNurse, enums.CapabilitySupplyInitiate, false},
		{enums.StaffRoleNurseManager, enums.CapabilitySupplyInitiate, true},
		{enums.StaffRoleNurseManager, enums.CapabilitySupplyApprove, false},
		{enums.StaffRolePharmacist, enums.CapabilitySupplyApprove, true},
		{enums.StaffRolePharmacist, enums.CapabilityDispense, false},
		{enums.StaffRoleSupervisor, enums.CapabilityDisposalApprove, true},
		{enums.StaffRoleSupervisor, enums.CapabilityManageInventory, false},
		{enums.StaffRoleAdmin, enums.CapabilityManageStaff, true},
		{enums.StaffRoleAdmin, enums.Capability("launch_rockets"), false},
		{enums.StaffRole("visitor"), enums.CapabilityView, false},
	}
	for _, tt := range tests {
		if got := Allows(tt.role, tt.cap); got != tt.want {
			t.Errorf("Allows(%s, %s) = %v want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestCapabilitiesForReturnsCopy(t *testing.T) {
	caps := CapabilitiesFor(enums.StaffRoleSupervisor)
	if len(caps) != 2 {
		t.Fatalf("expected 2 supervisor capabilities, got %v", caps)
	}
	caps[0] = enums.CapabilityManageStaff
	if Allows(enums.StaffRoleSupervisor, enums.CapabilityManageStaff) {
		t.Fatal("mutating the returned slice must not grant capabilities")
	}
	if got := len(CapabilitiesFor(enums.StaffRoleAdmin)); got != len(enums.AllCapabilities()) {
		t.Fatalf("admin should hold every capability, got %d", got)
	}
}
