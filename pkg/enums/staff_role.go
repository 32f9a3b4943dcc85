package enums

import "fmt"

// StaffRole is the coarse role category carried on every access token.
type StaffRole string

const (
	StaffRoleNurse        StaffRole = "nurse"
	StaffRoleNurseManager StaffRole = "nurse_manager"
	StaffRolePharmacist   StaffRole = "pharmacist"
	StaffRoleSupervisor   StaffRole = "supervisor"
	StaffRoleAdmin        StaffRole = "admin"
)

var validStaffRoles = []StaffRole{
	StaffRoleNurse,
	StaffRoleNurseManager,
	StaffRolePharmacist,
	StaffRoleSupervisor,
	StaffRoleAdmin,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
