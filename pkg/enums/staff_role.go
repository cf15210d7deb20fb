package enums

import "fmt"

// StaffRole is the role claim issued by the identity provider.
type StaffRole string

const (
	StaffRoleAdmin    StaffRole = "admin"
	StaffRoleStaff    StaffRole = "staff"
	StaffRoleCustomer StaffRole = "customer"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleStaff,
	StaffRoleCustomer,
}

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

// CanReadCRM reports whether the role may use the CRM admin API.
func (r StaffRole) CanReadCRM() bool {
	return r == StaffRoleAdmin || r == StaffRoleStaff
}

// ParseStaffRole converts the raw string to StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
