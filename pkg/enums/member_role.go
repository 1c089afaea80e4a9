package enums

import "fmt"

// MemberRole is the coarse actor role carried in access tokens.
type MemberRole string

const (
	MemberRoleAdmin    MemberRole = "admin"
	MemberRoleVendor   MemberRole = "vendor"
	MemberRoleCustomer MemberRole = "customer"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleVendor,
	MemberRoleCustomer,
}

// IsValid reports whether the value matches a known role.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
