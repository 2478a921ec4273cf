package entity

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleNone          Role = ""
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleManagement    Role = "MANAGEMENT"
	RoleSales         Role = "SALES"
	RoleCRMManager    Role = "CRM_MANAGER"
	RoleFinance       Role = "FINANCE"
	RolePartner       Role = "PARTNER"
	RoleLegacyPartner Role = "LEGACY_PARTNER"
	RoleCustomer      Role = "CUSTOMER"
)

var roleLabels = map[Role]string{
	RoleSuperAdmin:    "Super Admin",
	RoleAdmin:         "Admin",
	RoleManagement:    "Management",
	RoleSales:         "Sales",
	RoleCRMManager:    "CRM Manager",
	RoleFinance:       "Finance",
	RolePartner:       "Channel Partner",
	RoleLegacyPartner: "Legacy Partner",
	RoleCustomer:      "Customer",
}

func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleAdmin,
		RoleManagement,
		RoleSales,
		RoleCRMManager,
		RoleFinance,
		RolePartner,
		RoleLegacyPartner,
		RoleCustomer,
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))

	if _, ok := roleLabels[r]; !ok {
		return RoleNone, fmt.Errorf("%w: %w: %q", ErrValidation, ErrRoleUnknown, s)
	}

	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

func (r Role) Label() string {
	return roleLabels[r]
}

// Identifier is the demo login shown on the verification screen.
func (r Role) Identifier() string {
	if r == RoleNone {
		return ""
	}

	return strings.ToLower(string(r)) + "@manortha.com"
}

type RoleInfo struct {
	Role  Role   `json:"role"`
	Label string `json:"label"`
}
