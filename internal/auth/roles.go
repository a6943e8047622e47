package auth

// Role names a portal user family.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCSP      Role = "csp"
	RoleFI       Role = "fi"
	RoleAuditor  Role = "auditor"
	RoleBank     Role = "bank"
	RoleCustomer Role = "customer"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleCSP, RoleFI, RoleAuditor, RoleBank, RoleCustomer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}
