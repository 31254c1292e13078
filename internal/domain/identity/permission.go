package identity

// Permission is a resource:action code checked before an engine operation
type Permission string

const (
	PermInspectionWrite   Permission = "inspection:write"
	PermInspectionApprove Permission = "inspection:approve"
	PermSubjectWrite      Permission = "subject:write"
	PermFarmWrite         Permission = "farm:write"
	PermFinancingCreate   Permission = "financing:create"
	PermFinancingStatus   Permission = "financing:status"
	PermPaymentRegister   Permission = "payment:register"
	PermLedgerReadAll     Permission = "ledger:read_all"
	PermReportRead        Permission = "report:read"
	PermOutboxAdmin       Permission = "outbox:admin"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermInspectionWrite, PermInspectionApprove, PermSubjectWrite, PermFarmWrite,
		PermFinancingCreate, PermFinancingStatus, PermPaymentRegister,
		PermLedgerReadAll, PermReportRead, PermOutboxAdmin,
	},
	RoleOperator: {
		PermInspectionWrite, PermInspectionApprove, PermSubjectWrite, PermFarmWrite,
		PermFinancingCreate, PermPaymentRegister, PermLedgerReadAll, PermReportRead,
	},
	RoleFarmer: {},
}

// PermissionsOf returns the permissions granted to a role
func PermissionsOf(r Role) []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Grants reports whether the role holds the permission
func (r Role) Grants(p Permission) bool {
	for _, held := range rolePermissions[r] {
		if held == p {
			return true
		}
	}
	return false
}
