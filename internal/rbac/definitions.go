package rbac

// Permission categories.
const (
	CategoryUserManagement    = "user_management"
	CategoryContentManagement = "content_management"
	CategoryPaymentProcessing = "payment_processing"
	CategoryReporting         = "reporting"
	CategorySystemConfig      = "system_config"
)

// Permission actions.
const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionExport  = "export"
	ActionImport  = "import"
	ActionAssign  = "assign"
)

// Built-in role names.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleStaff      = "staff"
)

// Permission keys.
const (
	PermUserRead       = "USER_READ"
	PermUserCreate     = "USER_CREATE"
	PermUserUpdate     = "USER_UPDATE"
	PermUserDelete     = "USER_DELETE"
	PermUserAssignRole = "USER_ASSIGN_ROLE"

	PermContentRead    = "CONTENT_READ"
	PermContentCreate  = "CONTENT_CREATE"
	PermContentUpdate  = "CONTENT_UPDATE"
	PermContentDelete  = "CONTENT_DELETE"
	PermContentApprove = "CONTENT_APPROVE"

	PermPaymentRead    = "PAYMENT_READ"
	PermPaymentCreate  = "PAYMENT_CREATE"
	PermPaymentUpdate  = "PAYMENT_UPDATE"
	PermPaymentApprove = "PAYMENT_APPROVE"
	PermPaymentReject  = "PAYMENT_REJECT"

	PermReportRead   = "REPORT_READ"
	PermReportCreate = "REPORT_CREATE"
	PermReportExport = "REPORT_EXPORT"

	PermSystemRead   = "SYSTEM_READ"
	PermSystemUpdate = "SYSTEM_UPDATE"
	PermSystemImport = "SYSTEM_IMPORT"
	PermSystemExport = "SYSTEM_EXPORT"
)

// Actions lists every valid permission action.
var Actions = []string{ //nolint:gochecknoglobals
	ActionCreate, ActionRead, ActionUpdate, ActionDelete,
	ActionApprove, ActionReject, ActionExport, ActionImport, ActionAssign,
}

// ValidAction reports whether action is one of Actions.
func ValidAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}

	return false
}

// PermissionDef describes a permission of the built-in catalog.
type PermissionDef struct {
	Key         string
	Category    string
	Action      string
	Description string
}

// RoleDef describes a built-in role and the permission keys it holds.
type RoleDef struct {
	Name        string
	Description string
	Permissions []string
}

// Catalog is a set of permission and role definitions.
type Catalog struct {
	Permissions []PermissionDef
	Roles       []RoleDef
}

// Definitions returns the built-in catalog.
func Definitions() Catalog {
	perms := []PermissionDef{
		{PermUserRead, CategoryUserManagement, ActionRead, "View user information"},
		{PermUserCreate, CategoryUserManagement, ActionCreate, "Create new users"},
		{PermUserUpdate, CategoryUserManagement, ActionUpdate, "Update user information"},
		{PermUserDelete, CategoryUserManagement, ActionDelete, "Delete users"},
		{PermUserAssignRole, CategoryUserManagement, ActionAssign, "Assign roles to users"},

		{PermContentRead, CategoryContentManagement, ActionRead, "View content"},
		{PermContentCreate, CategoryContentManagement, ActionCreate, "Create new content"},
		{PermContentUpdate, CategoryContentManagement, ActionUpdate, "Update existing content"},
		{PermContentDelete, CategoryContentManagement, ActionDelete, "Delete content"},
		{PermContentApprove, CategoryContentManagement, ActionApprove, "Approve content"},

		{PermPaymentRead, CategoryPaymentProcessing, ActionRead, "View payment information"},
		{PermPaymentCreate, CategoryPaymentProcessing, ActionCreate, "Create new payments"},
		{PermPaymentUpdate, CategoryPaymentProcessing, ActionUpdate, "Update payment information"},
		{PermPaymentApprove, CategoryPaymentProcessing, ActionApprove, "Approve payments"},
		{PermPaymentReject, CategoryPaymentProcessing, ActionReject, "Reject payments"},

		{PermReportRead, CategoryReporting, ActionRead, "View reports"},
		{PermReportCreate, CategoryReporting, ActionCreate, "Create new reports"},
		{PermReportExport, CategoryReporting, ActionExport, "Export reports"},

		{PermSystemRead, CategorySystemConfig, ActionRead, "View system configuration"},
		{PermSystemUpdate, CategorySystemConfig, ActionUpdate, "Update system configuration"},
		{PermSystemImport, CategorySystemConfig, ActionImport, "Import system data"},
		{PermSystemExport, CategorySystemConfig, ActionExport, "Export system data"},
	}

	all := make([]string, 0, len(perms))
	for _, p := range perms {
		all = append(all, p.Key)
	}

	return Catalog{
		Permissions: perms,
		Roles: []RoleDef{
			{
				Name:        RoleAdmin,
				Description: "Full access to every resource",
				Permissions: all,
			},
			{
				Name:        RoleSupervisor,
				Description: "Manages users, content, payments and reports",
				Permissions: []string{
					// users, except delete
					PermUserRead, PermUserCreate, PermUserUpdate, PermUserAssignRole,
					PermContentRead, PermContentCreate, PermContentUpdate, PermContentDelete, PermContentApprove,
					// payments: read and approve/reject
					PermPaymentRead, PermPaymentApprove, PermPaymentReject,
					PermReportRead, PermReportCreate, PermReportExport,
					PermSystemRead,
				},
			},
			{
				Name:        RoleStaff,
				Description: "Day to day operations",
				Permissions: []string{
					PermUserRead,
					PermContentRead, PermContentCreate, PermContentUpdate,
					PermPaymentRead, PermPaymentCreate,
					PermReportRead,
				},
			},
		},
	}
}
