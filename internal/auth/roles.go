package auth

import "branch-pos/internal/models"

// Capability is an action guarded by role.
type Capability string

const (
	CapManageUsers     Capability = "manage_users"
	CapManageBranches  Capability = "manage_branches"
	CapManageCatalog   Capability = "manage_catalog"
	CapManageCustomers Capability = "manage_customers"
	CapManageInventory Capability = "manage_inventory"
	CapCreateSale      Capability = "create_sale"
	CapVoidSale        Capability = "void_sale"
	CapViewSales       Capability = "view_sales"
	CapViewReports     Capability = "view_reports"
	CapUseAssistant    Capability = "use_assistant"
)

var capabilities = map[models.Role][]Capability{
	models.RoleOwner: {
		CapManageUsers, CapManageBranches, CapManageCatalog, CapManageCustomers, CapManageInventory,
		CapCreateSale, CapVoidSale, CapViewSales, CapViewReports, CapUseAssistant,
	},
	models.RoleAdmin: {
		CapManageUsers, CapManageBranches, CapManageCatalog, CapManageCustomers, CapManageInventory,
		CapCreateSale, CapVoidSale, CapViewSales, CapViewReports, CapUseAssistant,
	},
	models.RoleManager: {
		CapManageCatalog, CapManageCustomers, CapManageInventory,
		CapCreateSale, CapVoidSale, CapViewSales, CapViewReports,
	},
	models.RoleCashier: {
		CapManageCustomers, CapCreateSale, CapViewSales,
	},
	models.RoleAuditor: {
		CapViewSales, CapViewReports,
	},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role models.Role, capability Capability) bool {
	for _, c := range capabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
