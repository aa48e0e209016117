package rbac

// Group is a named any-of eligibility set. Membership is static.
type Group struct {
	Name  string
	Roles []Role
}

var (
	GroupAdmins = Group{Name: "admins", Roles: []Role{RoleAdmin}}

	GroupSupportStaff = Group{Name: "support-staff", Roles: []Role{RoleAdmin, RoleSupport}}

	GroupProductManagers = Group{Name: "product-managers", Roles: []Role{RoleAdmin, RoleProductOwner}}

	GroupSalesTeam = Group{Name: "sales-team", Roles: []Role{RoleAdmin, RoleSupport, RoleSalesAdmin, RoleSalesRep}}

	GroupAllAuthenticated = Group{Name: "all-authenticated", Roles: AllRoles}
)

// Allows reports whether any role of the set is a member of g.
func (g Group) Allows(roles RoleSet) bool {
	return roles.HasAny(g.Roles...)
}

// IsAdmin reports membership of the admin role.
func IsAdmin(roles RoleSet) bool {
	return roles.Has(RoleAdmin)
}

func CanManageUsers(roles RoleSet) bool {
	return GroupAdmins.Allows(roles)
}

func CanAccessUsers(roles RoleSet) bool {
	return GroupAdmins.Allows(roles)
}

func CanManageSalesAccounts(roles RoleSet) bool {
	return GroupSalesTeam.Allows(roles)
}

func CanViewSalesAccountDetails(roles RoleSet) bool {
	return GroupSalesTeam.Allows(roles)
}

func CanAccessProductCatalog(roles RoleSet) bool {
	return GroupProductManagers.Allows(roles)
}

func CanAccessSupportTools(roles RoleSet) bool {
	return GroupSupportStaff.Allows(roles)
}

// CanAccessDashboard is true for every authenticated principal; the route
// middleware has already enforced authentication.
func CanAccessDashboard(RoleSet) bool {
	return true
}

// CanAccessMyProfile is true for every authenticated principal.
func CanAccessMyProfile(RoleSet) bool {
	return true
}
