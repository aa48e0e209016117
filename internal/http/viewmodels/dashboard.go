package viewmodels

type PermissionItem struct {
	Label   string
	Allowed bool
}

type DashboardViewData struct {
	Layout      LayoutData
	Greeting    string
	Shortcuts   []MenuItem
	Permissions []PermissionItem
	// Capabilities lists the derived role predicates that hold.
	Capabilities []string
}

type ProfileViewData struct {
	Layout        LayoutData
	UID           string
	Email         string
	DisplayName   string
	Initials      string
	EmailVerified bool
	Roles         []RoleBadge
}
