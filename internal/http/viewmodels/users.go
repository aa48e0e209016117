package viewmodels

type UserRow struct {
	ID              string
	DisplayName     string
	Email           string
	Initials        string
	Roles           []RoleBadge
	UnknownRoles    []string
	EmailVerified   bool
	Disabled        bool
	LastSignIn      string
	LastSignInTitle string
	CreatedAt       string
}

type UserManagementViewData struct {
	Layout       LayoutData
	Users        []UserRow
	HasUsers     bool
	Page         int
	TotalPages   int
	TotalCount   int
	HasPrevious  bool
	HasNext      bool
	ErrorMessage string
}

type RoleOption struct {
	Value   string
	Label   string
	Checked bool
}

type UserDetailViewData struct {
	Layout       LayoutData
	User         UserRow
	RoleOptions  []RoleOption
	ErrorMessage string
}
