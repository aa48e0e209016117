package viewmodels

type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type MenuItem struct {
	Label  string
	Href   string
	Active bool
}

type RoleBadge struct {
	Value string
	Label string
	Class string
}

type LayoutData struct {
	Title                  string
	CSRFToken              string
	UserEmail              string
	UserName               string
	UserInitials           string
	Roles                  []RoleBadge
	IsAdmin                bool
	NeedsEmailVerification bool
	Menu                   []MenuItem
	Toast                  *ToastViewData
	ActivePath             string
}
