package viewmodels

type LoginViewData struct {
	CSRFToken    string
	Email        string
	Redirect     string
	ErrorMessage string
	// Unavailable is set when the identity provider is not configured.
	Unavailable bool
	Toast       *ToastViewData
}

type ResetPasswordViewData struct {
	CSRFToken    string
	Email        string
	ErrorMessage string
	Sent         bool
	Toast        *ToastViewData
}
