package views

import (
	"github.com/a-h/templ"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
)

func authShell(h *htmlWriter, title string, toastData *viewmodels.ToastViewData, body func()) {
	head(h, title)
	h.raw(`<body class="auth"><main class="auth-card"><h1>`, appTitle, `</h1>`)
	body()
	h.raw(`</main>`)
	toast(h, toastData)
	h.raw(`</body></html>`)
}

func LoginPage(data viewmodels.LoginViewData) templ.Component {
	return component(func(h *htmlWriter) {
		authShell(h, "Sign in", data.Toast, func() {
			h.raw(`<h2>Sign in</h2>`)
			if data.Unavailable {
				h.raw(`<div class="alert alert-warning" role="status">Sign-in is unavailable: the identity provider is not configured.</div>`)
			}
			alert(h, data.ErrorMessage)
			h.raw(`<form method="post" action="/login">`)
			h.csrfField(data.CSRFToken)
			if data.Redirect != "" {
				h.raw(`<input type="hidden" name="redirect"`)
				h.attr("value", data.Redirect)
				h.raw(`>`)
			}
			h.raw(`<label for="email">Email</label><input id="email" type="email" name="email" autocomplete="username" required`)
			h.attr("value", data.Email)
			h.raw(`>`)
			h.raw(`<label for="password">Password</label><input id="password" type="password" name="password" autocomplete="current-password" required>`)
			h.raw(`<button type="submit" class="btn-primary">Sign in</button></form>`)
			h.raw(`<p><a href="/reset-password">Forgot your password?</a></p>`)
		})
	})
}

func ResetPasswordPage(data viewmodels.ResetPasswordViewData) templ.Component {
	return component(func(h *htmlWriter) {
		authShell(h, "Reset password", data.Toast, func() {
			h.raw(`<h2>Reset password</h2>`)
			if data.Sent {
				h.raw(`<div class="alert alert-success" role="status">If an account exists for `)
				h.text(data.Email)
				h.raw(`, a password reset link is on its way.</div>`)
			}
			alert(h, data.ErrorMessage)
			h.raw(`<form method="post" action="/reset-password">`)
			h.csrfField(data.CSRFToken)
			h.raw(`<label for="email">Email</label><input id="email" type="email" name="email" autocomplete="username" required`)
			h.attr("value", data.Email)
			h.raw(`>`)
			h.raw(`<button type="submit" class="btn-primary">Send reset link</button></form>`)
			h.raw(`<p><a href="/login">Back to sign in</a></p>`)
		})
	})
}
