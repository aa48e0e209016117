package views

import (
	"github.com/a-h/templ"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
)

func DashboardPage(data viewmodels.DashboardViewData) templ.Component {
	body := component(func(h *htmlWriter) {
		h.raw(`<section class="dashboard"><h1>`)
		h.text(data.Greeting)
		h.raw(`</h1>`)

		if len(data.Shortcuts) > 0 {
			h.raw(`<div class="shortcuts">`)
			for _, s := range data.Shortcuts {
				h.raw(`<a class="card"`)
				h.attr("href", s.Href)
				h.raw(`>`)
				h.text(s.Label)
				h.raw(`</a>`)
			}
			h.raw(`</div>`)
		}

		h.raw(`<h2>Your access</h2><ul class="permissions">`)
		for _, p := range data.Permissions {
			h.raw(`<li`)
			if p.Allowed {
				h.attr("class", "allowed")
			} else {
				h.attr("class", "denied")
			}
			h.raw(`>`)
			h.text(p.Label)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)

		if len(data.Capabilities) > 0 {
			h.raw(`<ul class="capabilities">`)
			for _, c := range data.Capabilities {
				h.raw(`<li>`)
				h.text(c)
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)
	})
	return Layout(data.Layout, body)
}

func ProfilePage(data viewmodels.ProfileViewData) templ.Component {
	body := component(func(h *htmlWriter) {
		h.raw(`<section class="profile"><div class="avatar avatar-lg" aria-hidden="true">`)
		h.text(data.Initials)
		h.raw(`</div><h1>`)
		h.text(orDash(data.DisplayName))
		h.raw(`</h1><dl>`)
		h.raw(`<dt>Email</dt><dd>`)
		h.text(data.Email)
		if data.EmailVerified {
			h.raw(` <span class="badge bg-emerald-100 text-emerald-800">Verified</span>`)
		} else {
			h.raw(` <span class="badge bg-amber-100 text-amber-800">Unverified</span>`)
		}
		h.raw(`</dd><dt>User ID</dt><dd><code>`)
		h.text(data.UID)
		h.raw(`</code></dd><dt>Roles</dt><dd>`)
		if len(data.Roles) == 0 {
			h.raw(`No roles assigned`)
		}
		for _, r := range data.Roles {
			roleBadge(h, r)
		}
		h.raw(`</dd></dl>`)
		if !data.EmailVerified {
			h.raw(`<form method="post" action="/my-profile/verify-email">`)
			h.csrfField(data.Layout.CSRFToken)
			h.raw(`<button type="submit" class="btn-secondary">Resend verification email</button></form>`)
		}
		h.raw(`</section>`)
	})
	return Layout(data.Layout, body)
}
