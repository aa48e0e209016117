package views

import (
	"github.com/a-h/templ"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
)

func UserManagementPage(data viewmodels.UserManagementViewData) templ.Component {
	body := component(func(h *htmlWriter) {
		h.raw(`<section class="users"><h1>User Management</h1>`)
		alert(h, data.ErrorMessage)
		if !data.HasUsers {
			if data.ErrorMessage == "" {
				h.raw(`<p class="empty">No users found.</p>`)
			}
			h.raw(`</section>`)
			return
		}

		h.raw(`<table class="table"><thead><tr><th>User</th><th>Roles</th><th>Status</th><th>Last sign-in</th></tr></thead><tbody>`)
		for _, u := range data.Users {
			h.raw(`<tr><td><a`)
			h.attr("href", UserDetailURL(u.ID))
			h.raw(`><span class="avatar" aria-hidden="true">`)
			h.text(u.Initials)
			h.raw(`</span> `)
			h.text(orDash(u.DisplayName))
			h.raw(`</a><div class="muted">`)
			h.text(u.Email)
			h.raw(`</div></td><td>`)
			for _, r := range u.Roles {
				roleBadge(h, r)
			}
			for _, raw := range u.UnknownRoles {
				h.raw(`<span class="badge bg-gray-100 text-gray-800" title="Not managed by this console">`)
				h.text(raw)
				h.raw(`</span>`)
			}
			h.raw(`</td><td><span`)
			h.attr("class", StatusBadgeClass(u.Disabled))
			h.raw(`>`)
			h.text(StatusLabel(u.Disabled))
			h.raw(`</span></td><td`)
			h.attr("title", u.LastSignInTitle)
			h.raw(`>`)
			h.text(u.LastSignIn)
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		h.raw(`<nav class="pagination" aria-label="Pagination">`)
		if data.HasPrevious {
			h.raw(`<a rel="prev"`)
			h.attr("href", UsersListURL(data.Page-1))
			h.raw(`>Previous</a>`)
		}
		h.raw(`<span>Page `, FormatInt(data.Page), ` of `, FormatInt(max(data.TotalPages, 1)), ` (`, FormatInt(data.TotalCount), ` users)</span>`)
		if data.HasNext {
			h.raw(`<a rel="next"`)
			h.attr("href", UsersListURL(data.Page+1))
			h.raw(`>Next</a>`)
		}
		h.raw(`</nav></section>`)
	})
	return Layout(data.Layout, body)
}

func UserDetailPage(data viewmodels.UserDetailViewData) templ.Component {
	body := component(func(h *htmlWriter) {
		u := data.User
		h.raw(`<section class="user-detail"><p><a href="/user-management">Back to users</a></p><h1>`)
		h.text(orDash(u.DisplayName))
		h.raw(`</h1>`)
		alert(h, data.ErrorMessage)

		h.raw(`<dl><dt>Email</dt><dd>`)
		h.text(u.Email)
		h.raw(`</dd><dt>User ID</dt><dd><code>`)
		h.text(u.ID)
		h.raw(`</code></dd><dt>Status</dt><dd>`)
		h.text(StatusLabel(u.Disabled))
		h.raw(`</dd><dt>Created</dt><dd>`)
		h.text(orDash(u.CreatedAt))
		h.raw(`</dd><dt>Last sign-in</dt><dd`)
		h.attr("title", u.LastSignInTitle)
		h.raw(`>`)
		h.text(u.LastSignIn)
		h.raw(`</dd></dl>`)

		h.raw(`<form method="post"`)
		h.attr("action", UserRolesURL(u.ID))
		h.raw(`><fieldset><legend>Roles</legend>`)
		h.csrfField(data.Layout.CSRFToken)
		for _, opt := range data.RoleOptions {
			id := "role-" + opt.Value
			h.raw(`<label`)
			h.attr("for", id)
			h.raw(`><input type="checkbox" name="roles"`)
			h.attr("id", id)
			h.attr("value", opt.Value)
			if opt.Checked {
				h.raw(` checked`)
			}
			h.raw(`> `)
			h.text(opt.Label)
			h.raw(`</label>`)
		}
		if len(u.UnknownRoles) > 0 {
			h.raw(`<p class="muted">Other roles are kept: `)
			for i, raw := range u.UnknownRoles {
				if i > 0 {
					h.raw(`, `)
				}
				h.text(raw)
			}
			h.raw(`</p>`)
		}
		h.raw(`</fieldset><button type="submit" class="btn-primary">Save roles</button></form></section>`)
	})
	return Layout(data.Layout, body)
}
