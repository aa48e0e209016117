// Package views renders the console pages as templ components.
package views

import (
	"encoding/json"
	"strings"

	"github.com/a-h/templ"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
)

const appTitle = "Nexus Console"

const htmxScript = `<script src="https://unpkg.com/htmx.org@2.0.4" integrity="sha384-HGfztofotfshcF7+8n44JQL2oJmowVChPTg48S+jvZoztPfvwD79OC/LTtG6dMp+" crossorigin="anonymous"></script>`

func pageTitle(title string) string {
	if title = strings.TrimSpace(title); title == "" {
		return appTitle
	}
	return title + " · " + appTitle
}

func csrfHeaders(token string) string {
	raw, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func head(h *htmlWriter, title string) {
	h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
	h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	h.raw(`<title>`)
	h.text(pageTitle(title))
	h.raw(`</title>`, htmxScript, `</head>`)
}

// Layout wraps body in the authenticated shell: header, menu and toast.
func Layout(data viewmodels.LayoutData, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		head(h, data.Title)
		h.raw(`<body hx-boost="true"`)
		h.attr("hx-headers", csrfHeaders(data.CSRFToken))
		h.raw(`>`)

		h.raw(`<header class="app-header"><a class="brand" href="/">`, appTitle, `</a>`)
		if data.UserEmail != "" {
			h.raw(`<div class="user-menu"><span class="avatar" aria-hidden="true">`)
			h.text(data.UserInitials)
			h.raw(`</span><span class="user-name">`)
			h.text(data.UserName)
			h.raw(`</span><span class="user-email">`)
			h.text(data.UserEmail)
			h.raw(`</span>`)
			for _, r := range data.Roles {
				roleBadge(h, r)
			}
			h.raw(`<form method="post" action="/logout" hx-boost="false">`)
			h.csrfField(data.CSRFToken)
			h.raw(`<button type="submit" class="btn-link">Sign out</button></form></div>`)
		}
		h.raw(`</header>`)

		if len(data.Menu) > 0 {
			h.raw(`<nav class="sidebar" aria-label="Main"><ul>`)
			for _, item := range data.Menu {
				h.raw(`<li><a`)
				h.attr("href", item.Href)
				if item.Active {
					h.attr("aria-current", AriaCurrent(item.Active))
					h.attr("class", "active")
				}
				h.raw(`>`)
				h.text(item.Label)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></nav>`)
		}

		if data.NeedsEmailVerification {
			h.raw(`<div class="alert alert-warning" role="status">Your email address is not verified. `)
			h.raw(`<form method="post" action="/my-profile/verify-email" class="inline">`)
			h.csrfField(data.CSRFToken)
			h.raw(`<button type="submit" class="btn-link">Resend verification email</button></form></div>`)
		}

		h.raw(`<main id="main">`)
		h.render(body)
		h.raw(`</main>`)
		toast(h, data.Toast)
		h.raw(`</body></html>`)
	})
}

func roleBadge(h *htmlWriter, r viewmodels.RoleBadge) {
	h.raw(`<span`)
	h.attr("class", r.Class)
	h.attr("data-role", r.Value)
	h.raw(`>`)
	h.text(r.Label)
	h.raw(`</span>`)
}

func toast(h *htmlWriter, t *viewmodels.ToastViewData) {
	if t == nil {
		return
	}
	destructive := IsAlertDestructive(t.Category)
	h.raw(`<div id="toast"`)
	h.attr("class", "toast toast-"+t.Category)
	h.attr("role", AlertRole(destructive))
	h.attr("data-category", t.Category)
	h.raw(`>`)
	if t.Title != "" {
		h.raw(`<strong class="toast-title">`)
		h.text(t.Title)
		h.raw(`</strong>`)
	}
	if t.Description != "" {
		h.raw(`<p class="toast-description">`)
		h.text(t.Description)
		h.raw(`</p>`)
	}
	h.raw(`</div>`)
}

func alert(h *htmlWriter, message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	h.raw(`<div class="alert alert-error" role="alert">`)
	h.text(message)
	h.raw(`</div>`)
}
