package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

const (
	headerHXRequest  = "HX-Request"
	headerHXRedirect = "HX-Redirect"
)

// isHX reports whether the request was issued by htmx, boosted links and
// forms included.
func isHX(c *echo.Context) bool {
	if c == nil || c.Request() == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.Request().Header.Get(headerHXRequest)), "true")
}

// seeOther finishes a POST. Plain browsers get a 303; htmx gets HX-Redirect
// so the whole page, layout and CSRF header included, is reloaded.
func seeOther(c *echo.Context, location string) error {
	addVary(c, headerHXRequest)
	if isHX(c) {
		c.Response().Header().Set(headerHXRedirect, location)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

// addVary merges header names into Vary without duplicates. A "*" already
// present, or passed in, wins over everything else.
func addVary(c *echo.Context, names ...string) {
	if c == nil || len(names) == 0 {
		return
	}
	header := c.Response().Header()

	var merged []string
	seen := make(map[string]bool)
	add := func(name string) bool {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			return false
		case name == "*":
			return true
		}
		canonical := http.CanonicalHeaderKey(name)
		if key := strings.ToLower(canonical); !seen[key] {
			seen[key] = true
			merged = append(merged, canonical)
		}
		return false
	}

	for _, line := range header.Values(echo.HeaderVary) {
		for _, name := range strings.Split(line, ",") {
			if add(name) {
				header.Set(echo.HeaderVary, "*")
				return
			}
		}
	}
	for _, name := range names {
		if add(name) {
			header.Set(echo.HeaderVary, "*")
			return
		}
	}
	if len(merged) > 0 {
		header.Set(echo.HeaderVary, strings.Join(merged, ", "))
	}
}
