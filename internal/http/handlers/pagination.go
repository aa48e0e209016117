package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
)

const usersPerPage = 20

func parsePageParam(c *echo.Context) int {
	page := 1
	if rawPage := strings.TrimSpace(c.QueryParam("page")); rawPage != "" {
		if parsed, err := strconv.Atoi(rawPage); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

// pageBounds derives the pager state when the backend omits it.
func pageBounds(totalCount, page, perPage int) (totalPages int, hasPrev, hasNext bool) {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	totalPages = (totalCount + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	return totalPages, page > 1, page < totalPages
}
