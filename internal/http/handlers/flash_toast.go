package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/notify"
)

const (
	flashToastCookieName = "nexus_toast"

	contextKeyToastNotifier = "toast_notifier"
)

func setFlashToast(c *echo.Context, toast viewmodels.ToastViewData) {
	toast.Category = normalizeToastCategory(toast.Category)
	toast.Title = strings.TrimSpace(toast.Title)
	toast.Description = strings.TrimSpace(toast.Description)
	if toast.Title == "" && toast.Description == "" {
		return
	}

	payload, err := json.Marshal(toast)
	if err != nil {
		return
	}

	c.SetCookie(&http.Cookie{
		Name:     flashToastCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearFlashToast(c *echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     flashToastCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlashToast(c *echo.Context) *viewmodels.ToastViewData {
	cookie, err := c.Cookie(flashToastCookieName)
	if err != nil || cookie == nil {
		return nil
	}

	clearFlashToast(c)

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var toast viewmodels.ToastViewData
	if err := json.Unmarshal(raw, &toast); err != nil {
		return nil
	}

	toast.Category = normalizeToastCategory(toast.Category)
	toast.Title = strings.TrimSpace(toast.Title)
	toast.Description = strings.TrimSpace(toast.Description)
	if toast.Title == "" && toast.Description == "" {
		return nil
	}

	return &toast
}

func normalizeToastCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "success", "error", "warning", "info":
		return strings.ToLower(strings.TrimSpace(category))
	default:
		return "info"
	}
}

func toastView(t notify.Toast) viewmodels.ToastViewData {
	return viewmodels.ToastViewData{
		Category:    string(t.Severity),
		Title:       t.Title,
		Description: t.Message,
	}
}

// cookieNotifier turns notifications raised while handling a request into
// the flash cookie, so they survive a redirect. The latest toast wins.
type cookieNotifier struct {
	c *echo.Context

	mu   sync.Mutex
	last *viewmodels.ToastViewData
}

func (n *cookieNotifier) Notify(_ context.Context, t notify.Toast) {
	view := toastView(t)
	n.mu.Lock()
	n.last = &view
	n.mu.Unlock()
	setFlashToast(n.c, view)
}

func (n *cookieNotifier) take() *viewmodels.ToastViewData {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := n.last
	n.last = nil
	return t
}

// ToastNotifier installs a notifier on the request context that records
// toasts in the flash cookie.
func ToastNotifier() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			n := &cookieNotifier{c: c}
			c.Set(contextKeyToastNotifier, n)
			req := c.Request()
			c.SetRequest(req.WithContext(notify.WithNotifier(req.Context(), n)))
			return next(c)
		}
	}
}

// takeToast returns the toast to show on the page being rendered: one
// raised during this request (which is then not carried to the next page)
// or the flash cookie left by a redirect.
func takeToast(c *echo.Context) *viewmodels.ToastViewData {
	if n, ok := c.Get(contextKeyToastNotifier).(*cookieNotifier); ok {
		if t := n.take(); t != nil {
			clearFlashToast(c)
			return t
		}
	}
	return popFlashToast(c)
}
