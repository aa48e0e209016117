package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/notify"
)

func TestFlashToastRoundTrip(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/")
	setFlashToast(c, viewmodels.ToastViewData{Category: "bogus", Title: " Saved "})

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != flashToastCookieName {
		t.Fatalf("cookies = %v", cookies)
	}

	next, nextRec := newTestContext(http.MethodGet, "http://example.com/")
	next.Request().AddCookie(cookies[0])
	got := popFlashToast(next)
	if got == nil || got.Title != "Saved" || got.Category != "info" {
		t.Fatalf("popFlashToast() = %+v", got)
	}
	if cleared := nextRec.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %v", cleared)
	}
}

func TestFlashToastIgnoresEmptyAndGarbage(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/")
	setFlashToast(c, viewmodels.ToastViewData{Category: "error"})
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("empty toast was written")
	}

	next, _ := newTestContext(http.MethodGet, "http://example.com/")
	next.Request().AddCookie(&http.Cookie{Name: flashToastCookieName, Value: "%%%"})
	if got := popFlashToast(next); got != nil {
		t.Fatalf("popFlashToast(garbage) = %+v", got)
	}
}

func TestToastNotifierSetsCookieAndPendingToast(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var pending *viewmodels.ToastViewData
	handler := ToastNotifier()(func(c *echo.Context) error {
		notify.Send(c.Request().Context(), notify.Error("You do not have permission to access this page.", "Access Denied"))
		pending = takeToast(c)
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if pending == nil || pending.Title != "Access Denied" || pending.Category != "error" {
		t.Fatalf("pending toast = %+v", pending)
	}
	var sawSet bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == flashToastCookieName && ck.MaxAge > 0 {
			sawSet = true
		}
	}
	if !sawSet {
		t.Fatal("toast cookie was not written")
	}
}
