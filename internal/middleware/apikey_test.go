package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
)

func adminProbe(t *testing.T, configuredKey, sentKey string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/admin/municipalities", nil)
    if sentKey != "" {
        req.Header.Set(adminKeyHeader, sentKey)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    h := RequireAdminKey(configuredKey)(func(c echo.Context) error {
        return c.String(http.StatusOK, "ok")
    })
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    return rec
}

func TestRequireAdminKey(t *testing.T) {
    if rec := adminProbe(t, "secret", "secret"); rec.Code != http.StatusOK {
        t.Fatalf("valid key: status = %d, want 200", rec.Code)
    }
    if rec := adminProbe(t, "secret", "wrong"); rec.Code != http.StatusForbidden {
        t.Fatalf("wrong key: status = %d, want 403", rec.Code)
    }
    if rec := adminProbe(t, "secret", ""); rec.Code != http.StatusForbidden {
        t.Fatalf("missing key: status = %d, want 403", rec.Code)
    }
}

func TestRequireAdminKeyDisabled(t *testing.T) {
    // An empty configured key closes the admin surface entirely.
    if rec := adminProbe(t, "", "anything"); rec.Code != http.StatusForbidden {
        t.Fatalf("disabled admin: status = %d, want 403", rec.Code)
    }
}
