package middleware

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"
)

// adminKeyHeader carries the administrative API key.
const adminKeyHeader = "X-Admin-Key"

// RequireAdminKey gates the administrative API behind a static key.  An
// empty configured key disables the whole admin surface rather than
// leaving it open.
func RequireAdminKey(key string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if key == "" {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "admin api disabled"})
            }
            got := c.Request().Header.Get(adminKeyHeader)
            if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid admin key"})
            }
            return next(c)
        }
    }
}
