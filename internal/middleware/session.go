// Package middleware holds echo middleware: citizen session authentication,
// admin API-key gating and redis rate limiting.
package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/municipal-voting/internal/repository"
    "github.com/iliyamo/municipal-voting/internal/utils"
)

// Context keys populated by CitizenAuth for downstream handlers.
const (
    CtxCitizenID       = "citizen_id"
    CtxMunicipalityID  = "municipality_id"
    CtxVotingSessionID = "voting_session_id"
    CtxAuthMethod      = "auth_method"
    CtxSessionToken    = "session_token"
)

// CitizenAuth validates the opaque bearer token against stored session
// hashes and loads the citizen's identity into the request context.
// Missing, unknown, expired and revoked tokens all get the same 401.
func CitizenAuth(sessions *repository.AuthSessionRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            token := bearerToken(c)
            if token == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or invalid authorization header"})
            }

            s, err := sessions.Validate(c.Request().Context(), utils.HashToken(token))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
            }

            c.Set(CtxCitizenID, s.CitizenID)
            c.Set(CtxMunicipalityID, s.MunicipalityID)
            c.Set(CtxVotingSessionID, s.VotingSessionID)
            c.Set(CtxAuthMethod, s.AuthMethod)
            c.Set(CtxSessionToken, token)
            return next(c)
        }
    }
}

// OptionalCitizenAuth loads the session context when a valid token is
// present but lets anonymous requests through.  Used by session listing so
// logged-in citizens see their has-voted flag.
func OptionalCitizenAuth(sessions *repository.AuthSessionRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            token := bearerToken(c)
            if token != "" {
                if s, err := sessions.Validate(c.Request().Context(), utils.HashToken(token)); err == nil {
                    c.Set(CtxCitizenID, s.CitizenID)
                    c.Set(CtxMunicipalityID, s.MunicipalityID)
                    c.Set(CtxVotingSessionID, s.VotingSessionID)
                    c.Set(CtxAuthMethod, s.AuthMethod)
                    c.Set(CtxSessionToken, token)
                }
            }
            return next(c)
        }
    }
}

func bearerToken(c echo.Context) string {
    h := c.Request().Header.Get(echo.HeaderAuthorization)
    if h == "" || !strings.HasPrefix(h, "Bearer ") {
        return ""
    }
    return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
