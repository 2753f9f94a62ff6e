// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/municipal-voting/internal/config"
    "github.com/iliyamo/municipal-voting/internal/handler"
    "github.com/iliyamo/municipal-voting/internal/middleware"
    "github.com/iliyamo/municipal-voting/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the SPID handshake and session endpoints.  The two
// handshake legs are unauthenticated; /v1/auth/me and logout require a
// citizen session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, sessions *repository.AuthSessionRepo) {
    g := e.Group("/v1/auth")
    // Leg one: resolve the authorize URL for a voting session.
    g.GET("/spid/login", a.SPIDLogin)
    // Leg two: the identity provider posts id_token and state back here.
    // GET is accepted too for providers configured with query response mode.
    g.POST("/spid/callback", a.SPIDCallback)
    g.GET("/spid/callback", a.SPIDCallback)

    authed := e.Group("/v1/auth", middleware.CitizenAuth(sessions))
    authed.GET("/me", a.Me)
    authed.POST("/logout", a.Logout)
}

// RegisterVoting wires session browsing, vote casting and results.
// Browsing and results are public; the vote endpoint requires a citizen
// session and is rate limited.
func RegisterVoting(e *echo.Echo, v *handler.VotingHandler, r *handler.ResultsHandler,
    sessions *repository.AuthSessionRepo, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    e.GET("/v1/voting-sessions", v.ListSessions)
    // Session detail reveals has_voted only to logged-in citizens.
    e.GET("/v1/voting-sessions/:id", v.GetSession, middleware.OptionalCitizenAuth(sessions))
    e.GET("/v1/voting-sessions/:id/results", r.GetResults)

    vote := e.Group("/v1/voting",
        middleware.CitizenAuth(sessions),
        middleware.NewTokenBucket(rlCfg, rdb))
    vote.POST("/vote", v.CastVote)
}

// RegisterAdmin wires the administrative API behind the shared key.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, adminKey string) {
    g := e.Group("/v1/admin", middleware.RequireAdminKey(adminKey))

    g.POST("/municipalities", a.CreateMunicipality)
    g.GET("/municipalities", a.ListMunicipalities)
    g.PUT("/municipalities/:id", a.UpdateMunicipality)
    g.DELETE("/municipalities/:id", a.DeleteMunicipality)

    g.POST("/voting-sessions", a.CreateSession)
    g.PUT("/voting-sessions/:id", a.UpdateSession)
    g.DELETE("/voting-sessions/:id", a.DeleteSession)
    g.GET("/voting-sessions/:id/stats", a.SessionStats)

    g.POST("/options", a.CreateOption)
    g.PUT("/options/:id", a.UpdateOption)
    g.DELETE("/options/:id", a.DeleteOption)

    g.GET("/citizens/:id", a.GetCitizen)
}
