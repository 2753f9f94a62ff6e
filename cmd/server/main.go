package main

import (
    "log"
    "net/http"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/iliyamo/municipal-voting/internal/config"
    "github.com/iliyamo/municipal-voting/internal/crypto"
    "github.com/iliyamo/municipal-voting/internal/database"
    "github.com/iliyamo/municipal-voting/internal/handler"
    "github.com/iliyamo/municipal-voting/internal/oidc"
    "github.com/iliyamo/municipal-voting/internal/queue"
    "github.com/iliyamo/municipal-voting/internal/repository"
    "github.com/iliyamo/municipal-voting/internal/router"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()
    rlCfg := config.LoadRateLimitConfig()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient()

    cryptoSvc, err := crypto.New(cfg.EncryptionKey)
    if err != nil {
        log.Fatalf("crypto: %v", err)
    }

    // Metadata and JWKS caches live in redis when available so restarts
    // and replicas share them; otherwise each process caches in memory.
    var oidcCache oidc.Cache
    if rdb != nil {
        oidcCache = oidc.NewRedisCache(rdb)
    } else {
        oidcCache = oidc.NewMemoryCache()
    }
    verifier := oidc.NewVerifier(oidc.Config{
        Tenant:   cfg.SPIDTenant,
        Policy:   cfg.SPIDPolicy,
        ClientID: cfg.SPIDClientID,
    }, oidcCache, &http.Client{Timeout: 10 * time.Second})

    municipalities := repository.NewMunicipalityRepo(db)
    citizens := repository.NewCitizenRepo(db, cryptoSvc)
    sessions := repository.NewVotingSessionRepo(db)
    options := repository.NewOptionRepo(db)
    votes := repository.NewVoteRepo(db)
    authSessions := repository.NewAuthSessionRepo(db)

    authH := handler.NewAuthHandler(cfg, verifier, citizens, sessions, authSessions, cryptoSvc)
    votingH := handler.NewVotingHandler(sessions, options, votes)
    resultsH := handler.NewResultsHandler(sessions, votes)
    adminH := handler.NewAdminHandler(municipalities, sessions, options, citizens, votes, cryptoSvc)

    go func() {
        if err := queue.StartVoteConsumer(); err != nil {
            log.Printf("vote-consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, authSessions)
    router.RegisterVoting(e, votingH, resultsH, authSessions, rlCfg, rdb)
    router.RegisterAdmin(e, adminH, cfg.AdminAPIKey)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
