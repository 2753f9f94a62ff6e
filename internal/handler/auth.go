package handler

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/municipal-voting/internal/config"
    "github.com/iliyamo/municipal-voting/internal/crypto"
    "github.com/iliyamo/municipal-voting/internal/model"
    "github.com/iliyamo/municipal-voting/internal/oidc"
    "github.com/iliyamo/municipal-voting/internal/repository"
    "github.com/iliyamo/municipal-voting/internal/utils"
)

// AuthHandler implements the two-leg SPID login handshake plus session
// logout and introspection.
type AuthHandler struct {
    Cfg      config.Config
    Verifier *oidc.Verifier
    Citizens *repository.CitizenRepo
    Sessions *repository.VotingSessionRepo
    Auth     *repository.AuthSessionRepo
    Crypto   *crypto.Service
}

func NewAuthHandler(cfg config.Config, v *oidc.Verifier, cz *repository.CitizenRepo,
    vs *repository.VotingSessionRepo, as *repository.AuthSessionRepo, cs *crypto.Service) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Verifier: v, Citizens: cz, Sessions: vs, Auth: as, Crypto: cs}
}

// ----- DTOs -----

type loginResp struct {
    AuthorizeURL string `json:"authorize_url"`
    State        string `json:"state"`
}

type callbackResp struct {
    Success         bool   `json:"success"`
    Message         string `json:"message"`
    CitizenID       uint64 `json:"citizen_id"`
    VotingSessionID uint64 `json:"voting_session_id"`
    SessionToken    string `json:"session_token"`
    RedirectURL     string `json:"redirect_url"`
}

// SPIDLogin is leg one of the handshake.  It checks the target voting
// session exists and is open, packs the session id into an opaque state
// blob, and returns the identity-provider authorize URL the frontend must
// redirect the citizen to.
func (h *AuthHandler) SPIDLogin(c echo.Context) error {
    sessionID, err := strconv.ParseUint(c.QueryParam("voting_session_id"), 10, 64)
    if err != nil || sessionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "voting_session_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    vs, muni, err := h.Sessions.GetWithMunicipality(ctx, sessionID)
    if err == sql.ErrNoRows {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }
    if !vs.IsOpen(time.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "voting session is not open"})
    }

    md, err := h.Verifier.FetchMetadata(ctx)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity provider unavailable"})
    }

    state := utils.NewState(sessionID)
    q := url.Values{}
    q.Set("client_id", h.Cfg.SPIDClientID)
    q.Set("response_type", "id_token")
    q.Set("response_mode", "form_post")
    q.Set("scope", "openid")
    q.Set("redirect_uri", h.Cfg.SPIDRedirect)
    q.Set("nonce", state.Nonce)
    q.Set("state", utils.EncodeState(state))
    // Municipality registry code, forwarded so the provider can scope the
    // login experience.
    q.Set("ipa_code", muni.IPACode)

    return c.JSON(http.StatusOK, loginResp{
        AuthorizeURL: md.AuthorizationEndpoint + "?" + q.Encode(),
        State:        utils.EncodeState(state),
    })
}

// SPIDCallback is leg two: the identity provider posts back id_token and
// state.  The handler decodes the state, verifies the token, resolves or
// registers the citizen, enforces the municipality binding, and issues an
// opaque session token.
func (h *AuthHandler) SPIDCallback(c echo.Context) error {
    idToken := c.FormValue("id_token")
    stateBlob := c.FormValue("state")
    if idToken == "" || stateBlob == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "id_token and state required"})
    }

    state, err := utils.DecodeState(stateBlob)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid state"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    vs, muni, err := h.Sessions.GetWithMunicipality(ctx, state.VotingSessionID)
    if err == sql.ErrNoRows {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    claims, err := h.Verifier.Verify(ctx, idToken)
    if err != nil {
        switch {
        case errors.Is(err, oidc.ErrTokenExpired):
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "identity token expired"})
        case errors.Is(err, oidc.ErrMissingFiscalCode):
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "identity token carries no fiscal code"})
        case errors.Is(err, oidc.ErrUpstreamUnavailable):
            return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity provider unavailable"})
        default:
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "identity token invalid"})
        }
    }

    hash := crypto.HashFiscalCode(claims.FiscalCode)
    citizen, err := h.Citizens.FindByFiscalHash(ctx, hash)
    switch {
    case err == nil:
        // Known citizen: the municipality chosen at first login is binding.
        if citizen.MunicipalityID != vs.MunicipalityID {
            return c.JSON(http.StatusForbidden, echo.Map{
                "error": "citizen is registered with a different municipality",
                "citizen_municipality_id": citizen.MunicipalityID,
                "session_municipality_id": vs.MunicipalityID,
            })
        }
        if terr := h.Citizens.TouchLastAccess(ctx, citizen.ID); terr != nil {
            log.Printf("auth: touch last access for citizen %d: %v", citizen.ID, terr)
        }
    case err == sql.ErrNoRows:
        var created bool
        citizen, created, err = h.Citizens.Create(ctx, vs.MunicipalityID,
            claims.FiscalCode, claims.FirstName, claims.LastName, claims.Email)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "citizen registration failed"})
        }
        if !created && citizen.MunicipalityID != vs.MunicipalityID {
            // Lost a registration race to a login against another
            // municipality; same rule as the known-citizen path.
            return c.JSON(http.StatusForbidden, echo.Map{
                "error": "citizen is registered with a different municipality",
                "citizen_municipality_id": citizen.MunicipalityID,
                "session_municipality_id": vs.MunicipalityID,
            })
        }
        if created {
            log.Printf("auth: registered citizen %d (hash %s) for municipality %s",
                citizen.ID, crypto.ShortHash(hash), muni.IPACode)
        }
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "citizen lookup failed"})
    }

    token, err := utils.NewSessionToken()
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session issue failed"})
    }
    as := model.AuthSession{
        CitizenID:       citizen.ID,
        MunicipalityID:  citizen.MunicipalityID,
        VotingSessionID: vs.ID,
        AuthMethod:      "spid",
        TokenHash:       utils.HashToken(token),
        ExpiresAt:       time.Now().Add(time.Duration(h.Cfg.SessionTTLHrs) * time.Hour),
    }
    if err := h.Auth.Store(ctx, &as); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session save failed"})
    }

    return c.JSON(http.StatusOK, callbackResp{
        Success:         true,
        Message:         "authentication successful",
        CitizenID:       citizen.ID,
        VotingSessionID: vs.ID,
        SessionToken:    token,
        RedirectURL:     h.Cfg.FrontendURL + "/vote/" + strconv.FormatUint(vs.ID, 10),
    })
}

// Logout revokes the current session token.
func (h *AuthHandler) Logout(c echo.Context) error {
    token, _ := c.Get("session_token").(string)
    if token == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no session"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Auth.RevokeByHash(ctx, utils.HashToken(token)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}

// Me returns the authenticated citizen's own profile with personal fields
// decrypted.  A decryption failure is a server fault (wrong key), never
// silently degraded.
func (h *AuthHandler) Me(c echo.Context) error {
    citizenID, _ := c.Get("citizen_id").(uint64)
    if citizenID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no session"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cz, err := h.Citizens.GetByID(ctx, citizenID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "citizen lookup failed"})
    }

    first, err1 := h.Crypto.Decrypt(cz.FirstNameEncrypted)
    last, err2 := h.Crypto.Decrypt(cz.LastNameEncrypted)
    email, err3 := h.Crypto.Decrypt(cz.EmailEncrypted)
    if err1 != nil || err2 != nil || err3 != nil {
        log.Printf("auth: decrypt profile for citizen %d failed", cz.ID)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile unavailable"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "citizen_id":      cz.ID,
        "municipality_id": cz.MunicipalityID,
        "first_name":      first,
        "last_name":       last,
        "email":           email,
        "registered_at":   cz.RegisteredAt,
        "auth_method":     c.Get("auth_method"),
    })
}
