package handler

import (
    "context"
    "database/sql"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/municipal-voting/internal/crypto"
    "github.com/iliyamo/municipal-voting/internal/model"
    "github.com/iliyamo/municipal-voting/internal/repository"
)

// AdminHandler exposes the administrative API: municipality, session and
// option management, plus citizen inspection.  All routes sit behind the
// admin API key.
type AdminHandler struct {
    Municipalities *repository.MunicipalityRepo
    Sessions       *repository.VotingSessionRepo
    Options        *repository.OptionRepo
    Citizens       *repository.CitizenRepo
    Votes          *repository.VoteRepo
    Crypto         *crypto.Service
}

func NewAdminHandler(m *repository.MunicipalityRepo, vs *repository.VotingSessionRepo,
    o *repository.OptionRepo, cz *repository.CitizenRepo, v *repository.VoteRepo,
    cs *crypto.Service) *AdminHandler {
    return &AdminHandler{Municipalities: m, Sessions: vs, Options: o, Citizens: cz, Votes: v, Crypto: cs}
}

func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// ----- municipalities -----

type municipalityReq struct {
    Name    string `json:"name"`
    IPACode string `json:"ipa_code"`
    CAP     string `json:"cap"`
}

func (h *AdminHandler) CreateMunicipality(c echo.Context) error {
    var req municipalityReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Name == "" || req.IPACode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and ipa_code required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    m := model.Municipality{Name: req.Name, IPACode: req.IPACode, CAP: req.CAP}
    if err := h.Municipalities.Create(ctx, &m); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "ipa_code already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }
    return c.JSON(http.StatusCreated, m)
}

func (h *AdminHandler) ListMunicipalities(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    out, err := h.Municipalities.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"municipalities": out})
}

func (h *AdminHandler) UpdateMunicipality(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req municipalityReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Name == "" || req.IPACode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and ipa_code required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Municipalities.Update(ctx, model.Municipality{ID: id, Name: req.Name, IPACode: req.IPACode, CAP: req.CAP})
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "municipality not found"})
    case repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "ipa_code already exists"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
}

func (h *AdminHandler) DeleteMunicipality(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Municipalities.Delete(ctx, id)
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "municipality not found"})
    case repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "municipality still has citizens or sessions"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
}

// ----- voting sessions -----

type sessionReq struct {
    MunicipalityID uint64    `json:"municipality_id"`
    Title          string    `json:"title"`
    Description    string    `json:"description"`
    Type           string    `json:"type"`
    StartDate      time.Time `json:"start_date"`
    EndDate        time.Time `json:"end_date"`
    IsActive       bool      `json:"is_active"`
    ResultsPublic  bool      `json:"results_public"`
}

func (r sessionReq) validate() string {
    if r.Title == "" {
        return "title required"
    }
    if !model.ValidSessionType(r.Type) {
        return "invalid session type"
    }
    if r.StartDate.IsZero() || r.EndDate.IsZero() || !r.EndDate.After(r.StartDate) {
        return "end_date must be after start_date"
    }
    return ""
}

func (h *AdminHandler) CreateSession(c echo.Context) error {
    var req sessionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.MunicipalityID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "municipality_id required"})
    }
    if msg := req.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Municipalities.GetByID(ctx, req.MunicipalityID); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "municipality not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    s := model.VotingSession{
        MunicipalityID: req.MunicipalityID,
        Title:          req.Title,
        Description:    req.Description,
        Type:           req.Type,
        StartDate:      req.StartDate,
        EndDate:        req.EndDate,
        IsActive:       req.IsActive,
        ResultsPublic:  req.ResultsPublic,
    }
    if err := h.Sessions.Create(ctx, &s); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }
    return c.JSON(http.StatusCreated, s)
}

func (h *AdminHandler) UpdateSession(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req sessionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := req.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s := model.VotingSession{
        ID:            id,
        Title:         req.Title,
        Description:   req.Description,
        Type:          req.Type,
        StartDate:     req.StartDate,
        EndDate:       req.EndDate,
        IsActive:      req.IsActive,
        ResultsPublic: req.ResultsPublic,
    }
    err := h.Sessions.Update(ctx, s)
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
}

func (h *AdminHandler) DeleteSession(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Sessions.Delete(ctx, id)
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    case repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "voting session has recorded votes"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
}

// SessionStats reports vote totals for a session, including the
// voter-ledger vs tally-ledger row counts which must match.
func (h *AdminHandler) SessionStats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Sessions.GetByID(ctx, id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    votes, err := h.Votes.CountBySession(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count failed"})
    }
    voters, err := h.Votes.CountVoters(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count failed"})
    }
    if votes != voters {
        log.Printf("admin: ledger mismatch session=%d votes=%d voters=%d", id, votes, voters)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "voting_session_id": id,
        "total_votes":       votes,
        "total_voters":      voters,
        "ledgers_match":     votes == voters,
    })
}

// ----- options -----

type optionReq struct {
    VotingSessionID uint64  `json:"voting_session_id"`
    Text            string  `json:"text"`
    DisplayOrder    int32   `json:"display_order"`
    ImageURL        *string `json:"image_url"`
}

func (h *AdminHandler) CreateOption(c echo.Context) error {
    var req optionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.VotingSessionID == 0 || req.Text == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "voting_session_id and text required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Sessions.GetByID(ctx, req.VotingSessionID); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    o := model.Option{
        VotingSessionID: req.VotingSessionID,
        Text:            req.Text,
        DisplayOrder:    req.DisplayOrder,
        ImageURL:        req.ImageURL,
    }
    if err := h.Options.Create(ctx, &o); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }
    return c.JSON(http.StatusCreated, o)
}

func (h *AdminHandler) UpdateOption(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req optionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Text == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    o := model.Option{ID: id, Text: req.Text, DisplayOrder: req.DisplayOrder, ImageURL: req.ImageURL}
    err := h.Options.Update(ctx, o)
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "option not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
}

func (h *AdminHandler) DeleteOption(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Options.Delete(ctx, id)
    switch err {
    case nil:
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    case sql.ErrNoRows:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "option not found"})
    case repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "option has recorded votes"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
}

// ----- citizens -----

// GetCitizen returns one citizen with personal fields decrypted for
// administrative support cases.  A decryption failure means the encryption
// key is wrong and is reported as a server fault.
func (h *AdminHandler) GetCitizen(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cz, err := h.Citizens.GetByID(ctx, id)
    if err == sql.ErrNoRows {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "citizen not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    fiscal, err := h.Crypto.Decrypt(cz.FiscalCodeEncrypted)
    if err != nil {
        log.Printf("admin: decrypt fiscal code for citizen %d failed", cz.ID)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decryption failed"})
    }
    first, err1 := h.Crypto.Decrypt(cz.FirstNameEncrypted)
    last, err2 := h.Crypto.Decrypt(cz.LastNameEncrypted)
    email, err3 := h.Crypto.Decrypt(cz.EmailEncrypted)
    if err1 != nil || err2 != nil || err3 != nil {
        log.Printf("admin: decrypt profile for citizen %d failed", cz.ID)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decryption failed"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "id":               cz.ID,
        "municipality_id":  cz.MunicipalityID,
        "fiscal_code":      fiscal,
        "fiscal_code_hash": cz.FiscalCodeHash,
        "first_name":       first,
        "last_name":        last,
        "email":            email,
        "registered_at":    cz.RegisteredAt,
        "last_access_at":   cz.LastAccessAt,
    })
}
