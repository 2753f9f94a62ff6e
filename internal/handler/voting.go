package handler

import (
    "context"
    "database/sql"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/municipal-voting/internal/model"
    "github.com/iliyamo/municipal-voting/internal/queue"
    "github.com/iliyamo/municipal-voting/internal/repository"
    queue_publisher "github.com/iliyamo/municipal-voting/internal/service"
)

// VotingHandler serves session browsing and vote casting.
type VotingHandler struct {
    Sessions *repository.VotingSessionRepo
    Options  *repository.OptionRepo
    Votes    *repository.VoteRepo

    // publish sends the audit event; swappable in tests.
    publish func(context.Context, queue.VoteRecordedEvent) error
}

func NewVotingHandler(vs *repository.VotingSessionRepo, o *repository.OptionRepo, v *repository.VoteRepo) *VotingHandler {
    return &VotingHandler{
        Sessions: vs,
        Options:  o,
        Votes:    v,
        publish:  queue_publisher.PublishVoteRecorded,
    }
}

// ----- DTOs -----

type optionPart struct {
    ID           uint64  `json:"id"`
    Text         string  `json:"text"`
    DisplayOrder int32   `json:"display_order"`
    ImageURL     *string `json:"image_url,omitempty"`
}

type sessionPart struct {
    ID             uint64    `json:"id"`
    MunicipalityID uint64    `json:"municipality_id"`
    Title          string    `json:"title"`
    Description    string    `json:"description,omitempty"`
    Type           string    `json:"type"`
    StartDate      time.Time `json:"start_date"`
    EndDate        time.Time `json:"end_date"`
    IsOpen         bool      `json:"is_open"`
    ResultsVisible bool      `json:"results_visible"`
}

type sessionDetail struct {
    sessionPart
    Options []optionPart `json:"options"`
    // Totals stay null while voting is open and results are not public.
    TotalVotes  *uint64 `json:"total_votes"`
    TotalVoters *uint64 `json:"total_voters"`
    HasVoted    *bool   `json:"has_voted,omitempty"`
}

type castVoteReq struct {
    VotingSessionID uint64 `json:"voting_session_id"`
    OptionID        uint64 `json:"option_id"`
}

type castVoteResp struct {
    Success            bool      `json:"success"`
    Message            string    `json:"message"`
    Timestamp          time.Time `json:"timestamp"`
    VotingSessionID    uint64    `json:"voting_session_id"`
    VotingSessionTitle string    `json:"voting_session_title"`
}

func toSessionPart(s model.VotingSession, now time.Time) sessionPart {
    return sessionPart{
        ID:             s.ID,
        MunicipalityID: s.MunicipalityID,
        Title:          s.Title,
        Description:    s.Description,
        Type:           s.Type,
        StartDate:      s.StartDate,
        EndDate:        s.EndDate,
        IsOpen:         s.IsOpen(now),
        ResultsVisible: s.ResultsVisible(now),
    }
}

// ListSessions returns currently open sessions, optionally filtered by
// municipality via ?municipality_id=.
func (h *VotingHandler) ListSessions(c echo.Context) error {
    var muniID uint64
    if raw := c.QueryParam("municipality_id"); raw != "" {
        n, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid municipality_id"})
        }
        muniID = n
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sessions, err := h.Sessions.ListActive(ctx, muniID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
    }

    now := time.Now()
    out := make([]sessionPart, 0, len(sessions))
    for _, s := range sessions {
        out = append(out, toSessionPart(s, now))
    }
    return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// GetSession returns one session with its options.  When the request
// carries a valid citizen session the response also says whether that
// citizen has voted here; anonymous requests get no such field.
func (h *VotingHandler) GetSession(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s, err := h.Sessions.GetByID(ctx, id)
    if err == sql.ErrNoRows {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    opts, err := h.Options.ListBySession(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "options lookup failed"})
    }

    detail := sessionDetail{sessionPart: toSessionPart(s, time.Now())}
    detail.Options = make([]optionPart, 0, len(opts))
    for _, o := range opts {
        detail.Options = append(detail.Options, optionPart{
            ID: o.ID, Text: o.Text, DisplayOrder: o.DisplayOrder, ImageURL: o.ImageURL,
        })
    }

    if detail.ResultsVisible {
        if votes, err := h.Votes.CountBySession(ctx, id); err == nil {
            detail.TotalVotes = &votes
        }
        if voters, err := h.Votes.CountVoters(ctx, id); err == nil {
            detail.TotalVoters = &voters
        }
    }

    if citizenID, ok := c.Get("citizen_id").(uint64); ok && citizenID != 0 {
        voted, err := h.Votes.HasVoted(ctx, citizenID, id)
        if err == nil {
            detail.HasVoted = &voted
        }
    }

    return c.JSON(http.StatusOK, detail)
}

// CastVote records the authenticated citizen's vote.  Preconditions are
// checked up front for clear errors, then the repository transaction
// re-checks everything that can race.  A duplicate vote is an expected
// client error, not a fault.
func (h *VotingHandler) CastVote(c echo.Context) error {
    citizenID, _ := c.Get("citizen_id").(uint64)
    muniID, _ := c.Get("municipality_id").(uint64)
    if citizenID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }

    var req castVoteReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.VotingSessionID == 0 || req.OptionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "voting_session_id and option_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    vs, muni, err := h.Sessions.GetWithMunicipality(ctx, req.VotingSessionID)
    if err == sql.ErrNoRows {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "voting session not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }
    if !vs.IsOpen(time.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "voting session is not open"})
    }
    if vs.MunicipalityID != muniID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "voting session belongs to a different municipality"})
    }

    opt, err := h.Options.GetByID(ctx, req.OptionID)
    if err == sql.ErrNoRows || (err == nil && opt.VotingSessionID != vs.ID) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "option does not belong to voting session"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "option lookup failed"})
    }

    clientIP := c.RealIP()
    err = h.Votes.CommitVote(ctx, citizenID, vs.ID, req.OptionID, clientIP)
    switch err {
    case nil:
    case repository.ErrAlreadyVoted:
        log.Printf("voting: duplicate vote attempt citizen=%d session=%d", citizenID, vs.ID)
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "citizen has already voted in this session"})
    case repository.ErrOptionMismatch:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "option does not belong to voting session"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vote commit failed"})
    }

    now := time.Now().UTC()
    // Best-effort audit event; the vote is committed regardless.  The
    // payload never includes the chosen option.  Built from plain values
    // before spawning: echo recycles contexts once the handler returns, so
    // the goroutine must not touch c.
    ev := queue.VoteRecordedEvent{
        EventID:          uuid.NewString(),
        VotingSessionID:  vs.ID,
        SessionTitle:     vs.Title,
        MunicipalityID:   muni.ID,
        MunicipalityName: muni.Name,
        CitizenID:        citizenID,
        ClientIP:         clientIP,
        VotedAt:          now.Format(time.RFC3339),
    }
    go func() {
        pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer pubCancel()
        _ = h.publish(pubCtx, ev)
    }()

    return c.JSON(http.StatusOK, castVoteResp{
        Success:            true,
        Message:            "vote recorded",
        Timestamp:          now,
        VotingSessionID:    vs.ID,
        VotingSessionTitle: vs.Title,
    })
}
