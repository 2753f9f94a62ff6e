package handler

import (
    "context"
    "database/sql"
    "math"
    "net/http"
    "sort"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/municipal-voting/internal/repository"
)

// ResultsHandler serves aggregated tallies.  Results come exclusively from
// the anonymous ledger.
type ResultsHandler struct {
    Sessions *repository.VotingSessionRepo
    Votes    *repository.VoteRepo
}

func NewResultsHandler(vs *repository.VotingSessionRepo, v *repository.VoteRepo) *ResultsHandler {
    return &ResultsHandler{Sessions: vs, Votes: v}
}

// OptionResult is one aggregated row of a session's results.
type OptionResult struct {
    OptionID   uint64  `json:"option_id"`
    Text       string  `json:"text"`
    Count      uint64  `json:"count"`
    Percentage float64 `json:"percentage"`
}

// ComputeResults turns raw per-option counts into the published result
// rows: sorted by count descending (stable, so ties keep display order)
// with percentages over the session total rounded to two decimals.  A
// session with zero votes yields all-zero percentages.
func ComputeResults(counts []repository.OptionCount) []OptionResult {
    var total uint64
    for _, oc := range counts {
        total += oc.Count
    }

    out := make([]OptionResult, 0, len(counts))
    for _, oc := range counts {
        pct := 0.0
        if total > 0 {
            pct = math.Round(float64(oc.Count)/float64(total)*10000) / 100
        }
        out = append(out, OptionResult{
            OptionID:   oc.Option.ID,
            Text:       oc.Option.Text,
            Count:      oc.Count,
            Percentage: pct,
        })
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
    return out
}

// GetResults returns the aggregated results of a session.  While a session
// is open, results are visible only if the session opted in; otherwise the
// request is refused so running tallies cannot steer voters.
func (h *ResultsHandler) GetResults(c echo.Context) error {
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
    if !s.ResultsVisible(time.Now()) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "results are not public while voting is open"})
    }

    counts, err := h.Votes.CountsByOption(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "results lookup failed"})
    }

    results := ComputeResults(counts)
    var total uint64
    for _, r := range results {
        total += r.Count
    }

    return c.JSON(http.StatusOK, echo.Map{
        "voting_session_id":    s.ID,
        "voting_session_title": s.Title,
        "total_votes":          total,
        "is_final":             !s.IsOpen(time.Now()),
        "results":              results,
    })
}
