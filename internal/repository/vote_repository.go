package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/municipal-voting/internal/crypto"
    "github.com/iliyamo/municipal-voting/internal/model"
)

// VoteRepo owns the two vote ledgers.  Both rows of a vote are written in a
// single transaction so no partial state is ever visible: either the
// citizen is marked as having voted AND the anonymous tally grew by one, or
// neither happened.
type VoteRepo struct{ DB *sql.DB }

// NewVoteRepo returns a repo bound to the given database.
func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{DB: db} }

// HasVoted reports whether the citizen already has a voter-ledger row for
// the session.
func (r *VoteRepo) HasVoted(ctx context.Context, citizenID, sessionID uint64) (bool, error) {
    var n int
    err := r.DB.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM citizen_has_voted WHERE citizen_id=? AND voting_session_id=?",
        citizenID, sessionID).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// CommitVote atomically records a vote in both ledgers.
//
// The voter-ledger row is locked (or its absence confirmed) with SELECT ...
// FOR UPDATE before inserting, so two concurrent requests for the same
// citizen serialize here; the unique (citizen_id, voting_session_id) key is
// the backstop if they slip past each other anyway — either path yields
// ErrAlreadyVoted for the loser.  The option's membership in the session is
// re-checked inside the transaction (ErrOptionMismatch), since options can
// be edited between the handler's precondition check and the commit.
func (r *VoteRepo) CommitVote(ctx context.Context, citizenID, sessionID, optionID uint64, clientIP string) error {
    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            tx.Rollback()
        }
    }()

    var existing uint64
    err = tx.QueryRowContext(ctx,
        `SELECT id FROM citizen_has_voted
         WHERE citizen_id=? AND voting_session_id=? FOR UPDATE`,
        citizenID, sessionID).Scan(&existing)
    if err == nil {
        return ErrAlreadyVoted
    }
    if err != sql.ErrNoRows {
        return err
    }

    var belongs int
    err = tx.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM options WHERE id=? AND voting_session_id=?",
        optionID, sessionID).Scan(&belongs)
    if err != nil {
        return err
    }
    if belongs == 0 {
        return ErrOptionMismatch
    }

    _, err = tx.ExecContext(ctx,
        `INSERT INTO citizen_has_voted (citizen_id, voting_session_id, voted_at, client_ip)
         VALUES (?,?,NOW(),?)`,
        citizenID, sessionID, clientIP)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrAlreadyVoted
        }
        return err
    }

    anon, err := crypto.NewAnonymizationToken()
    if err != nil {
        return err
    }
    _, err = tx.ExecContext(ctx,
        `INSERT INTO results (voting_session_id, option_id, voted_at, anon_token)
         VALUES (?,?,NOW(),?)`,
        sessionID, optionID, anon)
    if err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// OptionCount pairs an option with its tally.
type OptionCount struct {
    Option model.Option
    Count  uint64
}

// CountsByOption returns every option of the session with its vote count,
// including zero-vote options, in display order.  Only the anonymous tally
// ledger is read.
func (r *VoteRepo) CountsByOption(ctx context.Context, sessionID uint64) ([]OptionCount, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT o.id, o.voting_session_id, o.text, o.display_order, o.image_url, COUNT(res.id)
         FROM options o
         LEFT JOIN results res ON res.option_id = o.id
         WHERE o.voting_session_id=?
         GROUP BY o.id, o.voting_session_id, o.text, o.display_order, o.image_url
         ORDER BY o.display_order, o.id`, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]OptionCount, 0)
    for rows.Next() {
        var oc OptionCount
        if err := rows.Scan(&oc.Option.ID, &oc.Option.VotingSessionID, &oc.Option.Text,
            &oc.Option.DisplayOrder, &oc.Option.ImageURL, &oc.Count); err != nil {
            return nil, err
        }
        out = append(out, oc)
    }
    return out, rows.Err()
}

// CountBySession returns the total number of tally rows for the session.
func (r *VoteRepo) CountBySession(ctx context.Context, sessionID uint64) (uint64, error) {
    var n uint64
    err := r.DB.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM results WHERE voting_session_id=?", sessionID).Scan(&n)
    return n, err
}

// CountVoters returns the number of voter-ledger rows for the session.  In
// a healthy database this equals CountBySession; a mismatch means the
// atomicity guarantee was violated and is worth alerting on.
func (r *VoteRepo) CountVoters(ctx context.Context, sessionID uint64) (uint64, error) {
    var n uint64
    err := r.DB.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM citizen_has_voted WHERE voting_session_id=?", sessionID).Scan(&n)
    return n, err
}
