package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/municipal-voting/internal/model"
)

// OptionRepo provides access to ballot options.
type OptionRepo struct{ DB *sql.DB }

// NewOptionRepo returns a repo bound to the given database.
func NewOptionRepo(db *sql.DB) *OptionRepo { return &OptionRepo{DB: db} }

// ListBySession returns the options of a session ordered for display.
func (r *OptionRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Option, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT id, voting_session_id, text, display_order, image_url
         FROM options WHERE voting_session_id=? ORDER BY display_order, id`, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Option, 0)
    for rows.Next() {
        var o model.Option
        if err := rows.Scan(&o.ID, &o.VotingSessionID, &o.Text, &o.DisplayOrder, &o.ImageURL); err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}

// GetByID fetches an option by id.
func (r *OptionRepo) GetByID(ctx context.Context, id uint64) (model.Option, error) {
    var o model.Option
    err := r.DB.QueryRowContext(ctx,
        `SELECT id, voting_session_id, text, display_order, image_url
         FROM options WHERE id=? LIMIT 1`, id).
        Scan(&o.ID, &o.VotingSessionID, &o.Text, &o.DisplayOrder, &o.ImageURL)
    return o, err
}

// Create inserts an option and populates the generated ID.
func (r *OptionRepo) Create(ctx context.Context, o *model.Option) error {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO options (voting_session_id, text, display_order, image_url) VALUES (?,?,?,?)",
        o.VotingSessionID, o.Text, o.DisplayOrder, o.ImageURL)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    return nil
}

// Update applies an administrative edit.  The parent session is never
// changed; moving an option between sessions would orphan tally rows.
func (r *OptionRepo) Update(ctx context.Context, o model.Option) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE options SET text=?, display_order=?, image_url=? WHERE id=?",
        o.Text, o.DisplayOrder, o.ImageURL, o.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

// Delete removes an option.  Options referenced by tally rows are protected
// by a RESTRICT foreign key and surface as ErrConflict.
func (r *OptionRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM options WHERE id=?", id)
    if err != nil {
        if isForeignKeyRestricted(err) {
            return ErrConflict
        }
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
