package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/municipal-voting/internal/model"
)

// VotingSessionRepo provides access to voting sessions.
type VotingSessionRepo struct{ DB *sql.DB }

// NewVotingSessionRepo returns a repo bound to the given database.
func NewVotingSessionRepo(db *sql.DB) *VotingSessionRepo { return &VotingSessionRepo{DB: db} }

const sessionColumns = `id, municipality_id, title, description, type, start_date, end_date,
       is_active, results_public, created_at, updated_at`

func scanSession(scan func(dest ...interface{}) error) (model.VotingSession, error) {
    var (
        s    model.VotingSession
        desc sql.NullString
    )
    err := scan(&s.ID, &s.MunicipalityID, &s.Title, &desc, &s.Type, &s.StartDate, &s.EndDate,
        &s.IsActive, &s.ResultsPublic, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return model.VotingSession{}, err
    }
    s.Description = desc.String
    return s, nil
}

// GetByID fetches a voting session by id.
func (r *VotingSessionRepo) GetByID(ctx context.Context, id uint64) (model.VotingSession, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+sessionColumns+" FROM voting_sessions WHERE id=? LIMIT 1", id)
    return scanSession(row.Scan)
}

// GetWithMunicipality fetches a session together with its municipality in a
// single query, for callers that need both (the SPID callback compares the
// citizen's municipality against the session's).
func (r *VotingSessionRepo) GetWithMunicipality(ctx context.Context, id uint64) (model.VotingSession, model.Municipality, error) {
    var (
        s    model.VotingSession
        m    model.Municipality
        desc sql.NullString
    )
    err := r.DB.QueryRowContext(ctx,
        `SELECT s.id, s.municipality_id, s.title, s.description, s.type, s.start_date, s.end_date,
                s.is_active, s.results_public, s.created_at, s.updated_at,
                m.id, m.name, m.ipa_code, m.cap, m.created_at
         FROM voting_sessions s
         JOIN municipalities m ON m.id = s.municipality_id
         WHERE s.id=? LIMIT 1`, id).Scan(
        &s.ID, &s.MunicipalityID, &s.Title, &desc, &s.Type, &s.StartDate, &s.EndDate,
        &s.IsActive, &s.ResultsPublic, &s.CreatedAt, &s.UpdatedAt,
        &m.ID, &m.Name, &m.IPACode, &m.CAP, &m.CreatedAt)
    if err != nil {
        return model.VotingSession{}, model.Municipality{}, err
    }
    s.Description = desc.String
    return s, m, nil
}

// ListActive returns sessions flagged active whose window includes now,
// newest first.  Optionally filtered by municipality (0 = all).
func (r *VotingSessionRepo) ListActive(ctx context.Context, municipalityID uint64) ([]model.VotingSession, error) {
    query := "SELECT " + sessionColumns + ` FROM voting_sessions
        WHERE is_active=1 AND start_date<=NOW() AND end_date>=NOW()`
    args := []interface{}{}
    if municipalityID != 0 {
        query += " AND municipality_id=?"
        args = append(args, municipalityID)
    }
    query += " ORDER BY start_date DESC"

    rows, err := r.DB.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.VotingSession, 0)
    for rows.Next() {
        s, err := scanSession(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// Create inserts a voting session and populates the generated ID.
func (r *VotingSessionRepo) Create(ctx context.Context, s *model.VotingSession) error {
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO voting_sessions (municipality_id, title, description, type,
            start_date, end_date, is_active, results_public)
         VALUES (?,?,?,?,?,?,?,?)`,
        s.MunicipalityID, s.Title, nullable(s.Description), s.Type,
        s.StartDate, s.EndDate, s.IsActive, s.ResultsPublic)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// Update applies an administrative edit.  sql.ErrNoRows is returned when
// the session does not exist.
func (r *VotingSessionRepo) Update(ctx context.Context, s model.VotingSession) error {
    res, err := r.DB.ExecContext(ctx,
        `UPDATE voting_sessions SET title=?, description=?, type=?, start_date=?, end_date=?,
            is_active=?, results_public=? WHERE id=?`,
        s.Title, nullable(s.Description), s.Type, s.StartDate, s.EndDate,
        s.IsActive, s.ResultsPublic, s.ID)
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

// Delete removes a voting session.  Sessions with recorded votes are
// protected by RESTRICT foreign keys and surface as ErrConflict.
func (r *VotingSessionRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM voting_sessions WHERE id=?", id)
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
