package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/municipal-voting/internal/model"
)

// MunicipalityRepo provides CRUD operations for municipalities.  Rows are
// referenced by citizens and voting sessions with RESTRICT foreign keys, so
// deletion fails with ErrConflict while anything still points at them.
type MunicipalityRepo struct{ DB *sql.DB }

// NewMunicipalityRepo returns a repo bound to the given database.
func NewMunicipalityRepo(db *sql.DB) *MunicipalityRepo { return &MunicipalityRepo{DB: db} }

// Create inserts a municipality and populates the generated ID.  The IPA
// code is unique; a duplicate yields ErrConflict.
func (r *MunicipalityRepo) Create(ctx context.Context, m *model.Municipality) error {
    m.IPACode = strings.ToLower(strings.TrimSpace(m.IPACode))
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO municipalities (name, ipa_code, cap) VALUES (?,?,?)",
        m.Name, m.IPACode, m.CAP)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

// GetByID fetches a municipality by id.
func (r *MunicipalityRepo) GetByID(ctx context.Context, id uint64) (model.Municipality, error) {
    var m model.Municipality
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, name, ipa_code, cap, created_at FROM municipalities WHERE id=? LIMIT 1",
        id).Scan(&m.ID, &m.Name, &m.IPACode, &m.CAP, &m.CreatedAt)
    return m, err
}

// List returns all municipalities ordered by name.
func (r *MunicipalityRepo) List(ctx context.Context) ([]model.Municipality, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id, name, ipa_code, cap, created_at FROM municipalities ORDER BY name")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Municipality, 0)
    for rows.Next() {
        var m model.Municipality
        if err := rows.Scan(&m.ID, &m.Name, &m.IPACode, &m.CAP, &m.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// Update applies an administrative edit.  sql.ErrNoRows is returned when
// the municipality does not exist.
func (r *MunicipalityRepo) Update(ctx context.Context, m model.Municipality) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE municipalities SET name=?, ipa_code=?, cap=? WHERE id=?",
        m.Name, strings.ToLower(strings.TrimSpace(m.IPACode)), m.CAP, m.ID)
    if err != nil {
        if isDuplicateKey(err) {
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

// Delete removes a municipality.  The RESTRICT foreign keys from citizens
// and voting sessions surface as ErrConflict.
func (r *MunicipalityRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM municipalities WHERE id=?", id)
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
