package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/municipal-voting/internal/model"
)

// AuthSessionRepo stores server-side authenticated sessions.  Only token
// hashes live in the database; the opaque token itself never does.
type AuthSessionRepo struct{ DB *sql.DB }

// NewAuthSessionRepo returns a repo bound to the given database.
func NewAuthSessionRepo(db *sql.DB) *AuthSessionRepo { return &AuthSessionRepo{DB: db} }

// Store persists a new session and populates the generated ID.
func (r *AuthSessionRepo) Store(ctx context.Context, s *model.AuthSession) error {
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO auth_sessions (citizen_id, municipality_id, voting_session_id,
            auth_method, token_hash, expires_at)
         VALUES (?,?,?,?,?,?)`,
        s.CitizenID, s.MunicipalityID, s.VotingSessionID, s.AuthMethod, s.TokenHash, s.ExpiresAt)
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

// Validate resolves a token hash to its live session.  Expired and revoked
// sessions are indistinguishable from absent ones: both yield
// sql.ErrNoRows, so the middleware answers 401 without leaking which case
// it was.
func (r *AuthSessionRepo) Validate(ctx context.Context, tokenHash string) (model.AuthSession, error) {
    var s model.AuthSession
    err := r.DB.QueryRowContext(ctx,
        `SELECT id, citizen_id, municipality_id, voting_session_id, auth_method,
                token_hash, expires_at, revoked_at, created_at
         FROM auth_sessions
         WHERE token_hash=? AND revoked_at IS NULL AND expires_at > NOW()
         LIMIT 1`, tokenHash).
        Scan(&s.ID, &s.CitizenID, &s.MunicipalityID, &s.VotingSessionID, &s.AuthMethod,
            &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
    return s, err
}

// RevokeByHash marks a single session revoked (logout).  Revoking an
// already-revoked or unknown token is not an error.
func (r *AuthSessionRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE auth_sessions SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
        tokenHash)
    return err
}

// RevokeAllForCitizen revokes every live session of a citizen.
func (r *AuthSessionRepo) RevokeAllForCitizen(ctx context.Context, citizenID uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE auth_sessions SET revoked_at=NOW() WHERE citizen_id=? AND revoked_at IS NULL",
        citizenID)
    return err
}
