package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/municipal-voting/internal/crypto"
    "github.com/iliyamo/municipal-voting/internal/model"
)

// CitizenRepo is the citizen directory.  Lookups go exclusively through the
// fiscal-code hash; personal fields are encrypted by the crypto service
// before they touch the database and are opaque everywhere else.
type CitizenRepo struct {
    DB     *sql.DB
    Crypto *crypto.Service
}

// NewCitizenRepo returns a repo bound to the given database and crypto
// service.
func NewCitizenRepo(db *sql.DB, c *crypto.Service) *CitizenRepo {
    return &CitizenRepo{DB: db, Crypto: c}
}

const citizenColumns = `id, municipality_id, fiscal_code_hash, fiscal_code_encrypted,
       first_name_encrypted, last_name_encrypted, email_encrypted, registered_at, last_access_at`

func scanCitizen(row *sql.Row) (model.Citizen, error) {
    var (
        c     model.Citizen
        first sql.NullString
        last  sql.NullString
        email sql.NullString
    )
    err := row.Scan(&c.ID, &c.MunicipalityID, &c.FiscalCodeHash, &c.FiscalCodeEncrypted,
        &first, &last, &email, &c.RegisteredAt, &c.LastAccessAt)
    if err != nil {
        return model.Citizen{}, err
    }
    c.FirstNameEncrypted = first.String
    c.LastNameEncrypted = last.String
    c.EmailEncrypted = email.String
    return c, nil
}

// FindByFiscalHash returns the citizen whose fiscal-code hash matches, or
// sql.ErrNoRows.
func (r *CitizenRepo) FindByFiscalHash(ctx context.Context, hash string) (model.Citizen, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+citizenColumns+" FROM citizens WHERE fiscal_code_hash=? LIMIT 1", hash)
    return scanCitizen(row)
}

// GetByID returns the citizen with the given id, or sql.ErrNoRows.
func (r *CitizenRepo) GetByID(ctx context.Context, id uint64) (model.Citizen, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+citizenColumns+" FROM citizens WHERE id=? LIMIT 1", id)
    return scanCitizen(row)
}

// Create registers a citizen bound to the given municipality, encrypting
// each personal field independently.  The municipality binding decided here
// is permanent.  Two first-logins can race on the same fiscal code: the
// unique hash column makes one insert lose with a duplicate-key error, and
// the loser re-reads the winner's row instead of failing the citizen's
// login.  The second return value reports whether this call created the row.
func (r *CitizenRepo) Create(ctx context.Context, municipalityID uint64, fiscalCode, firstName, lastName, email string) (model.Citizen, bool, error) {
    hash := crypto.HashFiscalCode(fiscalCode)
    encFiscal, err := r.Crypto.Encrypt(fiscalCode)
    if err != nil {
        return model.Citizen{}, false, err
    }
    encFirst, err := r.Crypto.Encrypt(firstName)
    if err != nil {
        return model.Citizen{}, false, err
    }
    encLast, err := r.Crypto.Encrypt(lastName)
    if err != nil {
        return model.Citizen{}, false, err
    }
    encEmail, err := r.Crypto.Encrypt(email)
    if err != nil {
        return model.Citizen{}, false, err
    }

    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO citizens (municipality_id, fiscal_code_hash, fiscal_code_encrypted,
            first_name_encrypted, last_name_encrypted, email_encrypted)
         VALUES (?,?,?,?,?,?)`,
        municipalityID, hash, encFiscal,
        nullable(encFirst), nullable(encLast), nullable(encEmail))
    if err != nil {
        if isDuplicateKey(err) {
            c, ferr := r.FindByFiscalHash(ctx, hash)
            if ferr != nil {
                return model.Citizen{}, false, ferr
            }
            return c, false, nil
        }
        return model.Citizen{}, false, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Citizen{}, false, err
    }
    c, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return model.Citizen{}, false, err
    }
    return c, true, nil
}

// TouchLastAccess refreshes only the last-access timestamp.  Best-effort:
// callers ignore the error since the value is not invariant-bearing.
func (r *CitizenRepo) TouchLastAccess(ctx context.Context, citizenID uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE citizens SET last_access_at=NOW() WHERE id=?", citizenID)
    return err
}

// nullable maps empty strings to NULL so optional encrypted fields stay
// NULL in the schema.
func nullable(s string) interface{} {
    if s == "" {
        return nil
    }
    return s
}
