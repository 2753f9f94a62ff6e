package model

import "time"

// Citizen represents a voter.  All personal data is stored encrypted; the
// only searchable identity is the SHA-256 hash of the normalized fiscal
// code.  A citizen is created once, on first successful identity
// verification, and is permanently bound to the municipality of the voting
// session they first signed in for.
//
// Fields:
//  ID                  – primary key identifier.
//  MunicipalityID      – owning municipality (protect-on-delete).
//  FiscalCodeHash      – unique hex SHA-256 digest of the fiscal code; the
//                        sole lookup key, never derived from mutable fields.
//  FiscalCodeEncrypted – encrypted fiscal code blob.
//  FirstNameEncrypted  – encrypted given name blob (may be empty).
//  LastNameEncrypted   – encrypted family name blob (may be empty).
//  EmailEncrypted      – encrypted email blob (may be empty).
//  RegisteredAt        – first sign-in timestamp.
//  LastAccessAt        – refreshed best-effort on each login.
type Citizen struct {
    ID                  uint64    // citizens.id
    MunicipalityID      uint64    // citizens.municipality_id
    FiscalCodeHash      string    // citizens.fiscal_code_hash (unique)
    FiscalCodeEncrypted string    // citizens.fiscal_code_encrypted
    FirstNameEncrypted  string    // citizens.first_name_encrypted
    LastNameEncrypted   string    // citizens.last_name_encrypted
    EmailEncrypted      string    // citizens.email_encrypted
    RegisteredAt        time.Time // citizens.registered_at
    LastAccessAt        time.Time // citizens.last_access_at
}
