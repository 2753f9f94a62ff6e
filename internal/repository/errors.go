// Package repository implements the persistence layer over MySQL.  Sentinel
// errors defined here let handlers map failure scenarios to distinct HTTP
// responses: ErrAlreadyVoted is the expected outcome of a duplicate commit
// attempt (never a server fault), ErrOptionMismatch flags a ballot option
// that belongs to a different session, and ErrConflict signals an operation
// blocked by dependent records (e.g. deleting a municipality that still has
// citizens or sessions).
package repository

import (
    "errors"
    "strings"
)

// ErrAlreadyVoted is returned when a vote commit finds an existing
// voter-ledger row for the same (citizen, session) pair.  Handlers
// translate this into an HTTP 400 "already voted" response.
var ErrAlreadyVoted = errors.New("citizen has already voted in this session")

// ErrOptionMismatch is returned when the chosen option does not belong to
// the voting session the vote targets.
var ErrOptionMismatch = errors.New("option does not belong to voting session")

// ErrConflict is returned when a delete or update cannot proceed because of
// dependent rows.  Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-entry violation
// (error 1062).  Unique constraints are the authoritative arbiter for the
// voter ledger and for concurrent citizen creation, so this check decides
// races rather than reporting failures.
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}

// isForeignKeyRestricted reports whether err is a MySQL restricted-delete
// violation (error 1451), raised when a referenced parent row is removed.
func isForeignKeyRestricted(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1451")
}
