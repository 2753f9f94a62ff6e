package model

import "time"

// The vote is split across two deliberately disjoint ledgers.
// CitizenHasVoted records WHO voted (and nothing about the choice);
// Result records WHAT was voted (and nothing about the citizen).  The only
// column the two share is the voting session — joining them on anything
// else would break the anonymity guarantee, so neither struct carries a
// field that could.

// CitizenHasVoted is the voter-ledger row.  The (CitizenID,
// VotingSessionID) pair is unique; that constraint is the sole mechanism
// preventing double voting.  Rows are never updated or deleted through the
// API.
//
// Fields:
//  ID              – primary key identifier.
//  CitizenID       – who voted (protect-on-delete).
//  VotingSessionID – in which session (protect-on-delete).
//  VotedAt         – commit timestamp.
//  ClientIP        – request origin, kept for audit.
type CitizenHasVoted struct {
    ID              uint64    // citizen_has_voted.id
    CitizenID       uint64    // citizen_has_voted.citizen_id
    VotingSessionID uint64    // citizen_has_voted.voting_session_id
    VotedAt         time.Time // citizen_has_voted.voted_at
    ClientIP        string    // citizen_has_voted.client_ip
}

// Result is the anonymous tally row, written in the same transaction as
// its CitizenHasVoted counterpart.  AnonToken is 64 hex chars of fresh
// randomness per vote — independent of citizen, session and ledger ids —
// so tally rows cannot be correlated with voter-ledger rows by timing or
// ordering.
//
// Fields:
//  ID              – primary key identifier.
//  VotingSessionID – session the vote counts toward.
//  OptionID        – the chosen option.
//  VotedAt         – commit timestamp.
//  AnonToken       – random 64-hex-char anonymization token.
type Result struct {
    ID              uint64    // results.id
    VotingSessionID uint64    // results.voting_session_id
    OptionID        uint64    // results.option_id
    VotedAt         time.Time // results.voted_at
    AnonToken       string    // results.anon_token
}
