package model

import "time"

// Session types accepted by the API and the schema enum.
const (
    SessionTypeReferendum   = "referendum"
    SessionTypeSurvey       = "survey"
    SessionTypeElection     = "election"
    SessionTypeConsultation = "consultation"
)

// ValidSessionType reports whether t is one of the enumerated session types.
func ValidSessionType(t string) bool {
    switch t {
    case SessionTypeReferendum, SessionTypeSurvey, SessionTypeElection, SessionTypeConsultation:
        return true
    }
    return false
}

// VotingSession represents one votazione run by a municipality.  Sessions
// are created and edited only by administrators; the voting API never
// creates them.  EndDate must be after StartDate.
//
// Fields:
//  ID             – primary key identifier.
//  MunicipalityID – owning municipality (protect-on-delete).
//  Title          – short title shown on the ballot.
//  Description    – longer description.
//  Type           – one of the SessionType constants.
//  StartDate      – when voting opens.
//  EndDate        – when voting closes (must be after StartDate).
//  IsActive       – administrative kill switch; false blocks voting.
//  ResultsPublic  – when true, tallies are visible while voting is open.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type VotingSession struct {
    ID             uint64    // voting_sessions.id
    MunicipalityID uint64    // voting_sessions.municipality_id
    Title          string    // voting_sessions.title
    Description    string    // voting_sessions.description
    Type           string    // voting_sessions.type
    StartDate      time.Time // voting_sessions.start_date
    EndDate        time.Time // voting_sessions.end_date
    IsActive       bool      // voting_sessions.is_active
    ResultsPublic  bool      // voting_sessions.results_public
    CreatedAt      time.Time // voting_sessions.created_at
    UpdatedAt      time.Time // voting_sessions.updated_at
}

// IsOpen reports whether votes are currently accepted: the session is
// active and now falls inside [StartDate, EndDate].
func (s VotingSession) IsOpen(now time.Time) bool {
    return s.IsActive && !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// ResultsVisible reports whether tallies may be exposed: either the
// administrators published them or voting has ended.
func (s VotingSession) ResultsVisible(now time.Time) bool {
    return s.ResultsPublic || !s.IsOpen(now)
}
