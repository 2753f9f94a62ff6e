// Package queue defines message payloads exchanged over the message broker.
package queue

// VoteRecordedEvent is published after a vote commit succeeds.  It carries
// audit context only: deliberately NO option id, so consumers (and their
// logs) can never correlate a citizen with a choice.
type VoteRecordedEvent struct {
    EventID          string `json:"event_id"`
    VotingSessionID  uint64 `json:"voting_session_id"`
    SessionTitle     string `json:"voting_session_title"`
    MunicipalityID   uint64 `json:"municipality_id"`
    MunicipalityName string `json:"municipality_name"`
    CitizenID        uint64 `json:"citizen_id"`
    ClientIP         string `json:"client_ip"`
    VotedAt          string `json:"voted_at"`
}
