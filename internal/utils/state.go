package utils

import (
    "encoding/base64"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
)

// ErrInvalidState is returned when a handshake state blob cannot be decoded
// or is missing required fields.  The callback treats any such blob as an
// expired or forged handshake.
var ErrInvalidState = errors.New("invalid handshake state")

// State is the context a login handshake carries through the identity
// provider round-trip.  The provider echoes it back verbatim in the
// callback, which is the only place the server learns which voting session
// the citizen was heading to.
type State struct {
    VotingSessionID uint64 `json:"voting_session_id"`
    IssuedAt        int64  `json:"timestamp"`
    Nonce           string `json:"nonce"`
}

// NewState builds a state for the given voting session with a fresh nonce.
func NewState(votingSessionID uint64) State {
    return State{
        VotingSessionID: votingSessionID,
        IssuedAt:        time.Now().Unix(),
        Nonce:           uuid.NewString(),
    }
}

// EncodeState serializes a state into a URL-safe opaque string.
func EncodeState(s State) string {
    raw, _ := json.Marshal(s)
    return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState parses a state blob previously produced by EncodeState.  Any
// malformed, truncated or incomplete input yields ErrInvalidState.
func DecodeState(blob string) (State, error) {
    raw, err := base64.RawURLEncoding.DecodeString(blob)
    if err != nil {
        return State{}, ErrInvalidState
    }
    var s State
    if err := json.Unmarshal(raw, &s); err != nil {
        return State{}, ErrInvalidState
    }
    if s.VotingSessionID == 0 || s.Nonce == "" || s.IssuedAt == 0 {
        return State{}, ErrInvalidState
    }
    return s, nil
}
