package model

import "time"

// AuthSession is a server-side authenticated session established after a
// successful SPID callback.  The client holds an opaque token; only its
// SHA-256 hash is stored.  The session pins the citizen, their
// municipality and the voting session the login was initiated for.
//
// Fields:
//  ID              – primary key identifier.
//  CitizenID       – authenticated citizen.
//  MunicipalityID  – citizen's bound municipality at login time.
//  VotingSessionID – voting session the handshake was started for.
//  AuthMethod      – authentication method marker (e.g. "spid").
//  TokenHash       – SHA-256 hex digest of the opaque client token.
//  ExpiresAt       – expiration timestamp.
//  RevokedAt       – when the session was logged out (null if active).
//  CreatedAt       – creation timestamp.
type AuthSession struct {
    ID              uint64     // auth_sessions.id
    CitizenID       uint64     // auth_sessions.citizen_id
    MunicipalityID  uint64     // auth_sessions.municipality_id
    VotingSessionID uint64     // auth_sessions.voting_session_id
    AuthMethod      string     // auth_sessions.auth_method
    TokenHash       string     // auth_sessions.token_hash
    ExpiresAt       time.Time  // auth_sessions.expires_at
    RevokedAt       *time.Time // auth_sessions.revoked_at (nullable)
    CreatedAt       time.Time  // auth_sessions.created_at
}
