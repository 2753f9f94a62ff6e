package model

// Option is one choice on a session's ballot ("Sì", "No", a candidate).
// Options belong to exactly one voting session and are deleted with it.
//
// Fields:
//  ID              – primary key identifier.
//  VotingSessionID – owning session (cascade-delete).
//  Text            – label shown to the voter.
//  DisplayOrder    – sort order on the ballot (lower first).
//  ImageURL        – optional illustration.
type Option struct {
    ID              uint64  // options.id
    VotingSessionID uint64  // options.voting_session_id
    Text            string  // options.text
    DisplayOrder    int32   // options.display_order
    ImageURL        *string // options.image_url (nullable)
}
