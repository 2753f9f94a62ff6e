package model

import "time"

// Municipality represents a comune enrolled in the voting platform.
// Citizens and voting sessions both reference a municipality and protect it
// from deletion while referenced.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the comune.
//  IPACode   – unique code in the national public-administration registry
//              (e.g. c_h501); also used to scope the identity-provider login.
//  CAP       – postal code.
//  CreatedAt – creation timestamp.
type Municipality struct {
    ID        uint64    // municipalities.id
    Name      string    // municipalities.name
    IPACode   string    // municipalities.ipa_code (unique)
    CAP       string    // municipalities.cap
    CreatedAt time.Time // municipalities.created_at
}
