// Package utils holds small helpers shared across handlers: opaque session
// tokens and the signed-over handshake state blob.
package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
)

// sessionTokenBytes is the entropy of an opaque session token.  48 random
// bytes hex-encode to 96 characters.
const sessionTokenBytes = 48

// NewSessionToken generates an opaque bearer token for an authenticated
// session.  The raw token goes to the client; only its hash is stored.
func NewSessionToken() (string, error) {
    buf := make([]byte, sessionTokenBytes)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a token, the form in which
// tokens are persisted and looked up.
func HashToken(token string) string {
    sum := sha256.Sum256([]byte(token))
    return hex.EncodeToString(sum[:])
}
