// Package crypto handles the sensitive-data primitives of the voting
// backend: symmetric encryption of citizen personal fields, one-way hashing
// of fiscal codes for lookups, and random token generation for vote
// anonymization.  Everything outside this package treats encrypted values
// as opaque strings.
package crypto

import (
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "errors"
    "strings"

    "golang.org/x/crypto/pbkdf2"
)

// ErrDecryption is returned when a ciphertext cannot be decrypted: the value
// was tampered with, truncated, or produced under a different key.  Callers
// treat it as data corruption for that record, never as a retryable error.
var ErrDecryption = errors.New("decryption failed")

const (
    kdfIterations = 100000 // PBKDF2 iteration count
    kdfKeyLen     = 32     // AES-256 key length in bytes
)

// Service encrypts and decrypts personal fields with AES-256-GCM under a
// key derived once from the configured secret.  The same plaintext
// encrypted twice yields different ciphertexts because each call draws a
// fresh nonce; ciphertext equality must never be used for lookups — that is
// what HashFiscalCode is for.
type Service struct {
    aead cipher.AEAD
}

// New derives the encryption key from secret via PBKDF2-HMAC-SHA256 and
// returns a ready Service.  The salt is derived from the secret itself so
// that the same configuration always yields the same key.
func New(secret string) (*Service, error) {
    sum := sha256.Sum256([]byte(secret))
    key := pbkdf2.Key([]byte(secret), sum[:16], kdfIterations, kdfKeyLen, sha256.New)
    block, err := aes.NewCipher(key)
    if err != nil {
        return nil, err
    }
    aead, err := cipher.NewGCM(block)
    if err != nil {
        return nil, err
    }
    return &Service{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).  Empty
// input encrypts to the empty string so optional fields stay optional.
func (s *Service) Encrypt(plaintext string) (string, error) {
    if plaintext == "" {
        return "", nil
    }
    nonce := make([]byte, s.aead.NonceSize())
    if _, err := rand.Read(nonce); err != nil {
        return "", err
    }
    sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
    return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.  Any malformed or tampered input yields
// ErrDecryption; the underlying cipher error is not exposed.
func (s *Service) Decrypt(ciphertext string) (string, error) {
    if ciphertext == "" {
        return "", nil
    }
    raw, err := base64.StdEncoding.DecodeString(ciphertext)
    if err != nil {
        return "", ErrDecryption
    }
    ns := s.aead.NonceSize()
    if len(raw) < ns {
        return "", ErrDecryption
    }
    plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
    if err != nil {
        return "", ErrDecryption
    }
    return string(plain), nil
}

// HashFiscalCode returns the hex SHA-256 digest (64 chars) of the
// normalized fiscal code.  Normalization is trim + uppercase, so any
// casing/whitespace variant of the same code hashes identically.  The
// digest is the unique lookup key for citizens.
func HashFiscalCode(fiscalCode string) string {
    normalized := strings.ToUpper(strings.TrimSpace(fiscalCode))
    if normalized == "" {
        return ""
    }
    sum := sha256.Sum256([]byte(normalized))
    return hex.EncodeToString(sum[:])
}

// ShortHash truncates a hash to 16 chars for log lines.  Raw fiscal codes
// are never logged; even full hashes stay out of logs.
func ShortHash(hash string) string {
    if len(hash) <= 16 {
        return hash
    }
    return hash[:16]
}

// NewAnonymizationToken returns 32 cryptographically random bytes as a
// 64-char hex string.  Stored on each tally row to break timing/ordering
// correlation with the voter ledger; it is never derived from citizen or
// session identifiers.
func NewAnonymizationToken() (string, error) {
    buf := make([]byte, 32)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
