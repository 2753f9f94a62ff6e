package crypto

import (
    "encoding/base64"
    "strings"
    "testing"
)

func newTestService(t *testing.T, secret string) *Service {
    t.Helper()
    s, err := New(secret)
    if err != nil {
        t.Fatalf("New(%q) failed: %v", secret, err)
    }
    return s
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
    s := newTestService(t, "test-secret")
    for _, plain := range []string{"RSSMRA80A01H501Z", "Mario", "mario.rossi@example.it", "àèìòù"} {
        enc, err := s.Encrypt(plain)
        if err != nil {
            t.Fatalf("Encrypt(%q) failed: %v", plain, err)
        }
        dec, err := s.Decrypt(enc)
        if err != nil {
            t.Fatalf("Decrypt failed for %q: %v", plain, err)
        }
        if dec != plain {
            t.Errorf("round trip mismatch: got %q want %q", dec, plain)
        }
    }
}

func TestEncryptIsNonDeterministic(t *testing.T) {
    s := newTestService(t, "test-secret")
    a, err := s.Encrypt("RSSMRA80A01H501Z")
    if err != nil {
        t.Fatal(err)
    }
    b, err := s.Encrypt("RSSMRA80A01H501Z")
    if err != nil {
        t.Fatal(err)
    }
    if a == b {
        t.Error("two encryptions of the same plaintext produced identical ciphertext")
    }
    for _, enc := range []string{a, b} {
        dec, err := s.Decrypt(enc)
        if err != nil || dec != "RSSMRA80A01H501Z" {
            t.Errorf("ciphertext did not decrypt back: %v %q", err, dec)
        }
    }
}

func TestEncryptEmptyInput(t *testing.T) {
    s := newTestService(t, "test-secret")
    enc, err := s.Encrypt("")
    if err != nil || enc != "" {
        t.Errorf("Encrypt(\"\") = (%q, %v), want (\"\", nil)", enc, err)
    }
    dec, err := s.Decrypt("")
    if err != nil || dec != "" {
        t.Errorf("Decrypt(\"\") = (%q, %v), want (\"\", nil)", dec, err)
    }
}

func TestDecryptTamperedCiphertext(t *testing.T) {
    s := newTestService(t, "test-secret")
    enc, err := s.Encrypt("RSSMRA80A01H501Z")
    if err != nil {
        t.Fatal(err)
    }
    raw, err := base64.StdEncoding.DecodeString(enc)
    if err != nil {
        t.Fatal(err)
    }
    raw[len(raw)-1] ^= 0x01 // flip a bit in the sealed payload
    if _, err := s.Decrypt(base64.StdEncoding.EncodeToString(raw)); err != ErrDecryption {
        t.Errorf("tampered ciphertext: got %v, want ErrDecryption", err)
    }
    if _, err := s.Decrypt("not base64!!"); err != ErrDecryption {
        t.Errorf("malformed ciphertext: got %v, want ErrDecryption", err)
    }
    if _, err := s.Decrypt("QQ=="); err != ErrDecryption {
        t.Errorf("truncated ciphertext: got %v, want ErrDecryption", err)
    }
}

func TestDecryptWrongKey(t *testing.T) {
    a := newTestService(t, "secret-a")
    b := newTestService(t, "secret-b")
    enc, err := a.Encrypt("RSSMRA80A01H501Z")
    if err != nil {
        t.Fatal(err)
    }
    if _, err := b.Decrypt(enc); err != ErrDecryption {
        t.Errorf("wrong key: got %v, want ErrDecryption", err)
    }
}

func TestHashFiscalCodeNormalization(t *testing.T) {
    base := HashFiscalCode("RSSMRA80A01H501Z")
    if len(base) != 64 {
        t.Fatalf("hash length = %d, want 64", len(base))
    }
    variants := []string{
        "rssmra80a01h501z",
        "  RSSMRA80A01H501Z  ",
        "\trssMRA80a01H501z\n",
    }
    for _, v := range variants {
        if got := HashFiscalCode(v); got != base {
            t.Errorf("HashFiscalCode(%q) = %s, want %s", v, got, base)
        }
    }
    if HashFiscalCode("VRDLGI85B02F205X") == base {
        t.Error("different fiscal codes hashed to the same digest")
    }
    if HashFiscalCode("  ") != "" {
        t.Error("blank fiscal code should hash to empty string")
    }
}

func TestAnonymizationTokenUniqueness(t *testing.T) {
    seen := make(map[string]struct{}, 10000)
    for i := 0; i < 10000; i++ {
        tok, err := NewAnonymizationToken()
        if err != nil {
            t.Fatalf("NewAnonymizationToken failed: %v", err)
        }
        if len(tok) != 64 {
            t.Fatalf("token length = %d, want 64", len(tok))
        }
        if strings.ToLower(tok) != tok {
            t.Fatalf("token %q is not lowercase hex", tok)
        }
        if _, dup := seen[tok]; dup {
            t.Fatalf("duplicate token after %d draws", i)
        }
        seen[tok] = struct{}{}
    }
}
