package oidc

import (
    "context"
    "crypto/rand"
    "crypto/rsa"
    "encoding/base64"
    "encoding/json"
    "errors"
    "math/big"
    "net/http"
    "net/http/httptest"
    "sync"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// fakeProvider is an in-process identity provider: it serves an OIDC
// discovery document and a JWKS for a generated RSA key, and signs tokens
// with that key.
type fakeProvider struct {
    t   *testing.T
    srv *httptest.Server

    mu            sync.Mutex
    key           *rsa.PrivateKey
    kid           string
    metadataHits  int
    jwksHits      int
    failUpstream  bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
    t.Helper()
    key, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil {
        t.Fatalf("generate rsa key: %v", err)
    }
    p := &fakeProvider{t: t, key: key, kid: "key-1"}
    mux := http.NewServeMux()
    mux.HandleFunc("/.well-known/openid-configuration", p.serveMetadata)
    mux.HandleFunc("/keys", p.serveJWKS)
    p.srv = httptest.NewServer(mux)
    t.Cleanup(p.srv.Close)
    return p
}

func (p *fakeProvider) issuer() string { return p.srv.URL + "/v2.0/" }

func (p *fakeProvider) serveMetadata(w http.ResponseWriter, r *http.Request) {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.metadataHits++
    if p.failUpstream {
        http.Error(w, "service unavailable", http.StatusServiceUnavailable)
        return
    }
    _ = json.NewEncoder(w).Encode(map[string]string{
        "issuer":                 p.issuer(),
        "jwks_uri":               p.srv.URL + "/keys",
        "authorization_endpoint": p.srv.URL + "/authorize",
    })
}

func (p *fakeProvider) serveJWKS(w http.ResponseWriter, r *http.Request) {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.jwksHits++
    if p.failUpstream {
        http.Error(w, "service unavailable", http.StatusServiceUnavailable)
        return
    }
    pub := p.key.PublicKey
    _ = json.NewEncoder(w).Encode(map[string]interface{}{
        "keys": []map[string]string{{
            "kty": "RSA",
            "kid": p.kid,
            "use": "sig",
            "n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
            "e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
        }},
    })
}

// rotate swaps in a new signing key under a new kid, as the provider does
// during key rollover.
func (p *fakeProvider) rotate(kid string) {
    key, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil {
        p.t.Fatalf("generate rsa key: %v", err)
    }
    p.mu.Lock()
    p.key = key
    p.kid = kid
    p.mu.Unlock()
}

// signToken issues an RS256 token with the provider's current key.  extra
// overrides or extends the default claim set.
func (p *fakeProvider) signToken(extra map[string]interface{}) string {
    claims := jwt.MapClaims{
        "iss":          p.issuer(),
        "aud":          "voting-client",
        "exp":          time.Now().Add(10 * time.Minute).Unix(),
        "iat":          time.Now().Unix(),
        "fiscalNumber": "RSSMRA80A01H501Z",
        "given_name":   "Mario",
        "family_name":  "Rossi",
        "email":        "mario.rossi@example.it",
        "acr":          "https://www.spid.gov.it/SpidL2",
    }
    for k, v := range extra {
        if v == nil {
            delete(claims, k)
            continue
        }
        claims[k] = v
    }
    tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
    p.mu.Lock()
    tok.Header["kid"] = p.kid
    key := p.key
    p.mu.Unlock()
    signed, err := tok.SignedString(key)
    if err != nil {
        p.t.Fatalf("sign token: %v", err)
    }
    return signed
}

func newTestVerifier(p *fakeProvider) *Verifier {
    return NewVerifier(Config{
        Tenant:      "testtenant",
        Policy:      "B2C_1A_SIGNUP_SIGNIN_SPID",
        ClientID:    "voting-client",
        MetadataURL: p.srv.URL + "/.well-known/openid-configuration",
    }, NewMemoryCache(), nil)
}

func TestVerifyExtractsNormalizedClaims(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    claims, err := v.Verify(context.Background(), p.signToken(map[string]interface{}{
        "fiscalNumber": "  rssmra80a01h501z ",
    }))
    if err != nil {
        t.Fatalf("Verify failed: %v", err)
    }
    if claims.FiscalCode != "RSSMRA80A01H501Z" {
        t.Errorf("fiscal code = %q, want normalized RSSMRA80A01H501Z", claims.FiscalCode)
    }
    if claims.FirstName != "Mario" || claims.LastName != "Rossi" {
        t.Errorf("name = %q %q, want Mario Rossi", claims.FirstName, claims.LastName)
    }
    if claims.Email != "mario.rossi@example.it" {
        t.Errorf("email = %q", claims.Email)
    }
    if claims.AssuranceLevel != "https://www.spid.gov.it/SpidL2" {
        t.Errorf("assurance = %q", claims.AssuranceLevel)
    }
    if claims.Raw["iss"] == nil {
        t.Error("raw claim map not preserved")
    }
}

func TestVerifyProbesFiscalCodeAliases(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    for _, alias := range []string{"fiscal_number", "fiscalcode", "cf"} {
        tok := p.signToken(map[string]interface{}{
            "fiscalNumber": nil,
            alias:          "vrdlgi85b02f205x",
        })
        claims, err := v.Verify(context.Background(), tok)
        if err != nil {
            t.Fatalf("Verify with alias %q failed: %v", alias, err)
        }
        if claims.FiscalCode != "VRDLGI85B02F205X" {
            t.Errorf("alias %q: fiscal code = %q", alias, claims.FiscalCode)
        }
    }

    tok := p.signToken(map[string]interface{}{"fiscalNumber": nil})
    if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrMissingFiscalCode) {
        t.Errorf("no fiscal claim: got %v, want ErrMissingFiscalCode", err)
    }
}

func TestVerifyExpiredToken(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    tok := p.signToken(map[string]interface{}{
        "exp": time.Now().Add(-time.Minute).Unix(),
        "iat": time.Now().Add(-time.Hour).Unix(),
    })
    if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrTokenExpired) {
        t.Errorf("expired token: got %v, want ErrTokenExpired", err)
    }
}

func TestVerifyWrongAudienceAndIssuer(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    tok := p.signToken(map[string]interface{}{"aud": "another-client"})
    if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrTokenInvalid) {
        t.Errorf("wrong audience: got %v, want ErrTokenInvalid", err)
    }

    tok = p.signToken(map[string]interface{}{"iss": "https://evil.example/"})
    if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrTokenInvalid) {
        t.Errorf("wrong issuer: got %v, want ErrTokenInvalid", err)
    }
}

func TestVerifyTamperedToken(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    tok := p.signToken(nil)
    tampered := tok[:len(tok)-4] + "AAAA"
    if _, err := v.Verify(context.Background(), tampered); !errors.Is(err, ErrTokenInvalid) {
        t.Errorf("tampered token: got %v, want ErrTokenInvalid", err)
    }
}

func TestVerifyUnknownKidForcesSingleRefetch(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    // Prime the caches.
    if _, err := v.Verify(context.Background(), p.signToken(nil)); err != nil {
        t.Fatalf("priming Verify failed: %v", err)
    }
    p.mu.Lock()
    jwksBefore := p.jwksHits
    p.mu.Unlock()

    // Sign with a key the provider does not advertise.
    orphan, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil {
        t.Fatal(err)
    }
    tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
        "iss": p.issuer(), "aud": "voting-client",
        "exp": time.Now().Add(time.Minute).Unix(), "fiscalNumber": "RSSMRA80A01H501Z",
    })
    tok.Header["kid"] = "ghost-key"
    signed, err := tok.SignedString(orphan)
    if err != nil {
        t.Fatal(err)
    }

    if _, err := v.Verify(context.Background(), signed); !errors.Is(err, ErrUnknownSigningKey) {
        t.Fatalf("unknown kid: got %v, want ErrUnknownSigningKey", err)
    }
    p.mu.Lock()
    refetches := p.jwksHits - jwksBefore
    p.mu.Unlock()
    if refetches != 1 {
        t.Errorf("expected exactly 1 forced JWKS refetch, got %d", refetches)
    }
}

func TestVerifySelfHealsAfterKeyRotation(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    if _, err := v.Verify(context.Background(), p.signToken(nil)); err != nil {
        t.Fatalf("priming Verify failed: %v", err)
    }

    // Provider rotates; cached key set is now stale.
    p.rotate("key-2")
    if _, err := v.Verify(context.Background(), p.signToken(nil)); err != nil {
        t.Fatalf("Verify after rotation failed: %v", err)
    }
}

func TestMetadataAndJWKSAreCached(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    for i := 0; i < 5; i++ {
        if _, err := v.Verify(context.Background(), p.signToken(nil)); err != nil {
            t.Fatalf("Verify %d failed: %v", i, err)
        }
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.metadataHits != 1 {
        t.Errorf("metadata fetched %d times, want 1", p.metadataHits)
    }
    if p.jwksHits != 1 {
        t.Errorf("jwks fetched %d times, want 1", p.jwksHits)
    }
}

func TestVerifyUpstreamUnavailable(t *testing.T) {
    p := newFakeProvider(t)
    v := newTestVerifier(p)

    p.mu.Lock()
    p.failUpstream = true
    p.mu.Unlock()

    if _, err := v.FetchMetadata(context.Background()); !errors.Is(err, ErrUpstreamUnavailable) {
        t.Errorf("failing provider: got %v, want ErrUpstreamUnavailable", err)
    }
    if _, err := v.Verify(context.Background(), p.signToken(nil)); !errors.Is(err, ErrUpstreamUnavailable) {
        t.Errorf("failing provider: got %v, want ErrUpstreamUnavailable", err)
    }
}
