// Package oidc verifies the signed identity assertions delivered by the
// SPID/DigitID federation.  It downloads and caches the provider's OIDC
// metadata and JSON Web Key Set, checks the RS256 signature together with
// expiry, audience and issuer, and extracts a normalized claim set keyed by
// the citizen's fiscal code.
package oidc

import (
    "context"
    "crypto/rsa"
    "encoding/base64"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "math/big"
    "net/http"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Sentinel errors; handlers translate each into a distinct HTTP response.
var (
    ErrUpstreamUnavailable = errors.New("identity provider unreachable")
    ErrUnknownSigningKey   = errors.New("signing key not found in provider key set")
    ErrTokenExpired        = errors.New("identity token expired")
    ErrTokenInvalid        = errors.New("identity token invalid")
    ErrMissingFiscalCode   = errors.New("fiscal code claim not found in identity token")
)

const cacheTTL = 24 * time.Hour

// Claim aliases probed in order.  The provider's claim naming varies per
// tenant configuration, so the recognized names live here as explicit
// ordered lists rather than scattered literals.
var (
    fiscalCodeAliases = []string{"fiscalNumber", "fiscal_number", "fiscalcode", "cf"}
    firstNameAliases  = []string{"given_name", "name", "givenName"}
    lastNameAliases   = []string{"family_name", "surname", "familyName"}
    assuranceAliases  = []string{"acr", "spidLevel"}
)

// Metadata is the subset of the provider's OIDC discovery document the
// backend needs.
type Metadata struct {
    Issuer                string `json:"issuer"`
    JWKSURI               string `json:"jwks_uri"`
    AuthorizationEndpoint string `json:"authorization_endpoint"`
}

// Claims is the normalized result of a successful verification.  Raw keeps
// the full claim map for diagnostics; it is never serialized to clients.
type Claims struct {
    FiscalCode     string
    FirstName      string
    LastName       string
    Email          string
    AssuranceLevel string
    Raw            map[string]interface{}
}

type jwk struct {
    Kty string `json:"kty"`
    Kid string `json:"kid"`
    Use string `json:"use"`
    N   string `json:"n"`
    E   string `json:"e"`
}

type jwks struct {
    Keys []jwk `json:"keys"`
}

// Config identifies the provider tenant and the relying party.
type Config struct {
    Tenant   string // B2C tenant name
    Policy   string // sign-in policy
    ClientID string // audience the token must be issued for
    // MetadataURL overrides the discovery URL derived from Tenant/Policy.
    // Used for the test environment.
    MetadataURL string
}

// Verifier fetches provider configuration through an injected Cache and
// verifies inbound identity tokens.  Safe for concurrent use.
type Verifier struct {
    cfg    Config
    cache  Cache
    client *http.Client
}

// NewVerifier builds a Verifier.  A nil client gets a 10-second-timeout
// default so a slow provider cannot hang request threads.
func NewVerifier(cfg Config, cache Cache, client *http.Client) *Verifier {
    if client == nil {
        client = &http.Client{Timeout: 10 * time.Second}
    }
    return &Verifier{cfg: cfg, cache: cache, client: client}
}

func (v *Verifier) metadataURL() string {
    if v.cfg.MetadataURL != "" {
        return v.cfg.MetadataURL
    }
    return fmt.Sprintf(
        "https://%s.b2clogin.com/%s.onmicrosoft.com/v2.0/.well-known/openid-configuration?p=%s",
        v.cfg.Tenant, v.cfg.Tenant, v.cfg.Policy,
    )
}

func (v *Verifier) metadataCacheKey() string { return "oidc:metadata:" + v.cfg.Tenant }
func (v *Verifier) jwksCacheKey() string     { return "oidc:jwks:" + v.cfg.Tenant }

// fetchJSON performs one bounded GET and decodes the body into out.  Network
// or HTTP-level failures surface as ErrUpstreamUnavailable; the caller
// decides whether to retry.
func (v *Verifier) fetchJSON(ctx context.Context, url string, out interface{}) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
    }
    resp, err := v.client.Do(req)
    if err != nil {
        return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return fmt.Errorf("%w: status %d from %s", ErrUpstreamUnavailable, resp.StatusCode, url)
    }
    body, err := io.ReadAll(resp.Body)
    if err != nil {
        return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
    }
    if err := json.Unmarshal(body, out); err != nil {
        return fmt.Errorf("%w: invalid JSON from %s", ErrUpstreamUnavailable, url)
    }
    return nil
}

// FetchMetadata returns the provider's discovery document, served from
// cache when fresh.
func (v *Verifier) FetchMetadata(ctx context.Context) (Metadata, error) {
    var md Metadata
    if bs, ok := v.cache.Get(ctx, v.metadataCacheKey()); ok {
        if err := json.Unmarshal(bs, &md); err == nil {
            return md, nil
        }
    }
    if err := v.fetchJSON(ctx, v.metadataURL(), &md); err != nil {
        return Metadata{}, err
    }
    if md.Issuer == "" || md.JWKSURI == "" {
        return Metadata{}, fmt.Errorf("%w: metadata missing issuer or jwks_uri", ErrUpstreamUnavailable)
    }
    if bs, err := json.Marshal(md); err == nil {
        v.cache.Set(ctx, v.metadataCacheKey(), bs, cacheTTL)
    }
    return md, nil
}

// fetchKeySet returns the provider key set.  force bypasses the cache,
// which is how key rotation self-heals before the TTL runs out.
func (v *Verifier) fetchKeySet(ctx context.Context, force bool) (jwks, error) {
    var ks jwks
    if !force {
        if bs, ok := v.cache.Get(ctx, v.jwksCacheKey()); ok {
            if err := json.Unmarshal(bs, &ks); err == nil {
                return ks, nil
            }
        }
    }
    md, err := v.FetchMetadata(ctx)
    if err != nil {
        return jwks{}, err
    }
    if err := v.fetchJSON(ctx, md.JWKSURI, &ks); err != nil {
        return jwks{}, err
    }
    if bs, err := json.Marshal(ks); err == nil {
        v.cache.Set(ctx, v.jwksCacheKey(), bs, cacheTTL)
    }
    return ks, nil
}

// signingKey locates the RSA public key matching kid.  On a miss against
// the cached set it forces exactly one fresh fetch before giving up.
func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
    ks, err := v.fetchKeySet(ctx, false)
    if err != nil {
        return nil, err
    }
    if key, ok := findKey(ks, kid); ok {
        return key, nil
    }
    ks, err = v.fetchKeySet(ctx, true)
    if err != nil {
        return nil, err
    }
    if key, ok := findKey(ks, kid); ok {
        return key, nil
    }
    return nil, ErrUnknownSigningKey
}

func findKey(ks jwks, kid string) (*rsa.PublicKey, bool) {
    for _, k := range ks.Keys {
        if k.Kid != kid || k.Kty != "RSA" {
            continue
        }
        pub, err := k.rsaPublicKey()
        if err != nil {
            log.Printf("oidc: skipping malformed jwk kid=%s: %v", k.Kid, err)
            continue
        }
        return pub, true
    }
    return nil, false
}

// rsaPublicKey converts the base64url modulus/exponent pair into an
// *rsa.PublicKey usable by the jwt library.
func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
    nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
    if err != nil {
        return nil, fmt.Errorf("decode modulus: %w", err)
    }
    eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
    if err != nil {
        return nil, fmt.Errorf("decode exponent: %w", err)
    }
    e := 0
    for _, b := range eBytes {
        e = e<<8 | int(b)
    }
    if e <= 0 {
        return nil, errors.New("non-positive exponent")
    }
    return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

// Verify checks the token's signature, expiry, audience and issuer and
// extracts the normalized claim set.  All four checks must pass; expiry is
// reported distinctly so callers can tell the citizen to log in again.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
    unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
    if err != nil {
        return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
    }
    kid, _ := unverified.Header["kid"].(string)
    if kid == "" {
        return Claims{}, fmt.Errorf("%w: token header has no kid", ErrTokenInvalid)
    }

    key, err := v.signingKey(ctx, kid)
    if err != nil {
        return Claims{}, err
    }
    md, err := v.FetchMetadata(ctx)
    if err != nil {
        return Claims{}, err
    }

    parsed, err := jwt.Parse(token,
        func(t *jwt.Token) (interface{}, error) { return key, nil },
        jwt.WithValidMethods([]string{"RS256"}),
        jwt.WithAudience(v.cfg.ClientID),
        jwt.WithIssuer(md.Issuer),
        jwt.WithExpirationRequired(),
    )
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return Claims{}, ErrTokenExpired
        }
        return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
    }
    payload, ok := parsed.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, fmt.Errorf("%w: unexpected claim format", ErrTokenInvalid)
    }
    return extractClaims(payload)
}

// extractClaims probes the alias lists and normalizes the fiscal code.
func extractClaims(payload jwt.MapClaims) (Claims, error) {
    fiscal := firstString(payload, fiscalCodeAliases)
    if fiscal == "" {
        return Claims{}, ErrMissingFiscalCode
    }
    c := Claims{
        FiscalCode:     strings.ToUpper(strings.TrimSpace(fiscal)),
        FirstName:      firstString(payload, firstNameAliases),
        LastName:       firstString(payload, lastNameAliases),
        AssuranceLevel: firstString(payload, assuranceAliases),
        Raw:            payload,
    }
    if email, ok := payload["email"].(string); ok {
        c.Email = strings.TrimSpace(email)
    }
    return c, nil
}

func firstString(payload jwt.MapClaims, aliases []string) string {
    for _, name := range aliases {
        if v, ok := payload[name].(string); ok && strings.TrimSpace(v) != "" {
            return v
        }
    }
    return ""
}
