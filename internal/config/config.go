package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets (encryption key, admin key) are plain
// strings loaded at startup; they are never logged.
type Config struct {
    Env           string // application environment (e.g. "dev", "prod")
    Port          string // HTTP port to listen on
    DBUser        string // database username
    DBPass        string // database password (optional)
    DBHost        string // database host address
    DBPort        string // database port number
    DBName        string // database name
    EncryptionKey string // secret feeding the PBKDF2 key derivation for personal-data encryption
    SPIDTenant    string // identity-provider tenant (B2C tenant name)
    SPIDPolicy    string // identity-provider policy name
    SPIDClientID  string // OAuth2 client identifier registered with the provider
    SPIDRedirect  string // redirect_uri sent on the authorize request
    FrontendURL   string // base URL for post-login redirects back to the voting UI
    SessionTTLHrs int    // citizen session time-to-live in hours
    AdminAPIKey   string // shared key guarding the /v1/admin endpoints
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:           must("APP_ENV"),
        Port:          must("APP_PORT"),
        DBUser:        must("DB_USER"),
        DBPass:        os.Getenv("DB_PASS"), // empty allowed
        DBHost:        must("DB_HOST"),
        DBPort:        must("DB_PORT"),
        DBName:        must("DB_NAME"),
        EncryptionKey: must("ENCRYPTION_KEY"),
        SPIDTenant:    must("SPID_TENANT"),
        SPIDPolicy:    getenvDefault("SPID_POLICY", "B2C_1A_SIGNUP_SIGNIN_SPID"),
        SPIDClientID:  must("SPID_CLIENT_ID"),
        SPIDRedirect:  must("SPID_REDIRECT_URI"),
        FrontendURL:   must("FRONTEND_URL"),
        SessionTTLHrs: mustInt("SESSION_TTL_HOURS"),
        AdminAPIKey:   must("ADMIN_API_KEY"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// getenvDefault returns the value of key or def when key is unset or empty.
func getenvDefault(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}
