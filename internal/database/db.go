// Package database opens the MySQL handle shared by every repository.
package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

// DSN assembles the MySQL connection string.  parseTime maps DATETIME
// columns (voted_at, session windows, session expiry) onto time.Time, and
// loc=UTC keeps ledger timestamps comparable across replicas regardless of
// server timezone.
func DSN(user, pass, host, port, name string) string {
    auth := user
    if pass != "" {
        auth = user + ":" + pass
    }
    return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
        auth, host, port, name)
}

// Open connects to MySQL and verifies the connection before the server
// starts accepting handshakes and votes.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
    if err != nil {
        return nil, err
    }

    // Vote commits hold their row locks only for the two ledger inserts,
    // so connections turn over quickly; a modest pool with a short idle
    // cap keeps a login burst from pinning stale connections.
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(10)
    db.SetConnMaxLifetime(30 * time.Minute)
    db.SetConnMaxIdleTime(5 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}
