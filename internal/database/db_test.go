package database

import "testing"

func TestDSN(t *testing.T) {
    got := DSN("voter", "s3cret", "db.internal", "3306", "voting")
    want := "voter:s3cret@tcp(db.internal:3306)/voting?charset=utf8mb4&parseTime=true&loc=UTC"
    if got != want {
        t.Fatalf("DSN = %q, want %q", got, want)
    }
}

func TestDSNWithoutPassword(t *testing.T) {
    got := DSN("voter", "", "localhost", "3306", "voting")
    want := "voter@tcp(localhost:3306)/voting?charset=utf8mb4&parseTime=true&loc=UTC"
    if got != want {
        t.Fatalf("DSN = %q, want %q", got, want)
    }
}
