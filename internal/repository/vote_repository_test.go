package repository

import (
    "context"
    "database/sql"
    "errors"
    "testing"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newVoteRepoMock(t *testing.T) (*VoteRepo, sqlmock.Sqlmock, func()) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    return NewVoteRepo(db), mock, func() { db.Close() }
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
    t.Helper()
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

// A first commit writes the voter-ledger row and the anonymous tally row in
// one transaction.  The tally insert carries no citizen reference, only the
// generated anonymization token.
func TestCommitVoteWritesBothLedgers(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM citizen_has_voted").
        WithArgs(uint64(10), uint64(1)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM options`).
        WithArgs(uint64(2), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
    mock.ExpectExec("INSERT INTO citizen_has_voted").
        WithArgs(uint64(10), uint64(1), "203.0.113.10").
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectExec("INSERT INTO results").
        WithArgs(uint64(1), uint64(2), sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    if err := repo.CommitVote(context.Background(), 10, 1, 2, "203.0.113.10"); err != nil {
        t.Fatalf("CommitVote: %v", err)
    }
    verify(t, mock)
}

// A second commit for the same (citizen, session) pair finds the locked
// voter-ledger row and fails with ErrAlreadyVoted without touching either
// ledger.
func TestCommitVoteSecondAttemptAlreadyVoted(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM citizen_has_voted").
        WithArgs(uint64(10), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
    mock.ExpectRollback()

    err := repo.CommitVote(context.Background(), 10, 1, 3, "203.0.113.10")
    if !errors.Is(err, ErrAlreadyVoted) {
        t.Fatalf("CommitVote = %v, want ErrAlreadyVoted", err)
    }
    verify(t, mock)
}

// Two commits that slip past the FOR UPDATE check serialize on the unique
// (citizen_id, voting_session_id) key: the loser's duplicate-entry error is
// reported as ErrAlreadyVoted, not as a server fault.
func TestCommitVoteDuplicateKeyRace(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM citizen_has_voted").
        WithArgs(uint64(10), uint64(1)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM options`).
        WithArgs(uint64(2), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
    mock.ExpectExec("INSERT INTO citizen_has_voted").
        WithArgs(uint64(10), uint64(1), "203.0.113.10").
        WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '10-1' for key 'uq_vote_once'"))
    mock.ExpectRollback()

    err := repo.CommitVote(context.Background(), 10, 1, 2, "203.0.113.10")
    if !errors.Is(err, ErrAlreadyVoted) {
        t.Fatalf("CommitVote = %v, want ErrAlreadyVoted", err)
    }
    verify(t, mock)
}

func TestCommitVoteOptionMismatch(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM citizen_has_voted").
        WithArgs(uint64(10), uint64(1)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM options`).
        WithArgs(uint64(99), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
    mock.ExpectRollback()

    err := repo.CommitVote(context.Background(), 10, 1, 99, "203.0.113.10")
    if !errors.Is(err, ErrOptionMismatch) {
        t.Fatalf("CommitVote = %v, want ErrOptionMismatch", err)
    }
    verify(t, mock)
}

// When the tally insert fails after the voter-ledger insert succeeded, the
// whole transaction rolls back: a citizen is never marked as having voted
// without a matching tally row.
func TestCommitVoteRollsBackWhenTallyInsertFails(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM citizen_has_voted").
        WithArgs(uint64(10), uint64(1)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM options`).
        WithArgs(uint64(2), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
    mock.ExpectExec("INSERT INTO citizen_has_voted").
        WithArgs(uint64(10), uint64(1), "203.0.113.10").
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectExec("INSERT INTO results").
        WithArgs(uint64(1), uint64(2), sqlmock.AnyArg()).
        WillReturnError(errors.New("Error 1213 (40001): Deadlock found when trying to get lock"))
    mock.ExpectRollback()

    err := repo.CommitVote(context.Background(), 10, 1, 2, "203.0.113.10")
    if err == nil {
        t.Fatal("CommitVote should fail when the tally insert fails")
    }
    if errors.Is(err, ErrAlreadyVoted) || errors.Is(err, ErrOptionMismatch) {
        t.Fatalf("CommitVote = %v, want a plain storage error", err)
    }
    verify(t, mock)
}

func TestHasVoted(t *testing.T) {
    repo, mock, cleanup := newVoteRepoMock(t)
    defer cleanup()

    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM citizen_has_voted`).
        WithArgs(uint64(10), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM citizen_has_voted`).
        WithArgs(uint64(11), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))

    voted, err := repo.HasVoted(context.Background(), 10, 1)
    if err != nil || !voted {
        t.Fatalf("HasVoted(10) = %v, %v; want true", voted, err)
    }
    voted, err = repo.HasVoted(context.Background(), 11, 1)
    if err != nil || voted {
        t.Fatalf("HasVoted(11) = %v, %v; want false", voted, err)
    }
    verify(t, mock)
}
