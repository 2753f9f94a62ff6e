package handler

import (
    "testing"

    "github.com/iliyamo/municipal-voting/internal/model"
    "github.com/iliyamo/municipal-voting/internal/repository"
)

func oc(id uint64, text string, order int32, count uint64) repository.OptionCount {
    return repository.OptionCount{
        Option: model.Option{ID: id, Text: text, DisplayOrder: order},
        Count:  count,
    }
}

func TestComputeResultsPercentages(t *testing.T) {
    got := ComputeResults([]repository.OptionCount{
        oc(1, "Yes", 1, 3),
        oc(2, "No", 2, 1),
    })

    if len(got) != 2 {
        t.Fatalf("len = %d, want 2", len(got))
    }
    if got[0].OptionID != 1 || got[0].Count != 3 || got[0].Percentage != 75.0 {
        t.Fatalf("winner = %+v, want option 1, 3 votes, 75.0%%", got[0])
    }
    if got[1].OptionID != 2 || got[1].Count != 1 || got[1].Percentage != 25.0 {
        t.Fatalf("runner-up = %+v, want option 2, 1 vote, 25.0%%", got[1])
    }
}

func TestComputeResultsRounding(t *testing.T) {
    got := ComputeResults([]repository.OptionCount{
        oc(1, "A", 1, 1),
        oc(2, "B", 2, 1),
        oc(3, "C", 3, 1),
    })

    // 1/3 rounds to 33.33, not a longer float tail.
    for _, r := range got {
        if r.Percentage != 33.33 {
            t.Fatalf("percentage = %v, want 33.33", r.Percentage)
        }
    }
}

func TestComputeResultsZeroVotes(t *testing.T) {
    got := ComputeResults([]repository.OptionCount{
        oc(1, "Yes", 1, 0),
        oc(2, "No", 2, 0),
    })

    if len(got) != 2 {
        t.Fatalf("zero-vote options must still appear, len = %d", len(got))
    }
    for _, r := range got {
        if r.Count != 0 || r.Percentage != 0 {
            t.Fatalf("expected zeroes, got %+v", r)
        }
    }
    // Ties keep display order.
    if got[0].OptionID != 1 || got[1].OptionID != 2 {
        t.Fatalf("tie order changed: %+v", got)
    }
}

func TestComputeResultsSortedDescStable(t *testing.T) {
    got := ComputeResults([]repository.OptionCount{
        oc(10, "A", 1, 2),
        oc(11, "B", 2, 5),
        oc(12, "C", 3, 2),
        oc(13, "D", 4, 7),
    })

    wantOrder := []uint64{13, 11, 10, 12}
    for i, id := range wantOrder {
        if got[i].OptionID != id {
            t.Fatalf("position %d = option %d, want %d (full: %+v)", i, got[i].OptionID, id, got)
        }
    }
}

func TestComputeResultsEmpty(t *testing.T) {
    if got := ComputeResults(nil); len(got) != 0 {
        t.Fatalf("expected empty, got %+v", got)
    }
}
