package catalog

import (
	"testing"
	"time"
)

func TestCandidates(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id, size string, sold, signaled bool, created time.Time) Item {
		return Item{ProductID: id, Name: "Dress " + size, Size: size, Sold: sold, Signaled: signaled, Created: created}
	}

	a := mk("A", "(size S)", false, false, base.Add(1*time.Hour))
	b := mk("B", "(size M)", true, false, base.Add(2*time.Hour))
	c := mk("C", "(size L)", false, false, base.Add(3*time.Hour))
	d := mk("D", "(size S)", false, true, base)

	got := Candidates([]Item{a, b, c, d}, []string{"(size S)", "(size M)"})
	if len(got) != 1 || got[0].ProductID != "A" {
		t.Fatalf("expected exactly [A], got %v", ids(got))
	}
}

func TestCandidatesOldestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{ProductID: "newer", Size: "(size M)", Created: base.Add(time.Hour)},
		{ProductID: "older", Size: "(size S)", Created: base},
		{ProductID: "tied", Size: "(size M)", Created: base.Add(time.Hour)},
	}

	got := Candidates(items, []string{"(size S)", "(size M)"})
	want := []string{"older", "newer", "tied"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ProductID != id {
			t.Fatalf("position %d: expected %s, got %s (order %v)", i, id, got[i].ProductID, ids(got))
		}
	}
}

func TestCandidatesEmptyAndUntagged(t *testing.T) {
	items := []Item{
		{ProductID: "untagged", Size: "", Created: time.Now()},
		{ProductID: "unwanted", Size: "(size XL)", Created: time.Now()},
	}
	if got := Candidates(items, []string{"(size S)", "(size M)"}); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", ids(got))
	}
	if got := Candidates(nil, []string{"(size S)"}); len(got) != 0 {
		t.Fatalf("expected no candidates from empty catalog, got %v", ids(got))
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ProductID
	}
	return out
}
