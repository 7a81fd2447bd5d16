package duel

import (
	"testing"
)

func TestOptionsDeterministicPerPlayer(t *testing.T) {
	e := testEngine(t)

	first, err := e.Options("m1", "q3", "a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Options("m1", "q3", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 4 {
		t.Fatalf("got %d options, want 4", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same triple gave %v and %v", first, second)
		}
	}
}

func TestOptionsContainCanonicalExactlyOnce(t *testing.T) {
	e := testEngine(t)

	for _, userID := range []string{"a", "b", "bot:passa-repassa"} {
		opts, err := e.Options("m1", "q5", userID)
		if err != nil {
			t.Fatal(err)
		}
		q, _ := e.catalog.Get("q5")
		count := 0
		for _, o := range opts {
			if Normalize(o) == Normalize(q.Canonical()) {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("canonical answer appears %d times for %s in %v", count, userID, opts)
		}
	}
}

func TestOptionsHaveNoDuplicates(t *testing.T) {
	e := testEngine(t)
	opts, err := e.Options("m1", "q0", "a")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, o := range opts {
		n := Normalize(o)
		if seen[n] {
			t.Fatalf("duplicate option %q in %v", o, opts)
		}
		seen[n] = true
	}
}

func TestOptionsUnknownQuestion(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Options("m1", "nope", "a"); err == nil {
		t.Fatalf("expected an error for unknown question id")
	}
}
