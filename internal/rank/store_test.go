package rank

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rank.json")
	return Open(path), path
}

func TestRecordAppliesFixedDeltas(t *testing.T) {
	s, _ := tempStore(t)

	e := s.Record("a", "Ana", true)
	if e.Rating != initialRating+winDelta || e.Matches != 1 || e.Wins != 1 {
		t.Fatalf("after win: %+v", e)
	}

	e = s.Record("a", "Ana", false)
	if e.Rating != initialRating+winDelta+lossDelta || e.Matches != 2 || e.Wins != 1 {
		t.Fatalf("after loss: %+v", e)
	}
}

func TestRecordClampsRating(t *testing.T) {
	s, _ := tempStore(t)

	for i := 0; i < 100; i++ {
		s.Record("loser", "", false)
	}
	if got := s.Record("loser", "", false).Rating; got != minRating {
		t.Fatalf("rating = %d, want clamped to %d", got, minRating)
	}

	for i := 0; i < 100; i++ {
		s.Record("winner", "", true)
	}
	if got := s.Record("winner", "", true).Rating; got != maxRating {
		t.Fatalf("rating = %d, want clamped to %d", got, maxRating)
	}
}

func TestSaveCapsToTopFifty(t *testing.T) {
	s, path := tempStore(t)
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("u%02d", i)
		wins := i%2 == 0
		for j := 0; j <= i%7; j++ {
			s.Record(id, "Player", wins)
		}
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := Open(path)
	if got := len(reloaded.Top(0)); got != maxEntries {
		t.Fatalf("persisted %d entries, want %d", got, maxEntries)
	}
}

func TestTopOrdersByRating(t *testing.T) {
	s, _ := tempStore(t)
	s.Record("a", "Ana", false)
	s.Record("b", "Bia", true)
	s.Record("b", "Bia", true)
	s.Record("c", "Caio", true)

	top := s.Top(0)
	if len(top) != 3 || top[0].UserID != "b" || top[1].UserID != "c" || top[2].UserID != "a" {
		t.Fatalf("order = %+v", top)
	}
}

func TestProcessedMarkers(t *testing.T) {
	s, path := tempStore(t)
	if s.Processed("m1") {
		t.Fatalf("fresh store claims m1 processed")
	}
	s.MarkProcessed("m1")
	s.MarkProcessed("m1")
	if !s.Processed("m1") {
		t.Fatalf("marker lost")
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if !Open(path).Processed("m1") {
		t.Fatalf("marker not persisted")
	}
}

func TestOpenCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rank.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if len(s.Top(0)) != 0 {
		t.Fatalf("corrupt cache should reset to empty")
	}
}
