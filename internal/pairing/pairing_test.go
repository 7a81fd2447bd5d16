package pairing

import "testing"

func rosterWithout(all []Peer, selfID string) []Peer {
	out := make([]Peer, 0, len(all))
	for _, p := range all {
		if p.UserID != selfID {
			out = append(out, p)
		}
	}
	return out
}

func TestSelectOpponentPairsAdjacentSortedIDs(t *testing.T) {
	peers := []Peer{{UserID: "b", Name: "Bia"}}
	d := SelectOpponent("a", "Ana", peers)
	if d == nil {
		t.Fatalf("expected a pairing")
	}
	if d.OpponentID != "b" || !d.IsHost {
		t.Fatalf("got %+v, want opponent b with self hosting", d)
	}
}

func TestSelectOpponentSmallerIDHosts(t *testing.T) {
	d := SelectOpponent("b", "Bia", []Peer{{UserID: "a", Name: "Ana"}})
	if d == nil {
		t.Fatalf("expected a pairing")
	}
	if d.OpponentID != "a" || d.IsHost {
		t.Fatalf("got %+v, want opponent a with peer hosting", d)
	}
}

func TestSelectOpponentSymmetry(t *testing.T) {
	rosters := [][]Peer{
		{{UserID: "a"}, {UserID: "b"}},
		{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}, {UserID: "d"}},
		{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}, {UserID: "u4"}, {UserID: "u5"}, {UserID: "u6"}},
		{{UserID: "zz"}, {UserID: "aa"}, {UserID: "mm"}, {UserID: "bb"}},
	}
	for _, roster := range rosters {
		for _, self := range roster {
			d := SelectOpponent(self.UserID, self.Name, rosterWithout(roster, self.UserID))
			if d == nil {
				continue
			}
			back := SelectOpponent(d.OpponentID, "", rosterWithout(roster, d.OpponentID))
			if back == nil {
				t.Fatalf("%s paired with %s but the reverse call found nobody", self.UserID, d.OpponentID)
			}
			if back.OpponentID != self.UserID {
				t.Fatalf("%s -> %s but %s -> %s", self.UserID, d.OpponentID, d.OpponentID, back.OpponentID)
			}
			if back.IsHost == d.IsHost {
				t.Fatalf("both %s and %s claim IsHost=%v", self.UserID, d.OpponentID, d.IsHost)
			}
		}
	}
}

func TestSelectOpponentOddRosterLeavesExactlyOneOut(t *testing.T) {
	rosters := [][]Peer{
		{{UserID: "a"}},
		{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}},
		{{UserID: "p1"}, {UserID: "p2"}, {UserID: "p3"}, {UserID: "p4"}, {UserID: "p5"}},
	}
	for _, roster := range rosters {
		unmatched := 0
		for _, self := range roster {
			if SelectOpponent(self.UserID, self.Name, rosterWithout(roster, self.UserID)) == nil {
				unmatched++
			}
		}
		if unmatched != 1 {
			t.Fatalf("roster of %d left %d unmatched, want exactly 1", len(roster), unmatched)
		}
	}
}

func TestSelectOpponentDeduplicatesSelfInPeers(t *testing.T) {
	// Presence snapshots can still contain our own row.
	d := SelectOpponent("a", "Ana", []Peer{{UserID: "a", Name: "Ana"}, {UserID: "b", Name: "Bia"}})
	if d == nil || d.OpponentID != "b" {
		t.Fatalf("got %+v, want opponent b", d)
	}
}

func TestSelectOpponentAloneReturnsNil(t *testing.T) {
	if d := SelectOpponent("a", "Ana", nil); d != nil {
		t.Fatalf("expected nil with empty roster, got %+v", d)
	}
}
