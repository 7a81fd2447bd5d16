package replication

import (
	"testing"
	"time"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

func st(matchID string, rev int64) *models.MatchState {
	return &models.MatchState{MatchID: matchID, Rev: rev}
}

func TestShouldAcceptIncomingState(t *testing.T) {
	cases := []struct {
		name     string
		current  *models.MatchState
		incoming *models.MatchState
		want     bool
	}{
		{name: "nil incoming", current: st("m1", 1), incoming: nil, want: false},
		{name: "incoming without match id", current: st("m1", 1), incoming: st("", 9), want: false},
		{name: "no current state accepts anything well-formed", current: nil, incoming: st("m1", 1), want: true},
		{name: "foreign match id rejected regardless of rev", current: st("m1", 1), incoming: st("m2", 99), want: false},
		{name: "newer rev accepted", current: st("m1", 3), incoming: st("m1", 4), want: true},
		{name: "equal rev accepted (idempotent redelivery)", current: st("m1", 3), incoming: st("m1", 3), want: true},
		{name: "older rev rejected", current: st("m1", 3), incoming: st("m1", 2), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldAcceptIncomingState(tc.current, tc.incoming); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextStateWithRevIncrementsExactlyOnce(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	prev := models.MatchState{MatchID: "m1", Rev: 7}
	next := NextStateWithRev(prev, prev.Clone(), now)
	if next.Rev != 8 {
		t.Fatalf("rev = %d, want 8", next.Rev)
	}
	if next.UpdatedAtMs != now.UnixMilli() {
		t.Fatalf("updatedAtMs = %d, want %d", next.UpdatedAtMs, now.UnixMilli())
	}

	// Chained stamps never reuse or skip a revision.
	cur := models.MatchState{MatchID: "m1", Rev: 0}
	for want := int64(1); want <= 5; want++ {
		cur = NextStateWithRev(cur, cur.Clone(), now)
		if cur.Rev != want {
			t.Fatalf("rev = %d, want %d", cur.Rev, want)
		}
	}
}

func TestShouldRequestResync(t *testing.T) {
	cases := []struct {
		name   string
		stage  Stage
		nowMs  int64
		lastMs int64
		want   bool
	}{
		{name: "queue never resyncs", stage: StageQueue, nowMs: 10000, lastMs: 0, want: false},
		{name: "matched never resyncs", stage: StageMatched, nowMs: 10000, lastMs: 0, want: false},
		{name: "playing with no state ever", stage: StagePlaying, nowMs: 10000, lastMs: 0, want: true},
		{name: "playing inside window", stage: StagePlaying, nowMs: 10000, lastMs: 6000, want: false},
		{name: "playing past window", stage: StagePlaying, nowMs: 10000, lastMs: 5000, want: true},
		{name: "exactly at window boundary stays quiet", stage: StagePlaying, nowMs: 10000, lastMs: 5500, want: false},
		{name: "final also watches for staleness", stage: StageFinal, nowMs: 10000, lastMs: 1000, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRequestResync(tc.stage, tc.nowMs, tc.lastMs); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResyncResponse(t *testing.T) {
	state := st("m1", 4)
	if got := ResyncResponse("sync-request", "m1", state); got != state {
		t.Fatalf("expected the host state back, got %+v", got)
	}
	if got := ResyncResponse("sync-request", "m2", state); got != nil {
		t.Fatalf("foreign match id must be ignored, got %+v", got)
	}
	if got := ResyncResponse("state", "m1", state); got != nil {
		t.Fatalf("non sync-request events must be ignored, got %+v", got)
	}
	if got := ResyncResponse("sync-request", "m1", nil); got != nil {
		t.Fatalf("host without state must stay silent, got %+v", got)
	}
	if got := ResyncResponse("sync-request", "", state); got != nil {
		t.Fatalf("empty requested match id must be ignored, got %+v", got)
	}
}
