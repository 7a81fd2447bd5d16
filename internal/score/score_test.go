package score

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/rank"
)

type fakeSink struct {
	statCalls  int
	scoreCalls int
	lastXP     int
	lastWon    bool
	fail       bool
}

func (f *fakeSink) ReportMatch(ctx context.Context, userID string, won bool) error {
	f.statCalls++
	f.lastWon = won
	if f.fail {
		return errors.New("stat api down")
	}
	return nil
}

func (f *fakeSink) PersistScore(ctx context.Context, userID string, xp int) error {
	f.scoreCalls++
	f.lastXP = xp
	if f.fail {
		return errors.New("score api down")
	}
	return nil
}

func finalState() models.MatchState {
	return models.MatchState{
		MatchID: "m1",
		Phase:   models.PhaseFinal,
		Players: map[string]models.PlayerRef{
			"a": {UserID: "a", Name: "Ana"},
			"b": {UserID: "b", Name: "Bia"},
		},
		Scores:   map[string]int{"a": 6, "b": 4},
		WinnerID: "a",
	}
}

func TestXP(t *testing.T) {
	cases := []struct {
		score int
		won   bool
		want  int
	}{
		{score: 6, won: true, want: 290},
		{score: 4, won: false, want: 140},
		{score: 0, won: false, want: 0},
		{score: 5, won: true, want: 255},
	}
	for _, tc := range cases {
		if got := XP(tc.score, tc.won); got != tc.want {
			t.Fatalf("XP(%d, %v) = %d, want %d", tc.score, tc.won, got, tc.want)
		}
	}
}

func TestReportFinalIsIdempotentPerMatch(t *testing.T) {
	ranks := rank.Open(filepath.Join(t.TempDir(), "rank.json"))
	sink := &fakeSink{}
	r := NewReporter(sink, sink, ranks)

	state := finalState()
	r.ReportFinal(context.Background(), state, "a")
	r.ReportFinal(context.Background(), state, "a")

	if sink.statCalls != 1 || sink.scoreCalls != 1 {
		t.Fatalf("sinks called %d/%d times, want once each", sink.statCalls, sink.scoreCalls)
	}
	if sink.lastXP != 290 || !sink.lastWon {
		t.Fatalf("reported xp=%d won=%v", sink.lastXP, sink.lastWon)
	}

	top := ranks.Top(0)
	if len(top) != 2 {
		t.Fatalf("rank entries = %+v", top)
	}
	if top[0].UserID != "a" || top[0].Wins != 1 {
		t.Fatalf("winner entry = %+v", top[0])
	}
}

func TestReportFinalSinkFailuresDoNotPropagate(t *testing.T) {
	ranks := rank.Open(filepath.Join(t.TempDir(), "rank.json"))
	sink := &fakeSink{fail: true}
	r := NewReporter(sink, sink, ranks)

	// Must not panic or error out; failures are logged only.
	r.ReportFinal(context.Background(), finalState(), "b")

	if sink.statCalls != 1 || sink.scoreCalls != 1 {
		t.Fatalf("sinks not attempted despite failure mode")
	}
}

func TestReportFinalIgnoresNonFinalStates(t *testing.T) {
	ranks := rank.Open(filepath.Join(t.TempDir(), "rank.json"))
	sink := &fakeSink{}
	r := NewReporter(sink, sink, ranks)

	state := finalState()
	state.Phase = models.PhaseQuestion
	r.ReportFinal(context.Background(), state, "a")

	if sink.statCalls != 0 || sink.scoreCalls != 0 {
		t.Fatalf("non-final state reached the sinks")
	}
}

func TestReportFinalNilSinksStillUpdateRanks(t *testing.T) {
	ranks := rank.Open(filepath.Join(t.TempDir(), "rank.json"))
	r := NewReporter(nil, nil, ranks)
	r.ReportFinal(context.Background(), finalState(), "a")
	if len(ranks.Top(0)) != 2 {
		t.Fatalf("rank cache not updated with nil sinks")
	}
}
