// Package duel implements the host-authoritative state machine of a Passa ou
// Repassa match. Only the host node runs these transitions; the peer merely
// requests them over the transport and applies whatever state the host
// publishes next. Every function takes a state value and returns a fresh one;
// revision stamping happens in the replication layer when the host publishes.
package duel

import (
	"errors"
	"fmt"
	"time"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/questions"
)

var (
	ErrWrongPhase         = errors.New("action not valid in current phase")
	ErrNotYourTurn        = errors.New("not this player's turn")
	ErrUnknownPlayer      = errors.New("player is not in this match")
	ErrPassAlreadyUsed    = errors.New("pass already used this question")
	ErrRepassaUnavailable = errors.New("repassa not available")
	ErrQuestionMissing    = errors.New("question not found in catalog")
)

// Engine evaluates match transitions against the question catalog. Inputs
// arrive over the network and cannot be trusted, so every operation
// re-validates phase, membership, and turn even though the UI already
// disables invalid actions.
type Engine struct {
	catalog      *questions.Catalog
	roundSeconds int
}

// NewEngine returns an engine playing rounds of roundSeconds each.
func NewEngine(catalog *questions.Catalog, roundSeconds int) *Engine {
	return &Engine{catalog: catalog, roundSeconds: roundSeconds}
}

// RoundSeconds returns how long each question stays open.
func (e *Engine) RoundSeconds() int {
	return e.roundSeconds
}

// NewMatchState seeds a fresh match between a and b. The question order is
// shuffled from the match id so both clients could derive it independently,
// and the lexicographically first player opens round zero.
func (e *Engine) NewMatchState(matchID string, a, b models.PlayerRef, roundTotal int, now time.Time) (models.MatchState, error) {
	if matchID == "" || a.UserID == "" || b.UserID == "" || a.UserID == b.UserID {
		return models.MatchState{}, fmt.Errorf("invalid match participants %q vs %q", a.UserID, b.UserID)
	}
	ids := e.catalog.ShuffledIDs(matchID, roundTotal)
	if len(ids) == 0 {
		return models.MatchState{}, fmt.Errorf("no questions available for match %s", matchID)
	}
	if roundTotal > len(ids) {
		roundTotal = len(ids)
	}

	s := models.MatchState{
		MatchID:    matchID,
		GameID:     1,
		Phase:      models.PhaseQuestion,
		RoundIndex: 0,
		RoundTotal: roundTotal,
		Players: map[string]models.PlayerRef{
			a.UserID: a,
			b.UserID: b,
		},
		Scores:          map[string]int{a.UserID: 0, b.UserID: 0},
		QuestionIDs:     ids,
		QuestionID:      ids[0],
		QuestionStartMs: now.UnixMilli(),
		RematchRequests: map[string]bool{},
	}
	s.TurnUserID = s.PlayerIDs()[0]
	return s, nil
}

// ApplyPass hands the turn to the other player. A question allows at most
// one pass.
func (e *Engine) ApplyPass(s models.MatchState, userID string) (models.MatchState, error) {
	if s.Phase != models.PhaseQuestion {
		return s, ErrWrongPhase
	}
	if !s.HasPlayer(userID) {
		return s, ErrUnknownPlayer
	}
	if s.TurnUserID != userID {
		return s, ErrNotYourTurn
	}
	if s.PassedByUserID != "" {
		return s, ErrPassAlreadyUsed
	}

	next := s.Clone()
	next.TurnUserID = s.OpponentOf(userID)
	next.PassedByUserID = userID
	next.RepassaAvailable = true
	return next, nil
}

// ApplyRepassa bounces a passed question back to the original passer. Only
// the player who received the pass may repassa, and only once.
func (e *Engine) ApplyRepassa(s models.MatchState, userID string) (models.MatchState, error) {
	if s.Phase != models.PhaseQuestion {
		return s, ErrWrongPhase
	}
	if !s.HasPlayer(userID) {
		return s, ErrUnknownPlayer
	}
	if s.TurnUserID != userID {
		return s, ErrNotYourTurn
	}
	if !s.RepassaAvailable || s.PassedByUserID == "" {
		return s, ErrRepassaUnavailable
	}

	next := s.Clone()
	next.TurnUserID = s.PassedByUserID
	next.RepassaAvailable = false
	return next, nil
}

// ApplyAnswer resolves the round with the submitted text. There is no
// "no winner" outcome: a wrong answer awards the point to the opponent.
func (e *Engine) ApplyAnswer(s models.MatchState, userID, text string, now time.Time) (models.MatchState, error) {
	if s.Phase != models.PhaseQuestion {
		return s, ErrWrongPhase
	}
	if !s.HasPlayer(userID) {
		return s, ErrUnknownPlayer
	}
	if s.TurnUserID != userID {
		return s, ErrNotYourTurn
	}
	q, ok := e.catalog.Get(s.QuestionID)
	if !ok {
		return s, ErrQuestionMissing
	}

	submitted := Normalize(text)
	correct := false
	for _, answer := range q.Answers {
		if Normalize(answer) == submitted {
			correct = true
			break
		}
	}

	result := models.RoundResult{
		Type:          models.ResultWrong,
		WinnerID:      s.OpponentOf(userID),
		SubmitterID:   userID,
		SubmittedText: text,
		CorrectAnswer: q.Canonical(),
		QuestionID:    s.QuestionID,
	}
	if correct {
		result.Type = models.ResultCorrect
		result.WinnerID = userID
	}
	return e.resolveRound(s, result), nil
}

// ResolveTimeout awards the point to the non-turn player once the round
// clock runs out. The bool reports whether a timeout was actually due.
func (e *Engine) ResolveTimeout(s models.MatchState, now time.Time) (models.MatchState, bool) {
	if s.Phase != models.PhaseQuestion {
		return s, false
	}
	if now.UnixMilli()-s.QuestionStartMs < int64(e.roundSeconds)*1000 {
		return s, false
	}
	q, _ := e.catalog.Get(s.QuestionID)
	result := models.RoundResult{
		Type:          models.ResultTimeout,
		WinnerID:      s.OpponentOf(s.TurnUserID),
		CorrectAnswer: q.Canonical(),
		QuestionID:    s.QuestionID,
	}
	return e.resolveRound(s, result), true
}

// resolveRound is the shared answer/timeout path: score the winner, record
// the result, and either show it or finish the match.
func (e *Engine) resolveRound(s models.MatchState, result models.RoundResult) models.MatchState {
	next := s.Clone()
	if result.WinnerID != "" {
		next.Scores[result.WinnerID]++
	}
	next.Result = &result
	next.Phase = models.PhaseResult

	if next.RoundIndex+1 >= next.RoundTotal {
		next.Phase = models.PhaseFinal
		next.WinnerID = leaderOf(next)
		next.RematchRequests = map[string]bool{}
	}
	return next
}

// leaderOf compares final scores; "" means a tie.
func leaderOf(s models.MatchState) string {
	ids := s.PlayerIDs()
	if len(ids) != 2 {
		return ""
	}
	a, b := ids[0], ids[1]
	switch {
	case s.Scores[a] > s.Scores[b]:
		return a
	case s.Scores[b] > s.Scores[a]:
		return b
	default:
		return ""
	}
}

// AdvanceRound moves a displayed result on to the next question. The turn
// alternates by round parity between the two players in id order, pass and
// repassa state resets, and the round clock restarts.
func (e *Engine) AdvanceRound(s models.MatchState, now time.Time) (models.MatchState, error) {
	if s.Phase != models.PhaseResult {
		return s, ErrWrongPhase
	}

	next := s.Clone()
	next.RoundIndex++
	if next.RoundIndex >= len(next.QuestionIDs) {
		return s, fmt.Errorf("round %d exceeds question order of %d", next.RoundIndex, len(next.QuestionIDs))
	}
	next.QuestionID = next.QuestionIDs[next.RoundIndex]
	next.TurnUserID = next.PlayerIDs()[next.RoundIndex%2]
	next.PassedByUserID = ""
	next.RepassaAvailable = false
	next.Result = nil
	next.QuestionStartMs = now.UnixMilli()
	next.Phase = models.PhaseQuestion
	return next, nil
}

// ApplyRematch records a rematch request. When both players have asked, the
// match restarts in place: fresh seeded question order, scores zeroed, a new
// game generation, and the turn back with the lexicographically first player.
func (e *Engine) ApplyRematch(s models.MatchState, userID string, now time.Time) (models.MatchState, error) {
	if s.Phase != models.PhaseFinal {
		return s, ErrWrongPhase
	}
	if !s.HasPlayer(userID) {
		return s, ErrUnknownPlayer
	}

	next := s.Clone()
	next.RematchRequests[userID] = true

	for _, id := range next.PlayerIDs() {
		if !next.RematchRequests[id] {
			return next, nil
		}
	}

	seed := fmt.Sprintf("%s|rematch|%d", next.MatchID, now.UnixMilli())
	ids := e.catalog.ShuffledIDs(seed, next.RoundTotal)
	if len(ids) == 0 {
		return s, fmt.Errorf("no questions available for rematch of %s", next.MatchID)
	}
	if next.RoundTotal > len(ids) {
		next.RoundTotal = len(ids)
	}

	next.GameID++
	for id := range next.Scores {
		next.Scores[id] = 0
	}
	next.QuestionIDs = ids
	next.QuestionID = ids[0]
	next.RoundIndex = 0
	next.TurnUserID = next.PlayerIDs()[0]
	next.PassedByUserID = ""
	next.RepassaAvailable = false
	next.Result = nil
	next.WinnerID = ""
	next.RematchRequests = map[string]bool{}
	next.QuestionStartMs = now.UnixMilli()
	next.Phase = models.PhaseQuestion
	return next, nil
}

// TimeRemaining reports how long the current question stays open.
func (e *Engine) TimeRemaining(s models.MatchState, now time.Time) time.Duration {
	if s.Phase != models.PhaseQuestion {
		return 0
	}
	deadline := s.QuestionStartMs + int64(e.roundSeconds)*1000
	remaining := time.Duration(deadline-now.UnixMilli()) * time.Millisecond
	if remaining < 0 {
		return 0
	}
	return remaining
}
