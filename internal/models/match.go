package models

import "sort"

// Phase defines where a match currently is in its round cycle.
type Phase string

const (
	PhaseQuestion Phase = "question"
	PhaseResult   Phase = "result"
	PhaseFinal    Phase = "final"
)

// ResultType classifies how a round was resolved.
type ResultType string

const (
	ResultCorrect ResultType = "correct"
	ResultWrong   ResultType = "wrong"
	ResultTimeout ResultType = "timeout"
)

// PlayerRef identifies one of the two match participants.
type PlayerRef struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// RoundResult describes how the last question was decided.
type RoundResult struct {
	Type          ResultType `json:"type"`
	WinnerID      string     `json:"winnerId"`
	SubmitterID   string     `json:"submitterId,omitempty"`
	SubmittedText string     `json:"submittedText,omitempty"`
	CorrectAnswer string     `json:"correctAnswer"`
	QuestionID    string     `json:"questionId"`
}

// MatchState is the single source of truth for a match. It is versioned by
// Rev: the host is the only writer, everyone else applies a broadcast state
// iff its Rev is not older than what they already hold.
//
// WinnerID is only meaningful at PhaseFinal and stays empty on a tie.
type MatchState struct {
	MatchID          string               `json:"matchId"`
	GameID           int                  `json:"gameId"`
	Rev              int64                `json:"rev"`
	UpdatedAtMs      int64                `json:"updatedAtMs"`
	Phase            Phase                `json:"phase"`
	RoundIndex       int                  `json:"roundIndex"`
	RoundTotal       int                  `json:"roundTotal"`
	Players          map[string]PlayerRef `json:"players"`
	Scores           map[string]int       `json:"scores"`
	QuestionIDs      []string             `json:"questionIds"`
	QuestionID       string               `json:"questionId"`
	TurnUserID       string               `json:"turnUserId"`
	PassedByUserID   string               `json:"passedByUserId,omitempty"`
	RepassaAvailable bool                 `json:"repassaAvailable"`
	QuestionStartMs  int64                `json:"questionStartMs"`
	Result           *RoundResult         `json:"result,omitempty"`
	WinnerID         string               `json:"winnerId,omitempty"`
	RematchRequests  map[string]bool      `json:"rematchRequests,omitempty"`
}

// PlayerIDs returns both participant ids in lexicographic order. The first
// entry is the fixed "player A" used for turn alternation by round parity.
func (s MatchState) PlayerIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OpponentOf returns the other participant's id, or "" if userID is not in
// the match.
func (s MatchState) OpponentOf(userID string) string {
	if _, ok := s.Players[userID]; !ok {
		return ""
	}
	for id := range s.Players {
		if id != userID {
			return id
		}
	}
	return ""
}

// HasPlayer reports whether userID participates in the match.
func (s MatchState) HasPlayer(userID string) bool {
	_, ok := s.Players[userID]
	return ok
}

// Clone returns a deep copy so the host can mutate the next revision without
// aliasing maps shared with handlers that still hold the previous one.
func (s MatchState) Clone() MatchState {
	next := s
	next.Players = make(map[string]PlayerRef, len(s.Players))
	for id, p := range s.Players {
		next.Players[id] = p
	}
	next.Scores = make(map[string]int, len(s.Scores))
	for id, score := range s.Scores {
		next.Scores[id] = score
	}
	next.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	if s.Result != nil {
		r := *s.Result
		next.Result = &r
	}
	next.RematchRequests = make(map[string]bool, len(s.RematchRequests))
	for id, v := range s.RematchRequests {
		next.RematchRequests[id] = v
	}
	return next
}
