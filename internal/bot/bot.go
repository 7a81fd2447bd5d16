// Package bot drives the single-player fallback opponent. The bot speaks the
// exact same protocol as a human peer: it never touches match state directly,
// it only emits pass/answer actions that the host validates like any other
// inbound message. The host is always the human in a bot match.
package bot

import (
	"fmt"
	"time"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/duel"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/seeded"
)

// UserID is the reserved participant id the bot occupies in a match.
const UserID = "bot:passa-repassa"

// Name is how the bot introduces itself to the human player.
const Name = "Robô do Passa ou Repassa"

const (
	// baseRate is the bot's correctness probability before category skill
	// and time pressure adjust it.
	baseRate = 0.58

	skillMin = -0.35
	skillMax = 0.45

	skillGainOnCorrect = 0.03
	skillLossOnWrong   = 0.04

	// Under timePressureAt of remaining clock the bot answers worse.
	timePressureAt      = 15 * time.Second
	timePressurePenalty = 0.12

	// The bot only considers passing while it still has most of the clock
	// and a weak read on the question.
	passSkillThreshold = 0.45
	passChance         = 0.5
)

// Decision is what the bot chose to do on its turn.
type Decision struct {
	Pass   bool
	Answer string
}

// Strategy evaluates the bot's turns against its learned per-category skill.
type Strategy struct {
	model models.BotModel
}

// NewStrategy wraps a loaded skill model; a zero model starts neutral.
func NewStrategy(model models.BotModel) *Strategy {
	if model.ByCategory == nil {
		model.ByCategory = make(map[string]float64)
	}
	return &Strategy{model: model}
}

// Model returns the current skill model for persistence.
func (s *Strategy) Model() models.BotModel {
	return s.model
}

// turnSeed keys the bot's randomness to the turn's identity, so a given
// match/game/round/turn tuple always replays the same way.
func turnSeed(state models.MatchState) string {
	return fmt.Sprintf("%s|%d|%d|%s", state.MatchID, state.GameID, state.RoundIndex, state.TurnUserID)
}

// correctness estimates how likely the bot is to get the current question
// right, clamped away from certainty in both directions.
func (s *Strategy) correctness(q models.Question, remaining time.Duration) float64 {
	p := baseRate + s.model.ByCategory[q.Category]
	if remaining < timePressureAt {
		p -= timePressurePenalty
	}
	if p < 0.05 {
		p = 0.05
	}
	if p > 0.95 {
		p = 0.95
	}
	return p
}

// Decide picks the bot's move for its current turn: occasionally pass a
// question it reads as hard (only while no pass happened yet and plenty of
// clock remains), otherwise answer one of the options weighted by the
// estimated correctness.
func (s *Strategy) Decide(state models.MatchState, q models.Question, options []string, remaining time.Duration, roundSeconds int) Decision {
	rng := seeded.New(turnSeed(state))
	p := s.correctness(q, remaining)

	canPass := state.PassedByUserID == "" &&
		p < passSkillThreshold &&
		remaining > time.Duration(roundSeconds)*time.Second/2
	if canPass && rng.Float64() < passChance {
		return Decision{Pass: true}
	}

	correct := q.Canonical()
	if len(options) == 0 {
		return Decision{Answer: correct}
	}

	if rng.Float64() < p {
		for _, o := range options {
			if duel.Normalize(o) == duel.Normalize(correct) {
				return Decision{Answer: o}
			}
		}
		return Decision{Answer: correct}
	}

	wrong := make([]string, 0, len(options))
	for _, o := range options {
		if duel.Normalize(o) != duel.Normalize(correct) {
			wrong = append(wrong, o)
		}
	}
	if len(wrong) == 0 {
		return Decision{Answer: correct}
	}
	return Decision{Answer: wrong[rng.Intn(len(wrong))]}
}

// Learn nudges the per-category skill after a round the bot answered.
func (s *Strategy) Learn(category string, correct bool) {
	skill := s.model.ByCategory[category]
	if correct {
		skill += skillGainOnCorrect
	} else {
		skill -= skillLossOnWrong
	}
	if skill < skillMin {
		skill = skillMin
	}
	if skill > skillMax {
		skill = skillMax
	}
	s.model.ByCategory[category] = skill
}

// ThinkDelay is how long the bot pretends to read the question before
// acting, seeded like everything else on the turn identity.
func ThinkDelay(state models.MatchState) time.Duration {
	rng := seeded.New(turnSeed(state) + "|think")
	return 1500*time.Millisecond + time.Duration(rng.Float64()*2500)*time.Millisecond
}
