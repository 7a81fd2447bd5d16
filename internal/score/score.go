// Package score turns a finished match into XP and pushes it to the external
// gamification collaborators. Reporting is idempotent per match and
// best-effort: sink failures are logged and never block the final screen.
package score

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/rank"
)

const (
	xpPerPoint = 35
	xpWinBonus = 80
)

// XP computes the experience awarded for a finished match.
func XP(myScore int, won bool) int {
	xp := myScore * xpPerPoint
	if won {
		xp += xpWinBonus
	}
	return xp
}

// StatSink receives match/win counters (the external stat-update API).
type StatSink interface {
	ReportMatch(ctx context.Context, userID string, won bool) error
}

// ScoreSink receives earned XP (the external score-persistence API).
type ScoreSink interface {
	PersistScore(ctx context.Context, userID string, xp int) error
}

// Reporter wires the sinks and the local rank cache together.
type Reporter struct {
	stats  StatSink
	scores ScoreSink
	ranks  *rank.Store
}

// NewReporter builds a reporter; either sink may be nil when the collaborator
// is not configured.
func NewReporter(stats StatSink, scores ScoreSink, ranks *rank.Store) *Reporter {
	return &Reporter{stats: stats, scores: scores, ranks: ranks}
}

// ReportFinal processes a final-phase state on behalf of selfID: updates the
// local leaderboard for both participants, computes XP, and notifies the
// external sinks. Called more than once for the same match it does nothing.
func (r *Reporter) ReportFinal(ctx context.Context, state models.MatchState, selfID string) {
	if state.Phase != models.PhaseFinal || !state.HasPlayer(selfID) {
		return
	}
	if r.ranks.Processed(state.MatchID) {
		return
	}
	r.ranks.MarkProcessed(state.MatchID)

	won := state.WinnerID == selfID
	for id, player := range state.Players {
		r.ranks.Record(id, player.Name, state.WinnerID == id)
	}
	if err := r.ranks.Save(); err != nil {
		log.Error().Err(err).Str("match_id", state.MatchID).Msg("failed to persist rank cache")
	}

	xp := XP(state.Scores[selfID], won)
	log.Info().
		Str("match_id", state.MatchID).
		Str("user_id", selfID).
		Int("xp", xp).
		Bool("won", won).
		Msg("reporting final match score")

	if r.stats != nil {
		if err := r.stats.ReportMatch(ctx, selfID, won); err != nil {
			log.Error().Err(err).Str("match_id", state.MatchID).Msg("stat sink rejected match report")
		}
	}
	if r.scores != nil {
		if err := r.scores.PersistScore(ctx, selfID, xp); err != nil {
			log.Error().Err(err).Str("match_id", state.MatchID).Msg("score sink rejected xp report")
		}
	}
}
