// Package replication implements the revision-stamped acceptance rule that
// keeps both match participants converged over a transport that may drop,
// duplicate, or reorder broadcasts. Revisions give last-writer-wins semantics
// without clock synchronization; the staleness watchdog recovers from missed
// broadcasts without per-message acknowledgements.
package replication

import (
	"time"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

// Stage is where a client currently is in the multiplayer flow.
type Stage string

const (
	StageQueue   Stage = "queue"
	StageMatched Stage = "matched"
	StagePlaying Stage = "playing"
	StageFinal   Stage = "final"
)

// StalenessWindowMs is how long a playing client tolerates silence before it
// asks the host for a resync.
const StalenessWindowMs = 4500

// ShouldAcceptIncomingState decides whether incoming supersedes current.
// Equal revisions are accepted so duplicate delivery stays a no-op, and a
// state for a foreign match never merges into the current one.
func ShouldAcceptIncomingState(current, incoming *models.MatchState) bool {
	if incoming == nil || incoming.MatchID == "" {
		return false
	}
	if current == nil {
		return true
	}
	if incoming.MatchID != current.MatchID {
		return false
	}
	return incoming.Rev >= current.Rev
}

// NextStateWithRev stamps next as the successor revision of prev. Only the
// host calls this; peers never mint revisions.
func NextStateWithRev(prev, next models.MatchState, now time.Time) models.MatchState {
	next.Rev = prev.Rev + 1
	next.UpdatedAtMs = now.UnixMilli()
	return next
}

// ShouldRequestResync reports whether a client that last accepted a state at
// lastStateAtMs (0 when none was ever received) should ask for a resync.
// There is nothing to resync before the match is actually playing.
func ShouldRequestResync(stage Stage, nowMs, lastStateAtMs int64) bool {
	if stage != StagePlaying && stage != StageFinal {
		return false
	}
	if lastStateAtMs == 0 {
		return true
	}
	return nowMs-lastStateAtMs > StalenessWindowMs
}

// ResyncResponse returns the state the host should rebroadcast in reply to a
// sync-request, or nil when the request is not addressed to this match or the
// host has nothing yet.
func ResyncResponse(event, requestedMatchID string, state *models.MatchState) *models.MatchState {
	if event != "sync-request" || state == nil {
		return nil
	}
	if requestedMatchID == "" || requestedMatchID != state.MatchID {
		return nil
	}
	return state
}
