package session

// Broadcast event names on the lobby and match channels.
const (
	eventState       = "state"
	eventAction      = "action"
	eventAnswer      = "answer"
	eventSyncRequest = "sync-request"
	eventPing        = "ping"
	eventPong        = "pong"
	eventMatchInvite = "match-invite"
)

// Action types carried by eventAction payloads.
const (
	actionPassa   = "passa"
	actionRepassa = "repassa"
	actionRematch = "rematch"
)

// actionPayload asks the host to run one state transition. The host
// re-validates everything; an invalid or out-of-turn action is silently
// ignored.
type actionPayload struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// answerPayload submits free text for the current question.
type answerPayload struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// syncRequestPayload asks the host to re-broadcast its authoritative state.
type syncRequestPayload struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

// matchInvitePayload tells the guest which match channel the host opened.
type matchInvitePayload struct {
	MatchID   string `json:"matchId"`
	HostID    string `json:"hostId"`
	HostName  string `json:"hostName"`
	GuestID   string `json:"guestId"`
	GuestName string `json:"guestName"`
}

// pingPayload carries the sender's send timestamp; the peer echoes it back
// in a pongPayload so the sender can sample the round trip.
type pingPayload struct {
	ID         string `json:"id"`
	FromUserID string `json:"fromUserId"`
	SentAtMs   int64  `json:"sentAtMs"`
}

type pongPayload struct {
	ID       string `json:"id"`
	ToUserID string `json:"toUserId"`
	SentAtMs int64  `json:"sentAtMs"`
}
