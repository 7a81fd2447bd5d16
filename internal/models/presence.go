package models

// PresenceStatus defines what a lobby member is currently doing.
type PresenceStatus string

const (
	PresenceQueue   PresenceStatus = "queue"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceRow is the ephemeral lobby advertisement for a single user.
// Rows are owned by whoever broadcast them last and expire after a TTL
// with no heartbeat.
type PresenceRow struct {
	UserID     string         `json:"userId"`
	Name       string         `json:"name"`
	Status     PresenceStatus `json:"status"`
	LastSeenMs int64          `json:"lastSeenMs"`
}
