// Package transport abstracts the broadcast channel the duel protocol runs
// over. Two implementations exist behind one interface: a hosted NATS relay
// and a same-process local bus used for bot matches and as a degradation
// target when the relay is unreachable.
//
// Both implementations deliver a sender's broadcasts back to the sender, so
// host and peer code paths stay symmetric: the host handles its own actions
// the same way it handles the opponent's. Presence has no native protocol on
// either transport; it is simulated with periodic self-announcements and
// TTL-based expiry.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

// Handler receives one broadcast event on a subscribed channel.
type Handler func(event string, payload json.RawMessage)

// PresenceHandler receives the full presence snapshot whenever it changes.
type PresenceHandler func(rows []models.PresenceRow)

// EventPresence is the reserved event name presence rows ride on.
const EventPresence = "presence"

// Channel is one named broadcast scope ("lobby" or "match:<id>").
type Channel interface {
	Subscribe(ctx context.Context) error
	Unsubscribe() error
	Track(row models.PresenceRow) error
	Broadcast(event string, payload any) error
	OnBroadcast(event string, h Handler)
	OnPresenceSync(h PresenceHandler)
}

// Transport hands out channels and owns the underlying connection.
type Transport interface {
	Channel(name string) Channel
	Close()
}

// Connect returns the hosted relay transport for url, degrading to the local
// in-process transport when the relay is unconfigured or unreachable. The
// degradation is logged once and never fails the match flow.
func Connect(url string, clock clockwork.Clock, presenceTTL time.Duration) Transport {
	if url == "" {
		return NewLocalBus(clock, presenceTTL)
	}
	client, err := DialRelay(url, clock, presenceTTL)
	if err != nil {
		log.Warn().Err(err).Str("url", url).
			Msg("realtime relay unavailable, falling back to local broadcast transport")
		return NewLocalBus(clock, presenceTTL)
	}
	return client
}

// envelope is the wire frame every broadcast travels in. Channel lets a
// single physical medium carry lobby and match traffic apart.
type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newEnvelope(channel, event string, payload any) (envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return envelope{Channel: channel, Event: event, Payload: raw}, nil
}

// handlerSet fans one decoded envelope out to the registered handlers.
type handlerSet struct {
	mu      sync.RWMutex
	byEvent map[string][]Handler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{byEvent: make(map[string][]Handler)}
}

func (h *handlerSet) add(event string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byEvent[event] = append(h.byEvent[event], fn)
}

func (h *handlerSet) dispatch(event string, payload json.RawMessage) {
	h.mu.RLock()
	handlers := append([]Handler(nil), h.byEvent[event]...)
	h.mu.RUnlock()
	for _, fn := range handlers {
		fn(event, payload)
	}
}
