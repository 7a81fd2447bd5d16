package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

// subjectPrefix namespaces every duel subject on the shared relay.
const subjectPrefix = "ecoplay.duelo"

// RelayClient is the hosted pub/sub transport over a NATS relay. Core NATS
// delivery is best-effort, which is exactly what the replication layer is
// built to tolerate: missed broadcasts are recovered through revision
// checks and the staleness-triggered resync, not transport guarantees.
type RelayClient struct {
	nc    *nats.Conn
	clock clockwork.Clock
	ttl   time.Duration
}

// DialRelay connects to the relay at url.
func DialRelay(url string, clock clockwork.Clock, presenceTTL time.Duration) (*RelayClient, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("relay disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("relay reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("relay error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}
	return &RelayClient{nc: nc, clock: clock, ttl: presenceTTL}, nil
}

// Channel returns a channel handle backed by one relay subject.
func (c *RelayClient) Channel(name string) Channel {
	return &relayChannel{
		client:   c,
		name:     name,
		subject:  subjectFor(name),
		handlers: newHandlerSet(),
		presence: newPresenceTracker(c.clock, c.ttl),
	}
}

// Close drops the relay connection and every subscription on it.
func (c *RelayClient) Close() {
	c.nc.Close()
}

// subjectFor maps a channel name like "match:ab-12" onto a relay subject
// token, replacing anything NATS subjects cannot carry.
func subjectFor(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return subjectPrefix + "." + mapped
}

type relayChannel struct {
	client   *RelayClient
	name     string
	subject  string
	handlers *handlerSet
	presence *presenceTracker

	mu   sync.Mutex
	sub  *nats.Subscription
	stop chan struct{}
}

func (c *relayChannel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return fmt.Errorf("channel %s already subscribed", c.name)
	}
	// Subscription callbacks arrive serialized per subscription, so deliver
	// inline; only presence expiry needs its own ticker.
	sub, err := c.client.nc.Subscribe(c.subject, func(m *nats.Msg) {
		c.deliver(m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.sub = sub
	c.stop = make(chan struct{})
	go c.sweepLoop(ctx, c.stop)
	return nil
}

func (c *relayChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Unsubscribe()
	c.sub = nil
	close(c.stop)
	if err != nil {
		return fmt.Errorf("unsubscribe %s: %w", c.subject, err)
	}
	return nil
}

func (c *relayChannel) sweepLoop(ctx context.Context, stop chan struct{}) {
	sweep := c.client.clock.NewTicker(sweepInterval(c.client.ttl))
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-sweep.Chan():
			c.presence.sweep()
		}
	}
}

func (c *relayChannel) deliver(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("channel", c.name).Msg("dropping malformed relay frame")
		return
	}
	if env.Channel != "" && env.Channel != c.name {
		return
	}
	if env.Event == EventPresence {
		var row models.PresenceRow
		if err := json.Unmarshal(env.Payload, &row); err != nil {
			log.Debug().Err(err).Str("channel", c.name).Msg("dropping malformed presence row")
			return
		}
		c.presence.upsert(row)
		return
	}
	c.handlers.dispatch(env.Event, env.Payload)
}

func (c *relayChannel) Track(row models.PresenceRow) error {
	if row.LastSeenMs == 0 {
		row.LastSeenMs = c.client.clock.Now().UnixMilli()
	}
	return c.Broadcast(EventPresence, row)
}

func (c *relayChannel) Broadcast(event string, payload any) error {
	env, err := newEnvelope(c.name, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	if err := c.client.nc.Publish(c.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (c *relayChannel) OnBroadcast(event string, h Handler) {
	c.handlers.add(event, h)
}

func (c *relayChannel) OnPresenceSync(h PresenceHandler) {
	c.presence.onSync(h)
}
