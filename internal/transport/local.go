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

// localQueueSize bounds the per-channel delivery queue. The duel protocol is
// a handful of messages per second, so hitting this means a stuck consumer.
const localQueueSize = 256

// LocalBus is the same-process broadcast transport. Channels with the same
// name on the same bus see each other's broadcasts, including their own.
// Bot matches always run on a local bus, and lobby/match traffic degrades
// here when the hosted relay is unreachable.
type LocalBus struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu   sync.Mutex
	subs map[string]map[*localChannel]struct{}
}

// NewLocalBus creates an empty bus. presenceTTL governs how long a presence
// row survives without a heartbeat.
func NewLocalBus(clock clockwork.Clock, presenceTTL time.Duration) *LocalBus {
	return &LocalBus{
		clock: clock,
		ttl:   presenceTTL,
		subs:  make(map[string]map[*localChannel]struct{}),
	}
}

// Channel returns a new channel handle scoped to name.
func (b *LocalBus) Channel(name string) Channel {
	return &localChannel{
		bus:      b,
		name:     name,
		handlers: newHandlerSet(),
		presence: newPresenceTracker(b.clock, b.ttl),
	}
}

// Close implements Transport; a local bus holds no external resources.
func (b *LocalBus) Close() {}

func (b *LocalBus) attach(ch *localChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[ch.name] == nil {
		b.subs[ch.name] = make(map[*localChannel]struct{})
	}
	b.subs[ch.name][ch] = struct{}{}
}

func (b *LocalBus) detach(ch *localChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[ch.name], ch)
	if len(b.subs[ch.name]) == 0 {
		delete(b.subs, ch.name)
	}
}

func (b *LocalBus) publish(env envelope) {
	b.mu.Lock()
	targets := make([]*localChannel, 0, len(b.subs[env.Channel]))
	for ch := range b.subs[env.Channel] {
		targets = append(targets, ch)
	}
	b.mu.Unlock()
	for _, ch := range targets {
		ch.enqueue(env)
	}
}

type localChannel struct {
	bus      *LocalBus
	name     string
	handlers *handlerSet
	presence *presenceTracker

	mu         sync.Mutex
	subscribed bool
	queue      chan envelope
	stop       chan struct{}
}

func (c *localChannel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return fmt.Errorf("channel %s already subscribed", c.name)
	}
	c.queue = make(chan envelope, localQueueSize)
	c.stop = make(chan struct{})
	c.subscribed = true
	c.bus.attach(c)
	go c.run(ctx, c.queue, c.stop)
	return nil
}

func (c *localChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return nil
	}
	c.subscribed = false
	c.bus.detach(c)
	close(c.stop)
	return nil
}

// run serializes delivery and presence expiry for this channel. Messages are
// dispatched one at a time, matching the single-threaded event-handler model
// the rest of the protocol assumes.
func (c *localChannel) run(ctx context.Context, queue chan envelope, stop chan struct{}) {
	sweep := c.bus.clock.NewTicker(sweepInterval(c.bus.ttl))
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case env := <-queue:
			c.deliver(env)
		case <-sweep.Chan():
			c.presence.sweep()
		}
	}
}

func (c *localChannel) deliver(env envelope) {
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

func (c *localChannel) enqueue(env envelope) {
	c.mu.Lock()
	queue, subscribed := c.queue, c.subscribed
	c.mu.Unlock()
	if !subscribed {
		return
	}
	select {
	case queue <- env:
	default:
		log.Warn().Str("channel", c.name).Str("event", env.Event).
			Msg("local channel queue full, dropping broadcast")
	}
}

func (c *localChannel) Track(row models.PresenceRow) error {
	if row.LastSeenMs == 0 {
		row.LastSeenMs = c.bus.clock.Now().UnixMilli()
	}
	return c.Broadcast(EventPresence, row)
}

func (c *localChannel) Broadcast(event string, payload any) error {
	env, err := newEnvelope(c.name, event, payload)
	if err != nil {
		return err
	}
	c.bus.publish(env)
	return nil
}

func (c *localChannel) OnBroadcast(event string, h Handler) {
	c.handlers.add(event, h)
}

func (c *localChannel) OnPresenceSync(h PresenceHandler) {
	c.presence.onSync(h)
}

// sweepInterval keeps expiry responsive without busy-ticking tiny TTLs.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < 5*time.Millisecond {
		interval = 5 * time.Millisecond
	}
	return interval
}
