package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/bot"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/config"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/duel"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/latency"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/questions"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/replication"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/score"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/transport"
)

// lobbyChannel is the shared discovery channel every player joins.
const lobbyChannel = "lobby:duelo"

// ErrMissingIdentity is returned by New when no user id is available.
// This is the one condition the sync layer treats as fatal.
var ErrMissingIdentity = errors.New("session: user id is required")

// Identity names the local player.
type Identity struct {
	UserID string
	Name   string
}

// EventType classifies events delivered on Session.Events.
type EventType string

const (
	// EventStageChanged fires whenever the session moves between
	// queue, matched, playing and final.
	EventStageChanged EventType = "stage-changed"
	// EventStateUpdated fires whenever a newer match state is adopted.
	EventStateUpdated EventType = "state-updated"
	// EventBotOffer fires once per queue stay after the configured wait
	// with no human opponent found.
	EventBotOffer EventType = "bot-offer"
	// EventLatency fires with a fresh smoothed round-trip estimate.
	EventLatency EventType = "latency"
)

// Event is what the session reports upward to its UI.
type Event struct {
	Type      EventType
	Stage     replication.Stage
	State     *models.MatchState
	Opponent  *models.PlayerRef
	LatencyMs int
}

// Deps carries the collaborators a Session needs. Transport, Catalog and
// Clock are required; Bot, BotStore and Reporter may be nil.
type Deps struct {
	Transport transport.Transport
	Catalog   *questions.Catalog
	Bot       *bot.Strategy
	BotStore  *bot.ModelStore
	Reporter  *score.Reporter
	Clock     clockwork.Clock
}

// Session drives one player's matchmaking and match lifecycle. All mutable
// state is owned by the run loop goroutine; the exported methods only post
// messages into its inbox.
type Session struct {
	id     Identity
	cfg    config.Config
	deps   Deps
	engine *duel.Engine
	clock  clockwork.Clock

	inbox  chan sessionMsg
	events chan Event

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// Everything below is touched only by the run loop.
	stage          replication.Stage
	lobby          transport.Channel
	matchCh        transport.Channel
	matchTransport transport.Transport
	matchID        string
	state          *models.MatchState
	isHost         bool
	botMatch       bool
	opponent       models.PlayerRef
	guestSeen      bool
	pendingInvite  *matchInvitePayload

	rtt           *latency.Estimator
	pendingPingID string

	lastStateAtMs   int64
	queuedSinceMs   int64
	matchedAtMs     int64
	lastHeartbeatMs int64
	lastPingMs      int64
	lastResyncMs    int64
	lastInviteMs    int64
	advanceDueMs    int64
	advanceGameID   int
	botActDueMs     int64
	botOffered      bool
	lastLearnKey    string
}

type sessionMsg interface{ isSessionMsg() }

type broadcastMsg struct {
	event   string
	payload json.RawMessage
}
type presenceMsg struct{ rows []models.PresenceRow }
type tickMsg struct{}
type answerMsg struct{ text string }
type actionMsg struct{ kind string }
type startBotMsg struct{}
type leaveMatchMsg struct{}

func (broadcastMsg) isSessionMsg()  {}
func (presenceMsg) isSessionMsg()   {}
func (tickMsg) isSessionMsg()       {}
func (answerMsg) isSessionMsg()     {}
func (actionMsg) isSessionMsg()     {}
func (startBotMsg) isSessionMsg()   {}
func (leaveMatchMsg) isSessionMsg() {}

// New builds a Session for the given identity. It does not touch the
// network until Start is called.
func New(id Identity, cfg config.Config, deps Deps) (*Session, error) {
	if id.UserID == "" {
		return nil, ErrMissingIdentity
	}
	if id.Name == "" {
		id.Name = id.UserID
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Session{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		engine: duel.NewEngine(deps.Catalog, cfg.RoundSeconds),
		clock:  deps.Clock,
		inbox:  make(chan sessionMsg, 256),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		stage:  replication.StageQueue,
		rtt:    latency.NewEstimator(latency.DefaultAlpha),
	}, nil
}

// Start joins the lobby and begins matchmaking. The returned error covers
// lobby subscription only; everything later is reported via Events.
func (s *Session) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.lobby = s.deps.Transport.Channel(lobbyChannel)
	s.lobby.OnBroadcast(eventMatchInvite, func(_ string, payload json.RawMessage) {
		s.post(broadcastMsg{event: eventMatchInvite, payload: payload})
	})
	s.lobby.OnPresenceSync(func(rows []models.PresenceRow) {
		s.post(presenceMsg{rows: rows})
	})
	if err := s.lobby.Subscribe(ctx); err != nil {
		return err
	}
	s.lobby.Track(models.PresenceRow{
		UserID: s.id.UserID,
		Name:   s.id.Name,
		Status: models.PresenceQueue,
	})

	now := s.clock.Now().UnixMilli()
	s.queuedSinceMs = now
	s.lastHeartbeatMs = now

	go s.tickLoop(ctx)
	go s.run(ctx)

	log.Info().Str("userId", s.id.UserID).Msg("session started, waiting in queue")
	return nil
}

// Events returns the channel the session reports on. It is closed when the
// session shuts down.
func (s *Session) Events() <-chan Event { return s.events }

// SubmitAnswer sends the local player's answer text for the current question.
func (s *Session) SubmitAnswer(text string) { s.post(answerMsg{text: text}) }

// Pass hands the current question to the opponent.
func (s *Session) Pass() { s.post(actionMsg{kind: actionPassa}) }

// Repassa bounces a passed question back to whoever passed it.
func (s *Session) Repassa() { s.post(actionMsg{kind: actionRepassa}) }

// RequestRematch registers the local player's wish to play again.
func (s *Session) RequestRematch() { s.post(actionMsg{kind: actionRematch}) }

// StartBotMatch abandons the queue and starts a local match against the bot.
func (s *Session) StartBotMatch() { s.post(startBotMsg{}) }

// LeaveMatch abandons the current match and rejoins the queue.
func (s *Session) LeaveMatch() { s.post(leaveMatchMsg{}) }

// Close shuts the session down and closes the events channel.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

func (s *Session) post(m sessionMsg) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

func (s *Session) tickLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.Tick())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			select {
			case s.inbox <- tickMsg{}:
			default:
				// Loop is busy, skip the tick rather than queue a backlog.
			}
		}
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Warn().Str("event", string(ev.Type)).Msg("events channel full, dropping")
	}
}
