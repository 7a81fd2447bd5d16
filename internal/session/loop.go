package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/bot"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/pairing"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/replication"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/transport"
)

// resyncCooldownMs rate-limits sync-request broadcasts so a long host
// silence does not turn into a request storm.
const resyncCooldownMs = 1500

// inviteRetryMs is how often the host re-broadcasts the match invite until
// it has heard anything from the guest.
const inviteRetryMs = 1500

// matchedTimeoutMs is how long a guest waits for the host's invite before
// giving up and rejoining the queue.
const matchedTimeoutMs = 10000

func (s *Session) run(ctx context.Context) {
	defer func() {
		s.shutdown()
		close(s.done)
		close(s.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.inbox:
			switch msg := m.(type) {
			case presenceMsg:
				s.handlePresence(msg.rows)
			case broadcastMsg:
				s.handleBroadcast(msg.event, msg.payload)
			case tickMsg:
				s.onTick()
			case answerMsg:
				s.sendAnswer(s.id.UserID, msg.text)
			case actionMsg:
				s.sendAction(s.id.UserID, msg.kind)
			case startBotMsg:
				s.startBotMatch()
			case leaveMatchMsg:
				s.leaveMatch()
			}
		}
	}
}

func (s *Session) nowMs() int64 { return s.clock.Now().UnixMilli() }

func (s *Session) setStage(stage replication.Stage) {
	if s.stage == stage {
		return
	}
	s.stage = stage
	ev := Event{Type: EventStageChanged, Stage: stage}
	if stage != replication.StageQueue {
		opp := s.opponent
		ev.Opponent = &opp
	}
	s.emit(ev)
}

func (s *Session) trackPresence(status models.PresenceStatus) {
	if s.lobby == nil {
		return
	}
	err := s.lobby.Track(models.PresenceRow{
		UserID: s.id.UserID,
		Name:   s.id.Name,
		Status: status,
	})
	if err != nil {
		log.Warn().Err(err).Msg("presence track failed")
	}
	s.lastHeartbeatMs = s.nowMs()
}

// handlePresence runs the deterministic pairing over every fresh lobby
// snapshot while we are still queued.
func (s *Session) handlePresence(rows []models.PresenceRow) {
	if s.stage != replication.StageQueue {
		return
	}
	peers := make([]pairing.Peer, 0, len(rows))
	for _, row := range rows {
		if row.UserID == s.id.UserID || row.Status != models.PresenceQueue {
			continue
		}
		peers = append(peers, pairing.Peer{UserID: row.UserID, Name: row.Name})
	}
	decision := pairing.SelectOpponent(s.id.UserID, s.id.Name, peers)
	if decision == nil {
		return
	}

	s.opponent = models.PlayerRef{UserID: decision.OpponentID, Name: decision.OpponentName}
	s.isHost = decision.IsHost
	s.matchedAtMs = s.nowMs()
	s.trackPresence(models.PresenceBusy)
	s.setStage(replication.StageMatched)

	log.Info().
		Str("opponent", decision.OpponentID).
		Bool("host", decision.IsHost).
		Msg("paired with opponent")

	if s.isHost {
		s.hostNewMatch(s.deps.Transport, s.opponent, false)
	}
	// The guest waits for the host's match-invite on the lobby channel.
}

// hostNewMatch opens a fresh match channel, seeds the initial state and
// publishes it. For bot matches the channel lives on a private local bus.
func (s *Session) hostNewMatch(tr transport.Transport, opponent models.PlayerRef, botMatch bool) {
	matchID := s.newMatchID(opponent.UserID)
	self := models.PlayerRef{UserID: s.id.UserID, Name: s.id.Name}

	initial, err := s.engine.NewMatchState(matchID, self, opponent, s.cfg.RoundTotal, s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("could not seed match state")
		s.leaveMatch()
		return
	}

	s.matchTransport = tr
	s.botMatch = botMatch
	s.guestSeen = botMatch
	if err := s.openMatchChannel(matchID); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("match channel subscribe failed")
		s.leaveMatch()
		return
	}

	if !botMatch {
		s.pendingInvite = &matchInvitePayload{
			MatchID:   matchID,
			HostID:    s.id.UserID,
			HostName:  s.id.Name,
			GuestID:   opponent.UserID,
			GuestName: opponent.Name,
		}
		s.sendInvite()
	}
	s.publishState(initial)
}

func (s *Session) sendInvite() {
	if s.pendingInvite == nil || s.lobby == nil {
		return
	}
	if err := s.lobby.Broadcast(eventMatchInvite, s.pendingInvite); err != nil {
		log.Warn().Err(err).Msg("match invite broadcast failed")
	}
	s.lastInviteMs = s.nowMs()
}

func (s *Session) newMatchID(opponentID string) string {
	ids := []string{s.id.UserID, opponentID}
	sort.Strings(ids)
	return fmt.Sprintf("%s~%s~%d~%s", ids[0], ids[1], s.nowMs(), uuid.NewString()[:8])
}

// openMatchChannel subscribes to match:<id> on s.matchTransport and wires
// every match event into the inbox.
func (s *Session) openMatchChannel(matchID string) error {
	ch := s.matchTransport.Channel("match:" + matchID)
	for _, event := range []string{eventState, eventAction, eventAnswer, eventSyncRequest, eventPing, eventPong} {
		ev := event
		ch.OnBroadcast(ev, func(_ string, payload json.RawMessage) {
			s.post(broadcastMsg{event: ev, payload: payload})
		})
	}
	if err := ch.Subscribe(context.Background()); err != nil {
		return err
	}
	s.matchCh = ch
	s.matchID = matchID
	return nil
}

// handleInvite joins the match channel named by the host. Stale or
// misaddressed invites are dropped.
func (s *Session) handleInvite(payload json.RawMessage) {
	var invite matchInvitePayload
	if err := json.Unmarshal(payload, &invite); err != nil {
		log.Debug().Err(err).Msg("bad match invite payload")
		return
	}
	if invite.GuestID != s.id.UserID || s.isHost || s.matchCh != nil {
		return
	}
	// Hosts always carry the smaller id of the pair.
	if invite.HostID == "" || invite.HostID >= s.id.UserID {
		log.Debug().Str("hostId", invite.HostID).Msg("invite with impossible host, ignoring")
		return
	}

	switch s.stage {
	case replication.StageQueue:
		// The host pairs off a roster snapshot we may never see: it flips
		// its presence to busy the moment it pairs, so a guest that
		// subscribed after the host's last queue heartbeat cannot reach
		// the same decision on its own. Adopt the host's pairing.
		s.opponent = models.PlayerRef{UserID: invite.HostID, Name: invite.HostName}
		s.matchedAtMs = s.nowMs()
		s.trackPresence(models.PresenceBusy)
		s.setStage(replication.StageMatched)
	case replication.StageMatched:
		if invite.HostID != s.opponent.UserID {
			log.Debug().Str("hostId", invite.HostID).Msg("invite from unexpected host, ignoring")
			return
		}
	default:
		return
	}

	s.matchTransport = s.deps.Transport
	if err := s.openMatchChannel(invite.MatchID); err != nil {
		log.Error().Err(err).Str("matchId", invite.MatchID).Msg("match channel subscribe failed")
		s.leaveMatch()
		return
	}
	// The initial state was likely published before we subscribed.
	s.requestResync()
}

func (s *Session) handleBroadcast(event string, payload json.RawMessage) {
	if event == eventMatchInvite {
		s.handleInvite(payload)
		return
	}
	if s.matchCh == nil {
		return
	}
	switch event {
	case eventState:
		s.handleState(payload)
	case eventAction:
		s.handleAction(payload)
	case eventAnswer:
		s.handleAnswer(payload)
	case eventSyncRequest:
		s.handleSyncRequest(payload)
	case eventPing:
		s.handlePing(payload)
	case eventPong:
		s.handlePong(payload)
	}
}

// handleState applies a replicated state if it is not older than what we
// hold. Redeliveries of the revision we already adopted are dropped before
// any side effects run.
func (s *Session) handleState(payload json.RawMessage) {
	var incoming models.MatchState
	if err := json.Unmarshal(payload, &incoming); err != nil {
		log.Debug().Err(err).Msg("bad state payload")
		return
	}
	if incoming.MatchID != s.matchID {
		return
	}
	if !replication.ShouldAcceptIncomingState(s.state, &incoming) {
		log.Debug().Int64("rev", incoming.Rev).Msg("dropping stale state")
		return
	}
	if s.state != nil && incoming.GameID == s.state.GameID && incoming.Rev == s.state.Rev {
		// An accepted redelivery carries no new data but is still a sign
		// of life from the host, so it quiets the staleness watchdog.
		s.lastStateAtMs = s.nowMs()
		return
	}
	s.applyState(incoming)
}

// applyState is the single place adopted states take effect, for states we
// received and for states we authored alike.
func (s *Session) applyState(state models.MatchState) {
	now := s.nowMs()
	prevGameID := -1
	if s.state != nil {
		prevGameID = s.state.GameID
	}
	s.state = &state
	s.lastStateAtMs = now

	if state.GameID != prevGameID {
		// A rematch supersedes every timer from the previous game.
		s.advanceDueMs = 0
		s.botActDueMs = 0
		s.lastLearnKey = ""
	}

	switch state.Phase {
	case models.PhaseFinal:
		s.setStage(replication.StageFinal)
		s.reportFinal(state)
	default:
		s.setStage(replication.StagePlaying)
	}

	if s.isHost && state.Phase == models.PhaseResult {
		s.advanceDueMs = now + int64(s.cfg.RoundAdvanceDelayMs)
		s.advanceGameID = state.GameID
	}
	if s.botMatch {
		s.runBotHooks(state, now)
	}

	snapshot := state.Clone()
	s.emit(Event{Type: EventStateUpdated, Stage: s.stage, State: &snapshot})
}

// runBotHooks schedules the bot's next move and feeds round outcomes back
// into its skill model.
func (s *Session) runBotHooks(state models.MatchState, now int64) {
	if state.Phase == models.PhaseQuestion && state.TurnUserID == bot.UserID {
		s.botActDueMs = now + bot.ThinkDelay(state).Milliseconds()
	}

	if state.Result != nil && state.Result.SubmitterID == bot.UserID && s.deps.Bot != nil {
		key := fmt.Sprintf("%d|%d", state.GameID, state.RoundIndex)
		if key != s.lastLearnKey {
			s.lastLearnKey = key
			if q, ok := s.deps.Catalog.Get(state.Result.QuestionID); ok {
				s.deps.Bot.Learn(q.Category, state.Result.Type == models.ResultCorrect)
			}
		}
	}

	// The bot agrees to a rematch as soon as the human asks for one.
	if state.Phase == models.PhaseFinal &&
		state.RematchRequests[s.id.UserID] && !state.RematchRequests[bot.UserID] {
		s.sendAction(bot.UserID, actionRematch)
	}
}

func (s *Session) reportFinal(state models.MatchState) {
	if s.deps.Reporter != nil {
		s.deps.Reporter.ReportFinal(context.Background(), state, s.id.UserID)
	}
	if s.botMatch && s.deps.Bot != nil && s.deps.BotStore != nil {
		if err := s.deps.BotStore.Save(s.deps.Bot.Model()); err != nil {
			log.Warn().Err(err).Msg("bot model save failed")
		}
	}
}

// publishState stamps the next revision, adopts it locally and broadcasts
// it. Host only. The echo of our own broadcast is dropped as a redelivery.
func (s *Session) publishState(next models.MatchState) {
	prev := models.MatchState{}
	if s.state != nil {
		prev = *s.state
	}
	stamped := replication.NextStateWithRev(prev, next, s.clock.Now())
	s.applyState(stamped)
	if err := s.matchCh.Broadcast(eventState, stamped); err != nil {
		log.Warn().Err(err).Int64("rev", stamped.Rev).Msg("state broadcast failed")
	}
}

// handleAction validates and applies a pass/repassa/rematch request.
// Host only; non-hosts rely on the resulting state broadcast.
func (s *Session) handleAction(payload json.RawMessage) {
	if !s.isHost || s.state == nil {
		return
	}
	var action actionPayload
	if err := json.Unmarshal(payload, &action); err != nil {
		log.Debug().Err(err).Msg("bad action payload")
		return
	}
	s.markGuestSeen(action.UserID)

	var (
		next models.MatchState
		err  error
	)
	switch action.Type {
	case actionPassa:
		next, err = s.engine.ApplyPass(*s.state, action.UserID)
	case actionRepassa:
		next, err = s.engine.ApplyRepassa(*s.state, action.UserID)
	case actionRematch:
		next, err = s.engine.ApplyRematch(*s.state, action.UserID, s.clock.Now())
	default:
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("type", action.Type).Str("userId", action.UserID).Msg("action rejected")
		return
	}
	s.publishState(next)
}

func (s *Session) handleAnswer(payload json.RawMessage) {
	if !s.isHost || s.state == nil {
		return
	}
	var answer answerPayload
	if err := json.Unmarshal(payload, &answer); err != nil {
		log.Debug().Err(err).Msg("bad answer payload")
		return
	}
	s.markGuestSeen(answer.UserID)

	next, err := s.engine.ApplyAnswer(*s.state, answer.UserID, answer.Text, s.clock.Now())
	if err != nil {
		log.Debug().Err(err).Str("userId", answer.UserID).Msg("answer rejected")
		return
	}
	s.publishState(next)
}

func (s *Session) handleSyncRequest(payload json.RawMessage) {
	if !s.isHost {
		return
	}
	var req syncRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	s.markGuestSeen(req.UserID)
	resp := replication.ResyncResponse(eventSyncRequest, req.MatchID, s.state)
	if resp == nil {
		return
	}
	// Re-broadcast the current revision as-is; peers accept equal revs.
	if err := s.matchCh.Broadcast(eventState, resp); err != nil {
		log.Warn().Err(err).Msg("resync broadcast failed")
	}
}

func (s *Session) markGuestSeen(userID string) {
	if userID != "" && userID != s.id.UserID {
		s.guestSeen = true
	}
}

func (s *Session) handlePing(payload json.RawMessage) {
	var ping pingPayload
	if err := json.Unmarshal(payload, &ping); err != nil {
		return
	}
	if ping.FromUserID == s.id.UserID {
		return
	}
	s.markGuestSeen(ping.FromUserID)
	pong := pongPayload{ID: ping.ID, ToUserID: ping.FromUserID, SentAtMs: ping.SentAtMs}
	if err := s.matchCh.Broadcast(eventPong, pong); err != nil {
		log.Debug().Err(err).Msg("pong broadcast failed")
	}
}

func (s *Session) handlePong(payload json.RawMessage) {
	var pong pongPayload
	if err := json.Unmarshal(payload, &pong); err != nil {
		return
	}
	if pong.ToUserID != s.id.UserID || pong.ID != s.pendingPingID {
		return
	}
	s.pendingPingID = ""
	sample := int(s.nowMs() - pong.SentAtMs)
	estimate := s.rtt.Observe(sample)
	s.emit(Event{Type: EventLatency, Stage: s.stage, LatencyMs: estimate})
}

func (s *Session) requestResync() {
	if s.matchCh == nil {
		return
	}
	req := syncRequestPayload{MatchID: s.matchID, UserID: s.id.UserID}
	if err := s.matchCh.Broadcast(eventSyncRequest, req); err != nil {
		log.Debug().Err(err).Msg("sync request broadcast failed")
	}
	s.lastResyncMs = s.nowMs()
}

func (s *Session) sendAnswer(userID, text string) {
	if s.matchCh == nil {
		return
	}
	answer := answerPayload{UserID: userID, Text: text}
	if err := s.matchCh.Broadcast(eventAnswer, answer); err != nil {
		log.Warn().Err(err).Msg("answer broadcast failed")
	}
}

func (s *Session) sendAction(userID, kind string) {
	if s.matchCh == nil {
		return
	}
	action := actionPayload{UserID: userID, Type: kind}
	if err := s.matchCh.Broadcast(eventAction, action); err != nil {
		log.Warn().Err(err).Str("type", kind).Msg("action broadcast failed")
	}
}

// startBotMatch spins up a private in-process bus and hosts a match against
// the bot on it. The lobby presence flips to busy so humans stop pairing
// with us.
func (s *Session) startBotMatch() {
	if s.stage != replication.StageQueue || s.deps.Bot == nil {
		return
	}
	bus := transport.NewLocalBus(s.clock, s.cfg.PresenceTTL())
	s.opponent = models.PlayerRef{UserID: bot.UserID, Name: bot.Name}
	s.isHost = true
	s.trackPresence(models.PresenceBusy)
	s.setStage(replication.StageMatched)
	s.hostNewMatch(bus, s.opponent, true)
}

// leaveMatch tears down any match wiring and rejoins the queue.
func (s *Session) leaveMatch() {
	s.closeMatch()
	s.queuedSinceMs = s.nowMs()
	s.botOffered = false
	s.trackPresence(models.PresenceQueue)
	s.setStage(replication.StageQueue)
}

func (s *Session) closeMatch() {
	if s.matchCh != nil {
		if err := s.matchCh.Unsubscribe(); err != nil {
			log.Debug().Err(err).Msg("match unsubscribe failed")
		}
	}
	s.matchCh = nil
	s.matchTransport = nil
	s.matchID = ""
	s.state = nil
	s.isHost = false
	s.botMatch = false
	s.guestSeen = false
	s.pendingInvite = nil
	s.opponent = models.PlayerRef{}
	s.pendingPingID = ""
	s.lastStateAtMs = 0
	s.matchedAtMs = 0
	s.advanceDueMs = 0
	s.botActDueMs = 0
	s.lastLearnKey = ""
}

// onTick drives every timer: presence heartbeat, bot offer, invite retry,
// question timeout, delayed round advance, bot moves, ping cadence and the
// resync watchdog.
func (s *Session) onTick() {
	now := s.nowMs()

	if now-s.lastHeartbeatMs >= int64(s.cfg.HeartbeatMs) {
		status := models.PresenceBusy
		if s.stage == replication.StageQueue {
			status = models.PresenceQueue
		}
		s.trackPresence(status)
	}

	if s.stage == replication.StageQueue {
		if !s.botOffered && now-s.queuedSinceMs >= int64(s.cfg.BotOfferAfterMs) {
			s.botOffered = true
			s.emit(Event{Type: EventBotOffer, Stage: s.stage})
		}
		return
	}

	// Guest never heard from the host: give up and requeue.
	if s.stage == replication.StageMatched && !s.isHost && s.matchCh == nil &&
		now-s.matchedAtMs >= matchedTimeoutMs {
		log.Warn().Str("opponent", s.opponent.UserID).Msg("no invite from host, rejoining queue")
		s.leaveMatch()
		return
	}

	if s.isHost && !s.guestSeen && s.pendingInvite != nil &&
		now-s.lastInviteMs >= inviteRetryMs {
		s.sendInvite()
	}

	if s.isHost && s.state != nil && s.state.Phase == models.PhaseQuestion {
		if next, due := s.engine.ResolveTimeout(*s.state, s.clock.Now()); due {
			s.publishState(next)
		}
	}

	if s.isHost && s.advanceDueMs > 0 && now >= s.advanceDueMs &&
		s.state != nil && s.state.GameID == s.advanceGameID && s.state.Phase == models.PhaseResult {
		s.advanceDueMs = 0
		next, err := s.engine.AdvanceRound(*s.state, s.clock.Now())
		if err != nil {
			log.Error().Err(err).Msg("round advance failed")
		} else {
			s.publishState(next)
		}
	}

	if s.botMatch && s.botActDueMs > 0 && now >= s.botActDueMs {
		s.botActDueMs = 0
		s.actAsBot()
	}

	if !s.botMatch && s.stage == replication.StagePlaying &&
		now-s.lastPingMs >= int64(s.cfg.PingIntervalMs) {
		s.sendPing(now)
	}

	if !s.isHost {
		needsInitialState := s.matchCh != nil && s.state == nil
		if needsInitialState || replication.ShouldRequestResync(s.stage, now, s.lastStateAtMs) {
			if now-s.lastResyncMs >= resyncCooldownMs {
				s.requestResync()
			}
		}
	}
}

func (s *Session) sendPing(now int64) {
	if s.matchCh == nil {
		return
	}
	ping := pingPayload{ID: uuid.NewString(), FromUserID: s.id.UserID, SentAtMs: now}
	if err := s.matchCh.Broadcast(eventPing, ping); err != nil {
		log.Debug().Err(err).Msg("ping broadcast failed")
		return
	}
	s.pendingPingID = ping.ID
	s.lastPingMs = now
}

// actAsBot decides the bot's move for the current question and feeds it
// through the same action/answer path a remote peer would use.
func (s *Session) actAsBot() {
	if s.state == nil || s.state.Phase != models.PhaseQuestion || s.state.TurnUserID != bot.UserID {
		return
	}
	q, ok := s.deps.Catalog.Get(s.state.QuestionID)
	if !ok {
		log.Error().Str("questionId", s.state.QuestionID).Msg("bot question missing from catalog")
		return
	}
	options, err := s.engine.Options(s.state.MatchID, s.state.QuestionID, bot.UserID)
	if err != nil {
		log.Error().Err(err).Msg("bot options failed")
		return
	}
	remaining := s.engine.TimeRemaining(*s.state, s.clock.Now())
	decision := s.deps.Bot.Decide(*s.state, q, options, remaining, s.engine.RoundSeconds())
	if decision.Pass {
		s.sendAction(bot.UserID, actionPassa)
		return
	}
	s.sendAnswer(bot.UserID, decision.Answer)
}

// shutdown runs once when the loop exits. It leaves the lobby cleanly so
// peers see us drop out immediately instead of waiting for the TTL sweep.
func (s *Session) shutdown() {
	s.closeMatch()
	if s.lobby != nil {
		s.trackPresence(models.PresenceOffline)
		if err := s.lobby.Unsubscribe(); err != nil {
			log.Debug().Err(err).Msg("lobby unsubscribe failed")
		}
		s.lobby = nil
	}
	log.Info().Str("userId", s.id.UserID).Msg("session closed")
}
