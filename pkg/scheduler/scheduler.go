// Package scheduler implements the per-room command scheduler: one
// worker goroutine per room, serializing every inbound command through a
// single channel and driving the turn timer, the bot-trigger timer, and
// per-player disconnect-grace timers. Grounded on go-kgp's schedule()
// select-loop (server/go-kgp/sched.go) — a single goroutine selecting over
// an enqueue channel and per-entity timers — generalized from matchmaking
// to per-room command dispatch.
package scheduler

import (
	"math/rand"
	"time"

	"github.com/decred/slog"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/bot"
	"github.com/unoengine/uno-server/pkg/card"
	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/game"
	"github.com/unoengine/uno-server/pkg/player"
	"github.com/unoengine/uno-server/pkg/room"
)

// BotActionDelayMin and BotActionDelayMax bound the artificial pacing
// window: a bot acts a delay within this range after becoming the current
// player, to preserve a human-perceptible pace.
const (
	BotActionDelayMin = 800 * time.Millisecond
	BotActionDelayMax = 1500 * time.Millisecond
)

// CommandKind enumerates the Room operations the scheduler dispatches.
// Only one worker ever touches Room/Session state, fulfilling the
// single-writer invariant.
type CommandKind int

const (
	CmdPlayCard CommandKind = iota
	CmdDrawCard
	CmdCallOne
	CmdCatchOne
	CmdPause
	CmdResume
	CmdJoin
	CmdLeave
	CmdKick
	CmdAddBot
	CmdRemoveBot
	CmdStartGame
	CmdDisconnect
	CmdReconnect
)

// Command is one inbound request, submitted by a transport and applied by
// the room's single worker. Result is delivered on Done, non-blocking from
// the submitter's perspective only in that the worker never blocks on it
// (Done is buffered 1).
type Command struct {
	Kind CommandKind

	ActorID  string
	TargetID string

	Player *player.Player // CmdJoin
	Email  string         // CmdJoin

	CardID        int
	DeclaredColor card.Color
	CalledOne     bool

	Done chan Result
}

// Result is what a submitted Command resolves to.
type Result struct {
	Events []eventbus.Event
	Err    error
}

// reply sends r on c.Done without blocking if nobody's listening.
func reply(c Command, r Result) {
	if c.Done == nil {
		return
	}
	select {
	case c.Done <- r:
	default:
	}
}

// Scheduler owns exactly one Room and is the only goroutine allowed to
// mutate it. Submit is the only thread-safe entry point.
type Scheduler struct {
	room *room.Room
	bus  *eventbus.Bus
	log  slog.Logger
	rng  *rand.Rand

	commands chan Command
	stopChan chan struct{}

	disconnectTimers map[string]*time.Timer
	disconnectFired  chan string

	botDelayMin time.Duration
	botDelayMax time.Duration
}

// New creates a Scheduler for r. Call Run in its own goroutine to start
// processing.
func New(r *room.Room, bus *eventbus.Bus, log slog.Logger, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		room:             r,
		bus:              bus,
		log:              log,
		rng:              rng,
		commands:         make(chan Command, 64),
		stopChan:         make(chan struct{}),
		disconnectTimers: map[string]*time.Timer{},
		disconnectFired:  make(chan string, 8),
		botDelayMin:      BotActionDelayMin,
		botDelayMax:      BotActionDelayMax,
	}
}

// SetBotActionDelay overrides the pacing window, e.g. for tests that can't
// afford to wait a full second per bot turn.
func (s *Scheduler) SetBotActionDelay(min, max time.Duration) {
	s.botDelayMin, s.botDelayMax = min, max
}

// Submit enqueues a command for the room's worker, blocking only until the
// queue accepts it (never until it's processed, unless the caller reads
// Done). Safe to call from any goroutine.
func (s *Scheduler) Submit(c Command) {
	s.commands <- c
}

// Stop halts the worker loop. Any in-flight turn/bot/disconnect timers are
// abandoned; the caller is expected to also remove the room from the
// registry.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// Run is the select-loop that owns the room exclusively until Stop is
// called, dispatching inbound commands and firing timers.
func (s *Scheduler) Run() {
	var turnTimer, botTimer *time.Timer
	defer func() {
		stopTimer(turnTimer)
		stopTimer(botTimer)
		for _, t := range s.disconnectTimers {
			stopTimer(t)
		}
	}()

	for {
		var turnC, botC <-chan time.Time
		if turnTimer != nil {
			turnC = turnTimer.C
		}
		if botTimer != nil {
			botC = botTimer.C
		}

		select {
		case <-s.stopChan:
			return

		case c := <-s.commands:
			events := s.dispatch(c)
			s.publish(events)
			turnTimer, botTimer = s.rearm(turnTimer, botTimer)

		case <-turnC:
			events, err := s.room.ForceAdvance()
			if err != nil && s.log != nil {
				s.log.Errorf("scheduler: force-advance failed for room %s: %v", s.room.Code, err)
			}
			s.publish(events)
			turnTimer, botTimer = s.rearm(turnTimer, botTimer)

		case <-botC:
			s.runBotTurn()
			turnTimer, botTimer = s.rearm(turnTimer, botTimer)

		case playerID := <-s.disconnectFired:
			// Grace expired without reconnection: the seat converts to a
			// temporary bot via the same path as a voluntary mid-round
			// Leave.
			events, err := s.room.Leave(playerID)
			if err != nil && s.log != nil {
				s.log.Errorf("scheduler: disconnect-grace replace failed for %s: %v", playerID, err)
			}
			s.publish(events)
			delete(s.disconnectTimers, playerID)
			turnTimer, botTimer = s.rearm(turnTimer, botTimer)
		}
	}
}

// dispatch applies a single command to the room and returns the resulting
// events, also delivering a Result on Done.
func (s *Scheduler) dispatch(c Command) []eventbus.Event {
	var events []eventbus.Event
	var err error

	switch c.Kind {
	case CmdJoin:
		events, err = s.room.Join(c.Player, c.Email)
	case CmdLeave:
		events, err = s.room.Leave(c.ActorID)
	case CmdKick:
		events, err = s.room.Kick(c.ActorID, c.TargetID)
	case CmdAddBot:
		_, events, err = s.room.AddBot(c.ActorID)
	case CmdRemoveBot:
		events, err = s.room.RemoveBot(c.ActorID, c.TargetID)
	case CmdStartGame:
		events, err = s.room.StartGame(c.ActorID)
	case CmdPlayCard:
		events, err = s.room.PlayCard(c.ActorID, c.CardID, c.DeclaredColor, c.CalledOne)
	case CmdDrawCard:
		events, err = s.room.DrawCard(c.ActorID)
	case CmdCallOne:
		events, err = s.room.CallOne(c.ActorID)
	case CmdCatchOne:
		events, err = s.room.CatchOne(c.ActorID, c.TargetID)
	case CmdPause:
		events, err = s.room.Pause()
	case CmdResume:
		events, err = s.room.Resume()
	case CmdDisconnect:
		events, err = s.room.Disconnect(c.ActorID)
		if err == nil && !s.room.Config.TournamentMode && s.room.Status() == room.StatusInProgress {
			s.armDisconnectTimer(c.ActorID)
		}
	case CmdReconnect:
		s.cancelDisconnectTimer(c.ActorID)
		events, err = s.room.Reconnect(c.ActorID)
	default:
		err = apperrors.New(apperrors.InternalError, "unknown scheduler command")
	}

	reply(c, Result{Events: events, Err: err})
	return events
}

// publish hands events to the bus, stamping nothing further: Room already
// stamped RoomCode/SessionID.
func (s *Scheduler) publish(events []eventbus.Event) {
	if len(events) > 0 {
		s.bus.Publish(events...)
	}
}

// rearm recomputes the timers while the session is Playing: the turn timer
// when the current player is human, the bot timer when it is a bot.
func (s *Scheduler) rearm(turnTimer, botTimer *time.Timer) (*time.Timer, *time.Timer) {
	stopTimer(turnTimer)
	stopTimer(botTimer)
	turnTimer, botTimer = nil, nil

	if s.room.Session == nil || s.room.Session.Phase() != game.PhasePlaying {
		return nil, nil
	}
	cur := s.room.Session.CurrentPlayer()
	if cur == nil {
		return nil, nil
	}

	if cur.Kind == player.Bot {
		delay := s.botDelayMin
		if span := int64(s.botDelayMax - s.botDelayMin); span > 0 {
			delay += time.Duration(s.rng.Int63n(span))
		}
		botTimer = time.NewTimer(delay)
	} else {
		remaining := time.Until(s.room.Session.TurnDeadline())
		if remaining < 0 {
			remaining = 0
		}
		turnTimer = time.NewTimer(remaining)
	}
	return turnTimer, botTimer
}

// runBotTurn invokes the bot driver and feeds its decision back through the
// same command path a human client would use: the bot driver never
// mutates Session directly.
func (s *Scheduler) runBotTurn() {
	if s.room.Session == nil {
		return
	}
	cur := s.room.Session.CurrentPlayer()
	if cur == nil || cur.Kind != player.Bot {
		return
	}
	top, ok := s.room.Session.TopCard()
	if !ok {
		return
	}

	decision := bot.Decide(cur.Hand.Cards(), top, s.room.Session.DeclaredColor(), s.room.Config.TournamentMode, s.rng)

	var events []eventbus.Event
	var err error
	if decision.Draw {
		events, err = s.room.DrawCard(cur.ID)
	} else {
		callOne := cur.Hand.Size() == 2 && bot.ShouldCallOne(s.rng)
		events, err = s.room.PlayCard(cur.ID, decision.CardID, decision.DeclaredColor, callOne)
	}
	if err != nil && s.log != nil {
		s.log.Errorf("scheduler: bot turn failed in room %s: %v", s.room.Code, err)
		return
	}
	s.publish(events)
}

func (s *Scheduler) armDisconnectTimer(playerID string) {
	s.cancelDisconnectTimer(playerID)
	t := time.AfterFunc(room.DisconnectGrace, func() {
		select {
		case s.disconnectFired <- playerID:
		case <-s.stopChan:
		}
	})
	s.disconnectTimers[playerID] = t
}

func (s *Scheduler) cancelDisconnectTimer(playerID string) {
	if t, ok := s.disconnectTimers[playerID]; ok {
		stopTimer(t)
		delete(s.disconnectTimers, playerID)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
