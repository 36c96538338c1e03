// Package game implements GameSession: the per-round state machine driving
// deal, play, draw, ONE-calling and round end. Unlike the Player
// connection-status machine in pkg/player (built on pkg/statemachine's
// generic Rob Pike pattern), the session phase is a plain enum plus a
// transition table: session phases don't each carry distinct per-state
// behavior worth a closure, they carry a command-legality table, which a
// map reads more plainly than a chain of state functions would.
//
// A Session is driven by exactly one goroutine at a time (the room's
// scheduler worker) — it carries no mutex of its own.
package game

import (
	"time"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/card"
	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/player"
	"github.com/unoengine/uno-server/pkg/ring"

	"math/rand"
)

// Phase is a GameSession's phase.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseDealing
	PhasePlaying
	PhasePaused
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "Lobby"
	case PhaseDealing:
		return "Dealing"
	case PhasePlaying:
		return "Playing"
	case PhasePaused:
		return "Paused"
	case PhaseGameOver:
		return "GameOver"
	default:
		return "Unknown"
	}
}

// command names an externally-issued session command, for the transition
// table below. Leave/Start live on Room in this implementation and
// call into Session only for the sub-effects the table grants them (Start
// triggers Deal; Leave may force GameOver); they're listed here only so
// the legality table covers them too.
type command int

const (
	cmdStart command = iota
	cmdPlay
	cmdDraw
	cmdCallOne
	cmdCatchOne
	cmdPause
	cmdResume
	cmdLeave
)

// allowed is the GameSession state/command legality table, a map instead
// of per-state closures per the package doc above.
var allowed = map[Phase]map[command]bool{
	PhaseLobby:    {cmdStart: true, cmdLeave: true},
	PhaseDealing:  {},
	PhasePlaying:  {cmdPlay: true, cmdDraw: true, cmdCallOne: true, cmdCatchOne: true, cmdPause: true, cmdLeave: true},
	PhasePaused:   {cmdResume: true, cmdLeave: true},
	PhaseGameOver: {cmdLeave: true},
}

// Config is the subset of Room Configuration the Session itself needs to
// enforce play rules; Room translates its own Configuration into this on
// Start.
type Config struct {
	InitialHandSize int
	TurnTimeLimit   time.Duration
	StackingEnabled bool
	TournamentMode  bool
}

// Session is a GameSession.
type Session struct {
	ID    string
	phase Phase

	deck    *card.Deck
	discard []card.Card
	ring    *ring.Ring[*player.Player]

	declared    card.Color
	pendingDraw int
	nextSkip    bool

	turnStart     time.Time
	drawnThisTurn bool

	winner *player.Player
	scores map[string]int

	cfg Config
	rng *rand.Rand
	log *CommandLog

	roster []*player.Player
}

// NewSession creates a session in Lobby phase over the given roster. The
// ring is not built until Start, since the roster may still change while
// Lobby: the ring is reinitialized at each session start from the
// room's current roster.
func NewSession(id string, roster []*player.Player, cfg Config, rng *rand.Rand) *Session {
	return &Session{
		ID:       id,
		phase:    PhaseLobby,
		declared: card.WildColor,
		cfg:      cfg,
		rng:      rng,
		log:      NewCommandLog(),
		roster:   append([]*player.Player{}, roster...),
		scores:   map[string]int{},
	}
}

func playerID(p *player.Player) string { return p.ID }

// Phase returns the session's current phase.
func (s *Session) Phase() Phase { return s.phase }

// Winner returns the round winner, set only in GameOver.
func (s *Session) Winner() *player.Player { return s.winner }

// CurrentPlayer returns the seat whose turn it is; only meaningful while
// Playing.
func (s *Session) CurrentPlayer() *player.Player {
	if s.ring == nil || s.ring.Len() == 0 {
		return nil
	}
	return s.ring.Current()
}

// TopCard returns the discard pile's top card.
func (s *Session) TopCard() (card.Card, bool) {
	if len(s.discard) == 0 {
		return card.Card{}, false
	}
	return s.discard[len(s.discard)-1], true
}

// DeclaredColor returns the session's current declared color (WildColor if
// none is set).
func (s *Session) DeclaredColor() card.Color { return s.declared }

// PendingDraw returns the pending-draw counter.
func (s *Session) PendingDraw() int { return s.pendingDraw }

// TurnDeadline returns the current turn's expiry, for the scheduler's turn
// timer.
func (s *Session) TurnDeadline() time.Time {
	return s.turnStart.Add(s.cfg.TurnTimeLimit)
}

// Start transitions Lobby -> Dealing -> Playing, building the ring from the
// roster and dealing hands.
func (s *Session) Start() ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdStart] {
		return nil, apperrors.New(apperrors.InvalidState, "session is not in Lobby")
	}
	if len(s.roster) < 2 {
		return nil, apperrors.New(apperrors.InvalidState, "at least 2 seats are required to start")
	}

	s.phase = PhaseDealing
	s.ring = ring.New(s.roster, playerID)
	s.deck = card.NewStandardDeck(s.rng)

	for _, p := range s.roster {
		dealt := make([]card.Card, 0, s.cfg.InitialHandSize)
		for i := 0; i < s.cfg.InitialHandSize; i++ {
			c, ok := s.deck.Draw()
			if !ok {
				return nil, apperrors.New(apperrors.InternalError, "deck exhausted during deal")
			}
			dealt = append(dealt, c)
		}
		p.Hand.AddAll(dealt)
		p.OnHandSizeChanged()
	}

	var reshuffled []card.Card
	var top card.Card
	for {
		c, ok := s.deck.Draw()
		if !ok {
			return nil, apperrors.New(apperrors.InternalError, "deck exhausted turning the first discard")
		}
		if !c.Variant().IsWild() {
			top = c
			break
		}
		reshuffled = append(reshuffled, c)
	}
	if len(reshuffled) > 0 {
		s.deck.ReturnAndReshuffle(reshuffled...)
	}
	s.discard = []card.Card{top}

	s.phase = PhasePlaying
	s.turnStart = now()
	s.drawnThisTurn = false
	s.log.Seal()

	order := make([]string, 0, len(s.roster))
	for _, p := range s.roster {
		order = append(order, p.ID)
	}

	events := []eventbus.Event{
		eventbus.New(eventbus.GameStarted, eventbus.GameStartedPayload{SessionID: s.ID, PlayerOrder: order}),
		eventbus.New(eventbus.TurnChanged, eventbus.TurnChangedPayload{
			PlayerID: s.ring.Current().ID,
			Deadline: s.TurnDeadline().UnixMilli(),
		}),
	}
	return events, nil
}

// now is a package var so tests can freeze the clock.
var now = time.Now

// PlayCard validates and applies a card play.
func (s *Session) PlayCard(actorID string, cardID int, declared card.Color, calledOne bool) ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdPlay] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot play a card outside Playing")
	}
	cur := s.ring.Current()
	if cur.ID != actorID {
		return nil, apperrors.New(apperrors.NotYourTurn, "it is not your turn")
	}
	played, ok := cur.Hand.Find(cardID)
	if !ok {
		return nil, apperrors.New(apperrors.IllegalCard, "card not in hand")
	}
	top, _ := s.TopCard()
	if !card.CanPlayOn(top, s.declared, played) {
		return nil, apperrors.New(apperrors.IllegalCard, "card is not legal on the current discard top")
	}
	if played.Variant().IsWild() {
		if !declared.IsConcrete() {
			return nil, apperrors.New(apperrors.IllegalDeclaredColor, "a wild card requires a declared color")
		}
		if s.cfg.TournamentMode && played.Variant() == card.WildDrawFour {
			effective := s.declared
			if !effective.IsConcrete() {
				effective = top.EffectiveColor()
			}
			if !card.StrictWildDrawFourLegal(cur.Hand.Cards(), effective) {
				return nil, apperrors.New(apperrors.IllegalCard, "WildDrawFour is not strictly legal with a matching color in hand")
			}
		}
	}
	if s.pendingDraw > 0 && played.Variant() != card.DrawTwo && played.Variant() != card.WildDrawFour {
		return nil, apperrors.New(apperrors.PendingDrawUnresolved, "a pending draw must be stacked or resolved first")
	}

	entry := LogEntry{
		Command:         CmdPlayCard,
		ActorID:         actorID,
		PreTop:          top,
		PlayedCard:      played,
		PreDeclared:     s.declared,
		PreClockwise:    s.ring.Clockwise(),
		PrePendingDraw:  s.pendingDraw,
		PreNextSkip:     s.nextSkip,
		PreCurrentIndex: s.ring.CurrentIndex(),
		PreCalledOne:    cur.CalledOne,
	}

	cur.Hand.Remove(cardID)
	if played.Variant().IsWild() {
		played = played.WithDeclared(declared)
		s.declared = declared
	} else {
		s.declared = card.WildColor
	}
	s.discard = append(s.discard, played)
	cur.OnHandSizeChanged()

	events := []eventbus.Event{
		eventbus.New(eventbus.CardPlayed, eventbus.CardPlayedPayload{
			PlayerID: actorID, CardID: played.ID(), Variant: played.Variant().String(),
			Color: played.IntrinsicColor().String(), DeclaredColor: played.DeclaredColor().String(),
		}),
	}
	if played.Variant().IsWild() {
		events = append(events, eventbus.New(eventbus.ColorChanged, eventbus.ColorChangedPayload{Color: declared.String()}))
	}

	switch played.Variant() {
	case card.DrawTwo:
		s.pendingDraw += 2
	case card.WildDrawFour:
		s.pendingDraw += 4
	case card.Reverse:
		s.ring.Reverse()
		events = append(events, eventbus.New(eventbus.DirectionReversed, eventbus.DirectionReversedPayload{Clockwise: s.ring.Clockwise()}))
		if s.ring.Len() == 2 {
			s.nextSkip = true
		}
	case card.Skip:
		s.nextSkip = true
	}

	if cur.Hand.Size() == 0 {
		endEvents := s.endRound(cur)
		return append(events, endEvents...), nil
	}

	if cur.Hand.Size() == 1 && !calledOne && !cur.CalledOne {
		drawn := s.drawN(cur, 2)
		events = append(events, eventbus.New(eventbus.OnePenalty, eventbus.OnePenaltyPayload{PlayerID: cur.ID, Count: len(drawn)}))
	} else if calledOne && cur.Hand.Size() == 1 {
		cur.CalledOne = true
		events = append(events, eventbus.New(eventbus.OneCalled, eventbus.OneCalledPayload{PlayerID: cur.ID}))
	}

	entry.Advanced = true
	s.log.Record(entry)
	s.log.Seal()
	events = append(events, s.advanceTurn()...)
	return events, nil
}

// DrawCard draws the current player's card(s) for the turn.
func (s *Session) DrawCard(actorID string) ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdDraw] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot draw outside Playing")
	}
	cur := s.ring.Current()
	if cur.ID != actorID {
		return nil, apperrors.New(apperrors.NotYourTurn, "it is not your turn")
	}

	entry := LogEntry{
		Command:         CmdDrawCard,
		ActorID:         actorID,
		PreDeclared:     s.declared,
		PreClockwise:    s.ring.Clockwise(),
		PrePendingDraw:  s.pendingDraw,
		PreNextSkip:     s.nextSkip,
		PreCurrentIndex: s.ring.CurrentIndex(),
	}

	if s.pendingDraw > 0 {
		n := s.pendingDraw
		drawn := s.drawN(cur, n)
		entry.DrawnCards = drawn
		s.pendingDraw = 0
		events := []eventbus.Event{eventbus.New(eventbus.CardDrawn, eventbus.CardDrawnPayload{PlayerID: cur.ID, Count: len(drawn), Forced: true})}
		entry.Advanced = true
		s.log.Record(entry)
		s.log.Seal()
		s.drawnThisTurn = true
		events = append(events, s.advanceTurn()...)
		return events, nil
	}

	drawn := s.drawN(cur, 1)
	entry.DrawnCards = drawn
	events := []eventbus.Event{eventbus.New(eventbus.CardDrawn, eventbus.CardDrawnPayload{PlayerID: cur.ID, Count: len(drawn), Forced: false})}
	s.drawnThisTurn = true

	top, _ := s.TopCard()
	if len(drawn) == 1 && card.CanPlayOn(top, s.declared, drawn[0]) {
		// Legal to play immediately: leave the turn open for a follow-up
		// PlayCard instead of advancing now.
		s.log.Record(entry)
		return events, nil
	}

	entry.Advanced = true
	s.log.Record(entry)
	s.log.Seal()
	events = append(events, s.advanceTurn()...)
	return events, nil
}

// ForceAdvance is called by the scheduler's turn timer on expiry: draws
// pendingDraw if any, else a single forced draw if the current player
// hasn't drawn this turn yet, else simply advances.
func (s *Session) ForceAdvance() ([]eventbus.Event, error) {
	if s.phase != PhasePlaying {
		return nil, apperrors.New(apperrors.InvalidState, "cannot force-advance outside Playing")
	}
	cur := s.ring.Current()
	var events []eventbus.Event
	if s.pendingDraw > 0 || !s.drawnThisTurn {
		n := s.pendingDraw
		if n == 0 {
			n = 1
		}
		drawn := s.drawN(cur, n)
		s.pendingDraw = 0
		events = append(events, eventbus.New(eventbus.CardDrawn, eventbus.CardDrawnPayload{PlayerID: cur.ID, Count: len(drawn), Forced: true}))
	}
	s.log.Seal()
	events = append(events, s.advanceTurn()...)
	return events, nil
}

// CallOne records that actorID has declared down to their last card.
func (s *Session) CallOne(actorID string) ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdCallOne] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot call ONE outside Playing")
	}
	p := s.findPlayer(actorID)
	if p == nil {
		return nil, apperrors.New(apperrors.UnknownRoom, "player is not seated in this session")
	}
	if p.Hand.Size() != 1 || p.CalledOne {
		return nil, apperrors.New(apperrors.CannotCallOne, "ONE may only be called with exactly one card and not already called")
	}

	s.log.Record(LogEntry{Command: CmdCallOne, ActorID: actorID, PreCalledOne: p.CalledOne})
	p.CalledOne = true
	return []eventbus.Event{eventbus.New(eventbus.OneCalled, eventbus.OneCalledPayload{PlayerID: actorID})}, nil
}

// CatchOne penalizes a player who failed to call ONE in time.
func (s *Session) CatchOne(actorID, targetID string) ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdCatchOne] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot catch ONE outside Playing")
	}
	if actorID == targetID {
		return nil, apperrors.New(apperrors.CannotCatchOne, "cannot catch yourself")
	}
	target := s.findPlayer(targetID)
	if target == nil {
		return nil, apperrors.New(apperrors.UnknownRoom, "target is not seated in this session")
	}
	if target.Hand.Size() != 1 || target.CalledOne {
		return nil, apperrors.New(apperrors.CannotCatchOne, "target no longer has an uncalled single card")
	}
	drawn := s.drawN(target, 2)
	target.CalledOne = false
	return []eventbus.Event{eventbus.New(eventbus.OnePenalty, eventbus.OnePenaltyPayload{PlayerID: targetID, Count: len(drawn)})}, nil
}

// Pause transitions Playing -> Paused.
func (s *Session) Pause() ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdPause] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot pause outside Playing")
	}
	s.phase = PhasePaused
	return []eventbus.Event{eventbus.New(eventbus.GamePaused, eventbus.GamePausedPayload{})}, nil
}

// Resume transitions Paused -> Playing, restarting the turn timer.
func (s *Session) Resume() ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdResume] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot resume outside Paused")
	}
	s.phase = PhasePlaying
	s.turnStart = now()
	return []eventbus.Event{eventbus.New(eventbus.GameResumed, eventbus.GameResumedPayload{})}, nil
}

// Leave removes a seat entirely from the session's ring and roster
// (the tournament-mode leave, and any leave while still Lobby/GameOver).
// Outside tournament mode, a disconnect during Playing
// should go through ReplaceSeat instead, which keeps the seat (and turn
// order) alive as a temporary bot. If fewer than 2 seats remain, the round
// ends with whoever's left as winner (or no winner if none remain).
func (s *Session) Leave(playerID string) ([]eventbus.Event, error) {
	if !allowed[s.phase][cmdLeave] {
		return nil, apperrors.New(apperrors.InvalidState, "cannot leave in this phase")
	}
	s.removeFromRoster(playerID)
	if s.ring == nil || s.ring.Len() == 0 {
		return nil, nil
	}
	wasCurrent := s.ring.Current().ID == playerID
	if _, ok := s.ring.RemoveByID(playerID); !ok {
		return nil, nil
	}

	if s.phase != PhasePlaying && s.phase != PhasePaused {
		return nil, nil
	}
	if s.ring.Len() < 2 {
		var winner *player.Player
		if s.ring.Len() == 1 {
			winner = s.ring.Current()
		}
		return s.endRound(winner), nil
	}
	if wasCurrent {
		s.log.Seal()
		return s.advanceTurn(), nil
	}
	return nil, nil
}

// ReplaceSeat swaps a departing player's seat for a temporary bot that
// inherits the hand and called-ONE flag, preserving turn order. Used for
// the non-tournament
// disconnect-grace-expiry path, never for the tournament-mode leave path
// (that calls Leave instead).
func (s *Session) ReplaceSeat(departingID string, bot *player.Player) bool {
	departing := s.findPlayer(departingID)
	if departing == nil {
		return false
	}
	bot.Hand = departing.Hand
	bot.CalledOne = departing.CalledOne

	for i, p := range s.roster {
		if p.ID == departingID {
			s.roster[i] = bot
			break
		}
	}
	if s.ring == nil {
		return false
	}
	return s.ring.ReplaceByID(departingID, bot)
}

func (s *Session) removeFromRoster(id string) {
	for i, p := range s.roster {
		if p.ID == id {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			return
		}
	}
}

// Undo reverses the most recently recorded command, if it's still
// reversible. Disabled in tournament mode.
func (s *Session) Undo(actorID string) error {
	if s.cfg.TournamentMode {
		return apperrors.New(apperrors.InvalidState, "undo is disabled in tournament mode")
	}
	e, ok := s.log.PopLast()
	if !ok {
		return apperrors.New(apperrors.InvalidState, "nothing to undo")
	}
	if e.Advanced {
		return apperrors.New(apperrors.InvalidState, "cannot undo across a turn boundary")
	}
	if e.ActorID != actorID {
		return apperrors.New(apperrors.InvalidState, "only the acting player may undo their own command")
	}

	actor := s.findPlayer(e.ActorID)
	if actor == nil {
		return apperrors.New(apperrors.InternalError, "undo actor is no longer seated")
	}

	switch e.Command {
	case CmdPlayCard:
		if len(s.discard) > 0 {
			s.discard = s.discard[:len(s.discard)-1]
		}
		actor.Hand.Add(e.PlayedCard)
		actor.OnHandSizeChanged()
	case CmdDrawCard:
		for _, c := range e.DrawnCards {
			actor.Hand.Remove(c.ID())
		}
		actor.OnHandSizeChanged()
		s.deck.PushTop(e.DrawnCards...)
	case CmdCallOne:
		actor.CalledOne = e.PreCalledOne
	}

	s.declared = e.PreDeclared
	s.pendingDraw = e.PrePendingDraw
	s.nextSkip = e.PreNextSkip
	s.ring.SetClockwise(e.PreClockwise)
	s.ring.SetCurrentIndex(e.PreCurrentIndex)
	return nil
}

func (s *Session) findPlayer(id string) *player.Player {
	for _, p := range s.roster {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// drawN draws n cards to p, transparently refilling the deck from the
// discard pile if it runs out.
func (s *Session) drawN(p *player.Player, n int) []card.Card {
	drawn := make([]card.Card, 0, n)
	for i := 0; i < n; i++ {
		c, ok := s.deck.Draw()
		if !ok {
			top, refilled := s.deck.RefillFrom(s.discard)
			if !refilled {
				break
			}
			s.discard = []card.Card{top}
			c, ok = s.deck.Draw()
			if !ok {
				break
			}
		}
		drawn = append(drawn, c)
	}
	p.Hand.AddAll(drawn)
	p.OnHandSizeChanged()
	return drawn
}

// advanceTurn implements step 7 of the play-card procedure (also reused by
// draw-card and forced advancement): advance once, skip if flagged, resolve
// a stacking-disabled pending draw, then restart the turn timer.
func (s *Session) advanceTurn() []eventbus.Event {
	var events []eventbus.Event

	if s.nextSkip {
		skipped, _ := s.ring.Skip()
		s.nextSkip = false
		events = append(events, eventbus.New(eventbus.PlayerSkipped, eventbus.PlayerSkippedPayload{PlayerID: skipped.ID}))
	} else {
		s.ring.Advance()
	}

	if s.pendingDraw > 0 && !s.cfg.StackingEnabled {
		cur := s.ring.Current()
		n := s.pendingDraw
		drawn := s.drawN(cur, n)
		s.pendingDraw = 0
		events = append(events, eventbus.New(eventbus.CardDrawn, eventbus.CardDrawnPayload{PlayerID: cur.ID, Count: len(drawn), Forced: true}))
		s.ring.Advance()
	}

	s.turnStart = now()
	s.drawnThisTurn = false
	cur := s.ring.Current()
	events = append(events, eventbus.New(eventbus.TurnChanged, eventbus.TurnChangedPayload{
		PlayerID: cur.ID, Deadline: s.TurnDeadline().UnixMilli(),
	}))
	return events
}

// endRound closes out the round. winner may be nil if the round is
// ending with no seats left (every remaining player left).
func (s *Session) endRound(winner *player.Player) []eventbus.Event {
	s.phase = PhaseGameOver
	s.winner = winner

	scores := map[string]int{}
	for _, p := range s.roster {
		if winner != nil && p.ID == winner.ID {
			continue
		}
		total := 0
		for _, c := range p.Hand.Cards() {
			total += c.Points()
		}
		scores[p.ID] = total
		if winner != nil {
			winner.RoundScore += total
		}
	}
	s.scores = scores

	reason := "hand-emptied"
	if winner == nil {
		reason = "no-players-remaining"
	}
	return []eventbus.Event{eventbus.New(eventbus.GameEnded, eventbus.GameEndedPayload{
		WinnerID: winnerID(winner), Scores: scores, Reason: reason,
	})}
}

func winnerID(p *player.Player) string {
	if p == nil {
		return ""
	}
	return p.ID
}
