// Package room implements Room: lobby membership, leadership, bot seats,
// the kicked-email set, and the room's lifecycle status, including
// bridging member commands into its owned GameSession. Structurally a
// single mutex-free-by-contract struct owning players/config/lifecycle
// flags, driven by exactly one goroutine at a time.
package room

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/card"
	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/game"
	"github.com/unoengine/uno-server/pkg/player"
)

// Status is the Room lifecycle status.
type Status int

const (
	StatusWaiting Status = iota
	StatusStarting
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusStarting:
		return "Starting"
	case StatusInProgress:
		return "InProgress"
	case StatusFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// DisconnectGrace is the default reconnection window.
const DisconnectGrace = 30 * time.Second

// Room is a single game room.
type Room struct {
	Code    string
	Name    string
	Private bool
	Config  Configuration

	humans []*player.Player // join order; humans[0] is the first to join
	bots   []*player.Player

	kicked   map[string]struct{} // emails (player ids for guests), lifetime of the room
	leaderID string
	status   Status

	Session *game.Session

	rng *rand.Rand

	// removed is set once the room has no humans left and should be torn
	// down by whatever owns the registry lookup.
	removed bool
}

// New creates an empty Waiting room. cfg must already have passed
// Validate.
func New(code, name string, private bool, cfg Configuration, rng *rand.Rand) *Room {
	return &Room{
		Code:    code,
		Name:    name,
		Private: private,
		Config:  cfg,
		kicked:  map[string]struct{}{},
		status:  StatusWaiting,
		rng:     rng,
	}
}

// Status returns the room's lifecycle status.
func (r *Room) Status() Status { return r.status }

// LeaderID returns the current leader's player id, or "" if none.
func (r *Room) LeaderID() string { return r.leaderID }

// Removed reports whether the room should be torn down: once no humans
// remain, the room is scheduled for removal.
func (r *Room) Removed() bool { return r.removed }

// Humans returns the human roster in join order.
func (r *Room) Humans() []*player.Player { return append([]*player.Player{}, r.humans...) }

// Bots returns the bot roster.
func (r *Room) Bots() []*player.Player { return append([]*player.Player{}, r.bots...) }

// SeatCount returns the total occupied seats (humans + bots).
func (r *Room) SeatCount() int { return len(r.humans) + len(r.bots) }

func (r *Room) stamp(events []eventbus.Event) []eventbus.Event {
	sessionID := ""
	if r.Session != nil {
		sessionID = r.Session.ID
	}
	for i := range events {
		events[i].RoomCode = r.Code
		events[i].SessionID = sessionID
	}
	return events
}

// Join seats a player in the room.
func (r *Room) Join(p *player.Player, email string) ([]eventbus.Event, error) {
	if r.status != StatusWaiting {
		return nil, apperrors.New(apperrors.InvalidState, "room is not accepting new players")
	}
	if r.SeatCount() >= r.Config.MaxPlayers {
		return nil, apperrors.New(apperrors.RoomFull, "room is full")
	}
	if email != "" {
		if _, kicked := r.kicked[email]; kicked {
			return nil, apperrors.New(apperrors.Kicked, "this player was kicked from the room")
		}
	}
	if _, kicked := r.kicked[p.ID]; kicked {
		return nil, apperrors.New(apperrors.Kicked, "this player was kicked from the room")
	}
	for _, h := range r.humans {
		if h.ID == p.ID {
			return nil, apperrors.New(apperrors.AlreadyJoined, "already joined this room")
		}
	}

	p.Email = email
	r.humans = append(r.humans, p)

	events := []eventbus.Event{eventbus.New(eventbus.PlayerJoined, eventbus.PlayerJoinedPayload{
		PlayerID: p.ID, Nickname: p.Nickname, IsBot: false,
	})}
	if r.leaderID == "" {
		r.leaderID = p.ID
		p.IsLeader = true
		events = append(events, eventbus.New(eventbus.LeadershipTransferred, eventbus.LeadershipTransferredPayload{NewLeaderID: p.ID}))
	}
	return r.stamp(events), nil
}

// Leave removes a player from the room.
func (r *Room) Leave(playerID string) ([]eventbus.Event, error) {
	var events []eventbus.Event
	wasLeader := playerID == r.leaderID
	midRound := r.status == StatusInProgress || r.status == StatusStarting

	if midRound && !r.Config.TournamentMode {
		// Non-tournament: the seat is converted to a temporary bot instead
		// of vacated, so turn order and hand contents survive untouched.
		bot := player.NewBot(uuid.NewString(), "Bot", playerID)
		if r.Session != nil {
			r.Session.ReplaceSeat(playerID, bot)
		}
		r.removeFromRoster(playerID)
		r.bots = append(r.bots, bot)
		events = append(events,
			eventbus.New(eventbus.PlayerLeft, eventbus.PlayerLeftPayload{PlayerID: playerID, ReplacedBot: true}),
			eventbus.New(eventbus.PlayerJoined, eventbus.PlayerJoinedPayload{PlayerID: bot.ID, Nickname: bot.Nickname, IsBot: true}),
		)
	} else {
		r.removeFromRoster(playerID)
		if midRound && r.Session != nil {
			sessEvents, err := r.Session.Leave(playerID)
			if err != nil {
				return nil, err
			}
			events = append(events, sessEvents...)
			r.syncAfterSessionCommand()
		}
		events = append(events, eventbus.New(eventbus.PlayerLeft, eventbus.PlayerLeftPayload{PlayerID: playerID, ReplacedBot: false}))
	}

	if wasLeader {
		r.transferLeadership()
		if r.leaderID != "" {
			events = append(events, eventbus.New(eventbus.LeadershipTransferred, eventbus.LeadershipTransferredPayload{NewLeaderID: r.leaderID}))
		}
	}
	if r.countHumanSeats() == 0 {
		r.removed = true
	}
	return r.stamp(events), nil
}

// countHumanSeats counts seats still held by a genuine (non-bot) human.
func (r *Room) countHumanSeats() int {
	n := 0
	for _, h := range r.humans {
		if h.Kind == player.Human {
			n++
		}
	}
	return n
}

// removeFromRoster drops playerID from whichever lobby roster holds it.
func (r *Room) removeFromRoster(id string) {
	for i, h := range r.humans {
		if h.ID == id {
			r.humans = append(r.humans[:i], r.humans[i+1:]...)
			return
		}
	}
	for i, b := range r.bots {
		if b.ID == id {
			r.bots = append(r.bots[:i], r.bots[i+1:]...)
			return
		}
	}
}

func (r *Room) transferLeadership() {
	for _, h := range r.humans {
		if h.Kind == player.Human {
			r.leaderID = h.ID
			h.IsLeader = true
			return
		}
	}
	r.leaderID = ""
}

// Kick forcibly removes a player and bans their identity from rejoining.
func (r *Room) Kick(actorID, targetID string) ([]eventbus.Event, error) {
	if actorID != r.leaderID {
		return nil, apperrors.New(apperrors.NotLeader, "only the leader may kick")
	}
	if targetID == r.leaderID {
		return nil, apperrors.New(apperrors.InvalidState, "the leader cannot be kicked")
	}
	target := r.findAny(targetID)
	if target == nil {
		return nil, apperrors.New(apperrors.UnknownRoom, "player is not in this room")
	}
	if target.Email != "" {
		r.kicked[target.Email] = struct{}{}
	} else {
		r.kicked[target.ID] = struct{}{}
	}

	leaveEvents, err := r.Leave(targetID)
	if err != nil {
		return nil, err
	}
	events := append([]eventbus.Event{eventbus.New(eventbus.PlayerKicked, eventbus.PlayerKickedPayload{PlayerID: targetID})}, leaveEvents...)
	return r.stamp(events), nil
}

func (r *Room) findAny(id string) *player.Player {
	for _, h := range r.humans {
		if h.ID == id {
			return h
		}
	}
	for _, b := range r.bots {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AddBot adds a bot seat. Only the leader may add one, only while
// Waiting, and only when allow-bots is true and the current bot count is
// below max bots.
func (r *Room) AddBot(actorID string) (*player.Player, []eventbus.Event, error) {
	if actorID != r.leaderID {
		return nil, nil, apperrors.New(apperrors.NotLeader, "only the leader may add a bot")
	}
	if r.status != StatusWaiting {
		return nil, nil, apperrors.New(apperrors.InvalidState, "bots may only be added while Waiting")
	}
	if !r.Config.AllowBots {
		return nil, nil, apperrors.New(apperrors.InvalidState, "bots are not allowed in this room")
	}
	if len(r.bots) >= r.Config.MaxBots {
		return nil, nil, apperrors.New(apperrors.RoomFull, "max bot count reached")
	}
	if r.SeatCount() >= r.Config.MaxPlayers {
		return nil, nil, apperrors.New(apperrors.RoomFull, "room is full")
	}

	bot := player.NewBot(uuid.NewString(), botName(len(r.bots)+1), "")
	r.bots = append(r.bots, bot)
	events := []eventbus.Event{eventbus.New(eventbus.PlayerJoined, eventbus.PlayerJoinedPayload{PlayerID: bot.ID, Nickname: bot.Nickname, IsBot: true})}
	return bot, r.stamp(events), nil
}

func botName(n int) string {
	names := []string{"", "Bot 1", "Bot 2", "Bot 3"}
	if n < len(names) {
		return names[n]
	}
	return "Bot"
}

// RemoveBot removes a lobby-added bot seat; only while Waiting.
func (r *Room) RemoveBot(actorID, botID string) ([]eventbus.Event, error) {
	if actorID != r.leaderID {
		return nil, apperrors.New(apperrors.NotLeader, "only the leader may remove a bot")
	}
	if r.status != StatusWaiting {
		return nil, apperrors.New(apperrors.InvalidState, "bots may only be removed while Waiting")
	}
	for i, b := range r.bots {
		if b.ID == botID {
			r.bots = append(r.bots[:i], r.bots[i+1:]...)
			return r.stamp([]eventbus.Event{eventbus.New(eventbus.PlayerLeft, eventbus.PlayerLeftPayload{PlayerID: botID})}), nil
		}
	}
	return nil, apperrors.New(apperrors.UnknownRoom, "no such bot seat")
}

// StartGame starts a round: leader-only, Waiting, requires >=2 seats.
func (r *Room) StartGame(actorID string) ([]eventbus.Event, error) {
	if actorID != r.leaderID {
		return nil, apperrors.New(apperrors.NotLeader, "only the leader may start the game")
	}
	if r.status != StatusWaiting {
		return nil, apperrors.New(apperrors.InvalidState, "room is not Waiting")
	}
	if r.SeatCount() < 2 {
		return nil, apperrors.New(apperrors.InvalidState, "at least 2 seats are required to start")
	}

	r.status = StatusStarting
	roster := append(append([]*player.Player{}, r.humans...), r.bots...)
	cfg := game.Config{
		InitialHandSize: r.Config.InitialHandSize,
		TurnTimeLimit:   r.Config.TurnTimeLimit,
		StackingEnabled: r.Config.AllowStacking,
		TournamentMode:  r.Config.TournamentMode,
	}
	r.Session = game.NewSession(uuid.NewString(), roster, cfg, r.rng)
	events, err := r.Session.Start()
	if err != nil {
		r.status = StatusWaiting
		r.Session = nil
		return nil, err
	}
	r.status = StatusInProgress
	return r.stamp(append([]eventbus.Event{eventbus.New(eventbus.RoomStateChanged, eventbus.RoomStateChangedPayload{Status: r.status.String()})}, events...)), nil
}

// PlayCard, DrawCard, CallOne, CatchOne, Pause and Resume forward directly
// to the active Session, stamping room/session ids onto its events; Room
// itself enforces only that a session exists.
func (r *Room) PlayCard(actorID string, cardID int, declaredColor card.Color, calledOne bool) ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.PlayCard(actorID, cardID, declaredColor, calledOne)
	if err != nil {
		return nil, err
	}
	r.syncAfterSessionCommand()
	return r.stamp(events), nil
}

func (r *Room) DrawCard(actorID string) ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.DrawCard(actorID)
	if err != nil {
		return nil, err
	}
	r.syncAfterSessionCommand()
	return r.stamp(events), nil
}

func (r *Room) CallOne(actorID string) ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.CallOne(actorID)
	if err != nil {
		return nil, err
	}
	return r.stamp(events), nil
}

func (r *Room) CatchOne(actorID, targetID string) ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.CatchOne(actorID, targetID)
	if err != nil {
		return nil, err
	}
	return r.stamp(events), nil
}

func (r *Room) Pause() ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.Pause()
	if err != nil {
		return nil, err
	}
	return r.stamp(events), nil
}

func (r *Room) Resume() ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.Resume()
	if err != nil {
		return nil, err
	}
	return r.stamp(events), nil
}

// ForceAdvance forwards the scheduler's turn-timer-expiry hook to the
// active Session.
func (r *Room) ForceAdvance() ([]eventbus.Event, error) {
	if r.Session == nil {
		return nil, apperrors.New(apperrors.InvalidState, "no active game")
	}
	events, err := r.Session.ForceAdvance()
	if err != nil {
		return nil, err
	}
	r.syncAfterSessionCommand()
	return r.stamp(events), nil
}

// Disconnect marks a human player disconnected, for the scheduler's
// disconnect-grace timer.
func (r *Room) Disconnect(playerID string) ([]eventbus.Event, error) {
	p := r.findAny(playerID)
	if p == nil {
		return nil, apperrors.New(apperrors.UnknownRoom, "player is not in this room")
	}
	p.SetDisconnected()
	return r.stamp([]eventbus.Event{eventbus.New(eventbus.PlayerDisconnected, eventbus.PlayerDisconnectedPayload{PlayerID: playerID})}), nil
}

// Reconnect restores Connected status within the grace window.
func (r *Room) Reconnect(playerID string) ([]eventbus.Event, error) {
	p := r.findAny(playerID)
	if p == nil {
		return nil, apperrors.New(apperrors.UnknownRoom, "player is not in this room")
	}
	p.SetConnected()
	return r.stamp([]eventbus.Event{eventbus.New(eventbus.PlayerReconnected, eventbus.PlayerReconnectedPayload{PlayerID: playerID})}), nil
}

// syncAfterSessionCommand notices when the session has moved to GameOver
// and reflects that as the room's own Finished status.
func (r *Room) syncAfterSessionCommand() {
	if r.Session != nil && r.Session.Phase() == game.PhaseGameOver {
		r.status = StatusFinished
	}
}

// ResetForNewRound starts a new round in the same room: drops the
// session, clears hands/flags, and removes temporary bots from their
// seats, restoring their departed humans' absence (they are not revived).
func (r *Room) ResetForNewRound() {
	if r.status != StatusFinished {
		return
	}
	for _, h := range r.humans {
		h.ResetForNewRound()
	}

	keptBots := make([]*player.Player, 0, len(r.bots))
	for _, b := range r.bots {
		if b.IsTemporaryBot() {
			continue // departed human's seat; dropped, not revived
		}
		b.ResetForNewRound()
		keptBots = append(keptBots, b)
	}
	r.bots = keptBots

	r.Session = nil
	r.status = StatusWaiting
}
