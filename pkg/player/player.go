// Package player implements the Player model: identity, hand, round score,
// and connection status. Hand and per-round flags are owned by the Session
// that deals them out; identity fields (id, nickname) are read-mostly and
// shared across a player's lifetime.
package player

import (
	"fmt"

	"github.com/unoengine/uno-server/pkg/hand"
	"github.com/unoengine/uno-server/pkg/statemachine"
)

// Kind distinguishes a human player from an AI opponent.
type Kind int

const (
	Human Kind = iota
	Bot
)

// The Conn* constants name the connection states; used by CurrentName()
// comparisons instead of repeated string literals.
const (
	ConnConnected      = "CONNECTED"
	ConnDisconnected   = "DISCONNECTED"
	ConnReconnecting   = "RECONNECTING"
	ConnReplacedByBot  = "REPLACED_BY_BOT"
)

// ConnStateFn is the connection-status state function type, specialized
// from pkg/statemachine's generic pattern. Directly adapted from
// pkg/poker/player.go's AT_TABLE/IN_GAME/FOLDED/ALL_IN/LEFT state functions:
// here the states are the connection-status enum instead of in-hand
// betting status.
type ConnStateFn = statemachine.StateFn[Player]

// Player is a participant in a room: a stable identity plus the per-round
// state a Session deals out and mutates.
type Player struct {
	ID       string
	Nickname string
	Kind     Kind

	// IdentityUserID is the optional external identity-service user id this
	// player is associated with; empty for anonymous/guest play.
	IdentityUserID string

	// Email is the identity-resolved email used by the room's kicked-email
	// set; empty for anonymous/guest play, in which case a kick is tracked
	// by player id only.
	Email string

	Hand       *hand.Hand
	RoundScore int
	IsLeader   bool
	CalledOne  bool

	// TemporaryFor holds the ID of the human player this bot temporarily
	// replaces, for temporary bots created by a disconnect; empty for
	// permanent/lobby-added bots and for human players.
	TemporaryFor string

	conn *statemachine.StateMachine[Player]
}

// New creates a connected human player.
func New(id, nickname string) *Player {
	p := &Player{ID: id, Nickname: nickname, Kind: Human, Hand: hand.New()}
	p.conn = statemachine.NewStateMachine(p, connStateConnected)
	p.conn.Dispatch(nil)
	return p
}

// NewBot creates a bot player. replacesPlayerID is non-empty for a temporary
// bot created to cover a disconnected human.
func NewBot(id, nickname, replacesPlayerID string) *Player {
	p := &Player{ID: id, Nickname: nickname, Kind: Bot, Hand: hand.New(), TemporaryFor: replacesPlayerID}
	p.conn = statemachine.NewStateMachine(p, connStateConnected)
	p.conn.Dispatch(nil)
	return p
}

// IsTemporaryBot reports whether this is a bot standing in for a
// disconnected human.
func (p *Player) IsTemporaryBot() bool {
	return p.Kind == Bot && p.TemporaryFor != ""
}

// ConnectionStatus returns the current connection-status state name.
func (p *Player) ConnectionStatus() string {
	return p.conn.CurrentName()
}

// SetDisconnected transitions a connected/reconnecting player to disconnected.
func (p *Player) SetDisconnected() {
	p.conn.SetState(connStateDisconnected)
}

// SetReconnecting transitions a disconnected player into the reconnecting
// window (the grace period is owned by the scheduler, not this state).
func (p *Player) SetReconnecting() {
	p.conn.SetState(connStateReconnecting)
}

// SetConnected transitions to Connected, e.g. after a successful
// reconnection within the grace period.
func (p *Player) SetConnected() {
	p.conn.SetState(connStateConnected)
}

// SetReplacedByBot transitions to the terminal Replaced-by-Bot state: the
// disconnect grace expired and a temporary bot took the seat.
func (p *Player) SetReplacedByBot() {
	p.conn.SetState(connStateReplacedByBot)
}

func connStateConnected(p *Player, cb func(string, statemachine.StateEvent)) ConnStateFn {
	if cb != nil {
		cb(ConnConnected, statemachine.StateEntered)
	}
	return connStateConnected
}

func connStateDisconnected(p *Player, cb func(string, statemachine.StateEvent)) ConnStateFn {
	if cb != nil {
		cb(ConnDisconnected, statemachine.StateEntered)
	}
	return connStateDisconnected
}

func connStateReconnecting(p *Player, cb func(string, statemachine.StateEvent)) ConnStateFn {
	if cb != nil {
		cb(ConnReconnecting, statemachine.StateEntered)
	}
	return connStateReconnecting
}

func connStateReplacedByBot(p *Player, cb func(string, statemachine.StateEvent)) ConnStateFn {
	if cb != nil {
		cb(ConnReplacedByBot, statemachine.StateEntered)
	}
	return nil // terminal for this seat; a fresh Player is created for the bot
}

// ResetForNewRound clears per-round hand and flags while preserving
// identity, leader status and round score.
func (p *Player) ResetForNewRound() {
	p.Hand = hand.New()
	p.CalledOne = false
}

// OnHandSizeChanged clears CalledOne whenever the hand size is no longer 1:
// the called-ONE flag only holds while the hand has exactly one card.
func (p *Player) OnHandSizeChanged() {
	if p.Hand.Size() != 1 {
		p.CalledOne = false
	}
}

func (p *Player) String() string {
	return fmt.Sprintf("Player{%s %q kind=%d conn=%s}", p.ID, p.Nickname, p.Kind, p.ConnectionStatus())
}
