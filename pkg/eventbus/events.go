// Package eventbus implements a topic-based fan-out of immutable domain
// events to subscribed transports, backed by a worker-pool Bus.
package eventbus

import "time"

// Type enumerates the domain event types a room can publish.
type Type string

const (
	PlayerJoined          Type = "PlayerJoined"
	PlayerLeft            Type = "PlayerLeft"
	LeadershipTransferred Type = "LeadershipTransferred"
	PlayerKicked          Type = "PlayerKicked"
	RoomStateChanged      Type = "RoomStateChanged"
	GameStarted           Type = "GameStarted"
	CardPlayed            Type = "CardPlayed"
	CardDrawn             Type = "CardDrawn"
	OneCalled             Type = "OneCalled"
	OnePenalty            Type = "OnePenalty"
	TurnChanged           Type = "TurnChanged"
	DirectionReversed     Type = "DirectionReversed"
	PlayerSkipped         Type = "PlayerSkipped"
	ColorChanged          Type = "ColorChanged"
	PlayerDisconnected    Type = "PlayerDisconnected"
	PlayerReconnected     Type = "PlayerReconnected"
	GamePaused            Type = "GamePaused"
	GameResumed           Type = "GameResumed"
	GameEnded             Type = "GameEnded"
	HandSnapshot          Type = "HandSnapshot" // personal-queue only, never broadcast
	ErrorEvent            Type = "Error"
)

// Event is an immutable domain event. RoomCode and SessionID are set by the
// publisher (Room/Scheduler), not by whichever component raises the event,
// so Session code never needs to know its own room's code.
type Event struct {
	Type      Type
	Timestamp int64 // milliseconds since epoch
	RoomCode  string
	SessionID string
	// TargetPlayerID routes an event to that player's personal queue only;
	// empty for events broadcast to the whole room topic (PlayerKicked
	// included). Error replies go straight to the connection, not the bus.
	TargetPlayerID string
	Payload        any
}

// NowMillis is a package-level var so tests can freeze time; production code
// always uses the default.
var NowMillis = func() int64 { return time.Now().UnixMilli() }
