// Package transport implements the client transport: one duplex channel
// per client over a websocket connection, carrying JSON
// {type, data} framed messages. Grounded on the idiomatic gorilla/websocket
// read-pump/write-pump split (ping/pong keepalive, bounded message size,
// single writer goroutine per connection) used throughout the retrieved
// websocket-based game servers (e.g. memory-feast-online's internal/ws.Hub
// caller in internal/game/room.go).
package transport

import (
	"encoding/json"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/eventbus"
)

// FrameType names an inbound or outbound frame's wire type.
type FrameType string

// Inbound frame types.
const (
	FrameAuthenticate FrameType = "AUTHENTICATE"
	FrameSubscribe    FrameType = "SUBSCRIBE"
	FramePlayCard     FrameType = "PLAY_CARD"
	FrameDrawCard     FrameType = "DRAW_CARD"
	FrameCallOne      FrameType = "CALL_ONE"
	FrameCatchOne     FrameType = "CATCH_ONE"
	FrameAddBot       FrameType = "ADD_BOT"
	FrameRemoveBot    FrameType = "REMOVE_BOT"
	FrameKick         FrameType = "KICK"
	FrameJoinRoom     FrameType = "JOIN_ROOM"
	FrameLeaveRoom    FrameType = "LEAVE_ROOM"
	FrameStartGame    FrameType = "START_GAME"
)

// FrameError is the one outbound frame type that isn't a domain event.
const FrameError FrameType = "ERROR"

// Frame is the wire envelope: a type tag plus its opaque JSON payload.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound command payloads.
type AuthenticatePayload struct {
	Token string `json:"token"`
}

type SubscribePayload struct {
	RoomCode string `json:"roomCode"`
}

type PlayCardPayload struct {
	CardID        int    `json:"cardId"`
	DeclaredColor string `json:"declaredColor,omitempty"`
	CallOne       bool   `json:"callOne,omitempty"`
}

type CatchOnePayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

type JoinRoomPayload struct {
	Code string `json:"code"`
}

type RemoveBotPayload struct {
	BotID string `json:"botId"`
}

type KickPayload struct {
	PlayerID string `json:"playerId"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

// Conn is a single client's duplex channel: a websocket connection plus the
// read/write pumps that keep it non-blocking for the room worker publishing
// to it.
type Conn struct {
	ID   string
	ws   *websocket.Conn
	log  slog.Logger
	send chan Frame

	// Authenticated is set once a valid Authenticate frame has been
	// received; until then only Authenticate frames are accepted.
	Authenticated bool

	PlayerID string
}

// NewConn wraps an accepted websocket connection.
func NewConn(id string, ws *websocket.Conn, log slog.Logger) *Conn {
	return &Conn{ID: id, ws: ws, log: log, send: make(chan Frame, sendBufferSize)}
}

// Send enqueues a frame for delivery, dropping it if the connection's
// buffer is full (a slow client, not a reason to block the publisher).
func (c *Conn) Send(f Frame) {
	select {
	case c.send <- f:
	default:
		if c.log != nil {
			c.log.Warnf("transport: send buffer full for conn %s, dropping frame %s", c.ID, f.Type)
		}
	}
}

// SendEvent marshals a domain event into an outbound frame of the same
// name as its Type and enqueues it.
func (c *Conn) SendEvent(e eventbus.Event) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		if c.log != nil {
			c.log.Errorf("transport: failed to marshal event %s for conn %s: %v", e.Type, c.ID, err)
		}
		return
	}
	c.Send(Frame{Type: FrameType(e.Type), Data: data})
}

// SendError enqueues an Error frame.
func (c *Conn) SendError(err error) {
	kind := apperrors.KindOf(err)
	data, _ := json.Marshal(eventbus.ErrorPayload{Code: string(kind), Message: err.Error()})
	c.Send(Frame{Type: FrameError, Data: data})
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// ReadPump reads inbound frames until the connection closes, handing each
// to handle. Must run in its own goroutine; returns when the connection
// drops. The room worker never performs I/O directly — that's this
// transport's job.
func (c *Conn) ReadPump(handle func(Frame)) {
	defer c.ws.Close()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.SendError(apperrors.New(apperrors.InvalidState, "malformed frame"))
			continue
		}
		if !c.Authenticated && f.Type != FrameAuthenticate {
			c.SendError(apperrors.New(apperrors.AuthRequired, "authenticate before sending other frames"))
			continue
		}
		handle(f)
	}
}

// WritePump drains Send and the periodic ping from a single goroutine, the
// only writer on this connection (gorilla/websocket connections are not
// safe for concurrent writes).
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
