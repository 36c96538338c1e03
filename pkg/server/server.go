// Package server is the HTTP glue: a chi router exposing POST /rooms,
// /ws (websocket upgrade + AUTHENTICATE handshake) and /healthz, wiring each
// connection's transport.Conn to a room's registry.Registry entry and
// scheduler.Scheduler. Adapted from pkg/server/server.go + handlers.go's
// handler-per-command-type dispatch (there: gRPC service methods; here:
// inbound frame types), with the gRPC transport replaced by the websocket
// frame transport of pkg/transport.
package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/decred/slog"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/card"
	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/identity"
	"github.com/unoengine/uno-server/pkg/player"
	"github.com/unoengine/uno-server/pkg/registry"
	"github.com/unoengine/uno-server/pkg/room"
	"github.com/unoengine/uno-server/pkg/scheduler"
	"github.com/unoengine/uno-server/pkg/stats"
	"github.com/unoengine/uno-server/pkg/transport"
)

// roomWorker bundles a room's scheduler with the bus feeding its
// subscribers, so Server can look both up by room code in one place.
type roomWorker struct {
	scheduler *scheduler.Scheduler
	bus       *eventbus.Bus
}

// Server owns the registry of open rooms and the per-room workers driving
// them, and upgrades incoming HTTP connections into transport.Conns.
type Server struct {
	log      slog.Logger
	registry *registry.Registry
	identity identity.Provider
	stats    stats.Sink
	rng      *rand.Rand

	botActionMin, botActionMax time.Duration

	workers  map[string]*roomWorker
	upgrader websocket.Upgrader

	router chi.Router
}

// New builds a Server. idp and sink are the external collaborators; rng
// seeds every room/scheduler/bot created through this server, the same
// injected-determinism discipline as pkg/room/pkg/game.
func New(log slog.Logger, reg *registry.Registry, idp identity.Provider, sink stats.Sink, rng *rand.Rand, botActionMin, botActionMax time.Duration) *Server {
	s := &Server{
		log:          log,
		registry:     reg,
		identity:     idp,
		stats:        sink,
		rng:          rng,
		botActionMin: botActionMin,
		botActionMax: botActionMax,
		workers:      map[string]*roomWorker{},
		upgrader:     websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}

	r := chi.NewRouter()
	r.Get("/ws", s.handleWebsocket)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/rooms", s.handleCreateRoom)
	s.router = r
	return s
}

// Router exposes the chi router for http.ListenAndServe.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// createRoomRequest is the JSON body for POST /rooms. Config fields left
// zero take DefaultConfiguration's value.
type createRoomRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`

	MaxPlayers      int   `json:"maxPlayers"`
	InitialHandSize int   `json:"initialHandSize"`
	TurnTimeSeconds int   `json:"turnTimeSeconds"`
	AllowStacking   *bool `json:"allowStacking"`
	AllowBots       *bool `json:"allowBots"`
	MaxBots         int   `json:"maxBots"`
	PointsToWin     int   `json:"pointsToWin"`
	TournamentMode  bool  `json:"tournamentMode"`
}

type createRoomResponse struct {
	Code string `json:"code"`
}

// handleCreateRoom is the one REST entry point alongside the websocket
// channel: a room must exist in the registry before any client can
// subscribe/join it over /ws.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	cfg := room.DefaultConfiguration()
	if req.MaxPlayers != 0 {
		cfg.MaxPlayers = req.MaxPlayers
	}
	if req.InitialHandSize != 0 {
		cfg.InitialHandSize = req.InitialHandSize
	}
	if req.TurnTimeSeconds != 0 {
		cfg.TurnTimeLimit = time.Duration(req.TurnTimeSeconds) * time.Second
	}
	if req.AllowStacking != nil {
		cfg.AllowStacking = *req.AllowStacking
	}
	if req.AllowBots != nil {
		cfg.AllowBots = *req.AllowBots
	}
	if req.MaxBots != 0 {
		cfg.MaxBots = req.MaxBots
	}
	if req.PointsToWin != 0 {
		cfg.PointsToWin = req.PointsToWin
	}
	cfg.TournamentMode = req.TournamentMode

	code, err := s.CreateRoom(req.Name, req.Private, cfg)
	if err != nil {
		http.Error(w, apperrors.Message(err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createRoomResponse{Code: code})
}

// handleWebsocket upgrades the connection and runs its read/write pumps
// until it drops: one duplex channel per client.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	connID := r.RemoteAddr
	conn := transport.NewConn(connID, ws, s.log)
	sess := &clientSession{conn: conn, server: s, stopPump: make(chan struct{})}

	go conn.WritePump()
	conn.ReadPump(sess.handleFrame)
	sess.cleanup()
}

// clientSession tracks one websocket connection's authenticated identity
// and room subscription across frames.
type clientSession struct {
	conn   *transport.Conn
	server *Server

	playerID string
	nickname string
	email    string
	roomCode string
	sub      *eventbus.Subscriber

	// stopPump is closed once, in cleanup, to retire pumpEvents: the bus
	// never closes a Subscriber's channel (the same *Subscriber may still
	// be registered elsewhere), so the pump must stop on its own signal.
	stopPump chan struct{}
}

func (cs *clientSession) handleFrame(f transport.Frame) {
	s := cs.server
	switch f.Type {
	case transport.FrameAuthenticate:
		cs.authenticate(f.Data)
	case transport.FrameSubscribe:
		cs.subscribe(f.Data)
	case transport.FrameJoinRoom:
		cs.joinRoom(f.Data)
	case transport.FrameStartGame:
		cs.submit(scheduler.Command{Kind: scheduler.CmdStartGame, ActorID: cs.playerID})
	case transport.FramePlayCard:
		cs.playCard(f.Data)
	case transport.FrameDrawCard:
		cs.submit(scheduler.Command{Kind: scheduler.CmdDrawCard, ActorID: cs.playerID})
	case transport.FrameCallOne:
		cs.submit(scheduler.Command{Kind: scheduler.CmdCallOne, ActorID: cs.playerID})
	case transport.FrameCatchOne:
		cs.catchOne(f.Data)
	case transport.FrameAddBot:
		cs.submit(scheduler.Command{Kind: scheduler.CmdAddBot, ActorID: cs.playerID})
	case transport.FrameRemoveBot:
		cs.removeBot(f.Data)
	case transport.FrameKick:
		cs.kick(f.Data)
	case transport.FrameLeaveRoom:
		cs.submit(scheduler.Command{Kind: scheduler.CmdLeave, ActorID: cs.playerID})
	default:
		s.log.Warnf("server: unknown frame type %s from conn %s", f.Type, cs.conn.ID)
	}
}

func (cs *clientSession) authenticate(data json.RawMessage) {
	var p transport.AuthenticatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed authenticate frame"))
		return
	}
	u, err := cs.server.identity.ValidateToken(context.Background(), p.Token)
	if err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidToken, "invalid or expired token"))
		return
	}
	cs.playerID = u.PlayerID
	cs.nickname = u.Nickname
	cs.email = u.Email
	cs.conn.Authenticated = true
	cs.conn.PlayerID = u.PlayerID
}

func (cs *clientSession) subscribe(data json.RawMessage) {
	var p transport.SubscribePayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed subscribe frame"))
		return
	}
	w, ok := cs.server.workers[p.RoomCode]
	if !ok {
		cs.conn.SendError(apperrors.New(apperrors.UnknownRoom, "no such room"))
		return
	}
	if cs.sub != nil {
		w.bus.UnsubscribeRoom(cs.roomCode, cs.sub)
	}
	cs.roomCode = p.RoomCode
	cs.sub = w.bus.SubscribeRoom(p.RoomCode, cs.playerID)
	w.bus.SubscribePlayer(cs.playerID, cs.sub)
	go cs.pumpEvents(cs.sub)
}

func (cs *clientSession) pumpEvents(sub *eventbus.Subscriber) {
	for {
		select {
		case <-cs.stopPump:
			return
		case e := <-sub.Events():
			cs.conn.SendEvent(e)
		}
	}
}

// joinRoom seats the player in a room that CreateRoom already opened,
// through that room's worker; an unknown code is answered with UnknownRoom.
// The first human to join becomes leader.
func (cs *clientSession) joinRoom(data json.RawMessage) {
	var p transport.JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed join frame"))
		return
	}

	s := cs.server
	if _, ok := s.registry.Lookup(p.Code); !ok {
		cs.conn.SendError(apperrors.New(apperrors.UnknownRoom, "no such room"))
		return
	}
	w, ok := s.workers[p.Code]
	if !ok {
		cs.conn.SendError(apperrors.New(apperrors.InternalError, "room has no active worker"))
		return
	}

	res := cs.submitTo(w, scheduler.Command{Kind: scheduler.CmdJoin, Player: player.New(cs.playerID, cs.nickname), Email: cs.email})
	if res.Err != nil {
		cs.conn.SendError(res.Err)
		return
	}
	cs.roomCode = p.Code
	s.registry.SetMember(cs.playerID, p.Code)
}

func (cs *clientSession) playCard(data json.RawMessage) {
	var p transport.PlayCardPayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed play-card frame"))
		return
	}
	declared := card.WildColor
	if p.DeclaredColor != "" {
		var ok bool
		declared, ok = card.ParseColor(p.DeclaredColor)
		if !ok {
			cs.conn.SendError(apperrors.New(apperrors.InvalidState, "unknown declared color"))
			return
		}
	}
	cs.submit(scheduler.Command{
		Kind:          scheduler.CmdPlayCard,
		ActorID:       cs.playerID,
		CardID:        p.CardID,
		DeclaredColor: declared,
		CalledOne:     p.CallOne,
	})
}

func (cs *clientSession) catchOne(data json.RawMessage) {
	var p transport.CatchOnePayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed catch-one frame"))
		return
	}
	cs.submit(scheduler.Command{Kind: scheduler.CmdCatchOne, ActorID: cs.playerID, TargetID: p.TargetPlayerID})
}

func (cs *clientSession) removeBot(data json.RawMessage) {
	var p transport.RemoveBotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed remove-bot frame"))
		return
	}
	cs.submit(scheduler.Command{Kind: scheduler.CmdRemoveBot, ActorID: cs.playerID, TargetID: p.BotID})
}

func (cs *clientSession) kick(data json.RawMessage) {
	var p transport.KickPayload
	if err := json.Unmarshal(data, &p); err != nil {
		cs.conn.SendError(apperrors.New(apperrors.InvalidState, "malformed kick frame"))
		return
	}
	cs.submit(scheduler.Command{Kind: scheduler.CmdKick, ActorID: cs.playerID, TargetID: p.PlayerID})
}

func (cs *clientSession) submit(c scheduler.Command) {
	w, ok := cs.server.workers[cs.roomCode]
	if !ok {
		cs.conn.SendError(apperrors.New(apperrors.UnknownRoom, "not subscribed to a room"))
		return
	}
	res := cs.submitTo(w, c)
	if res.Err != nil {
		cs.conn.SendError(res.Err)
	}
}

func (cs *clientSession) submitTo(w *roomWorker, c scheduler.Command) scheduler.Result {
	c.Done = make(chan scheduler.Result, 1)
	w.scheduler.Submit(c)
	select {
	case res := <-c.Done:
		return res
	case <-time.After(5 * time.Second):
		return scheduler.Result{Err: apperrors.New(apperrors.InternalError, "command timed out")}
	}
}

// cleanup runs the disconnect path when a connection drops: the room
// worker is told so it can arm the grace timer, but the room itself is not
// torn down (the seat is later replaced with a temporary bot).
func (cs *clientSession) cleanup() {
	close(cs.stopPump)
	if cs.sub != nil {
		if w, ok := cs.server.workers[cs.roomCode]; ok {
			w.bus.UnsubscribeRoom(cs.roomCode, cs.sub)
			w.bus.UnsubscribePlayer(cs.playerID, cs.sub)
		}
	}
	if cs.roomCode != "" && cs.playerID != "" {
		cs.submit(scheduler.Command{Kind: scheduler.CmdDisconnect, ActorID: cs.playerID})
	}
}

// CreateRoom allocates a fresh room code, registers the room, and starts
// its scheduler goroutine, returning the code for the creator to join.
func (s *Server) CreateRoom(name string, private bool, cfg room.Configuration) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	code, err := s.registry.GenerateCode()
	if err != nil {
		return "", err
	}
	r := room.New(code, name, private, cfg, s.rng)
	if err := s.registry.Insert(r); err != nil {
		return "", err
	}

	bus := eventbus.New(s.log, 256, 4)
	bus.Start()
	sch := scheduler.New(r, bus, s.log, s.rng)
	sch.SetBotActionDelay(s.botActionMin, s.botActionMax)
	go sch.Run()

	s.workers[code] = &roomWorker{scheduler: sch, bus: bus}
	go s.recordGameEndings(code, bus)
	return code, nil
}

// recordGameEndings forwards each GameEnded event on a room's topic to the
// stats sink, so the engine itself never depends on a storage backend.
func (s *Server) recordGameEndings(code string, bus *eventbus.Bus) {
	sub := bus.SubscribeRoom(code, "stats-sink")
	defer bus.UnsubscribeRoom(code, sub)

	for e := range sub.Events() {
		if e.Type != eventbus.GameEnded {
			continue
		}
		payload, ok := e.Payload.(eventbus.GameEndedPayload)
		if !ok {
			continue
		}
		s.stats.RecordGameEnd(context.Background(), stats.GameResult{
			RoomCode: code,
			WinnerID: payload.WinnerID,
			Scores:   payload.Scores,
			Reason:   payload.Reason,
		})
	}
}

// Shutdown stops every room's scheduler and bus, publishing a final
// GameEnded(reason: "shutdown") event per in-progress room first.
func (s *Server) Shutdown() {
	for code, w := range s.workers {
		r, ok := s.registry.Lookup(code)
		if ok && r.Status() == room.StatusInProgress {
			w.bus.Publish(eventbus.Event{
				Type:     eventbus.GameEnded,
				RoomCode: code,
				Payload:  eventbus.GameEndedPayload{Reason: "shutdown"},
			})
		}
		w.scheduler.Stop()
		w.bus.Stop()
	}
}
