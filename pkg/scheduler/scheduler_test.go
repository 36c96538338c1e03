package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/game"
	"github.com/unoengine/uno-server/pkg/player"
	"github.com/unoengine/uno-server/pkg/room"
)

func newTestScheduler(t *testing.T) (*Scheduler, *room.Room, *eventbus.Bus) {
	t.Helper()
	cfg := room.DefaultConfiguration()
	cfg.TurnTimeLimit = 15 * time.Second
	r := room.New("ABC123", "Test", false, cfg, rand.New(rand.NewSource(1)))

	bus := eventbus.New(slog.Disabled, 32, 2)
	bus.Start()
	t.Cleanup(bus.Stop)

	s := New(r, bus, slog.Disabled, rand.New(rand.NewSource(2)))
	s.SetBotActionDelay(5*time.Millisecond, 10*time.Millisecond)
	go s.Run()
	t.Cleanup(s.Stop)

	return s, r, bus
}

func submitAndWait(t *testing.T, s *Scheduler, c Command) Result {
	t.Helper()
	c.Done = make(chan Result, 1)
	s.Submit(c)
	select {
	case r := <-c.Done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command result")
		return Result{}
	}
}

func TestSchedulerJoinAndStartGame(t *testing.T) {
	s, r, _ := newTestScheduler(t)

	res := submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p1", "Alice")})
	require.NoError(t, res.Err)
	res = submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p2", "Bob")})
	require.NoError(t, res.Err)

	res = submitAndWait(t, s, Command{Kind: CmdStartGame, ActorID: "p1"})
	require.NoError(t, res.Err)
	require.Equal(t, room.StatusInProgress, r.Status())
}

func TestSchedulerDrivesBotTurns(t *testing.T) {
	s, r, _ := newTestScheduler(t)
	s.SetBotActionDelay(5*time.Millisecond, 10*time.Millisecond)

	submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p1", "Alice")})
	addRes := submitAndWait(t, s, Command{Kind: CmdAddBot, ActorID: "p1"})
	require.NoError(t, addRes.Err)
	startRes := submitAndWait(t, s, Command{Kind: CmdStartGame, ActorID: "p1"})
	require.NoError(t, startRes.Err)

	botID := r.Bots()[0].ID

	// p1 (human) always starts current, since Start() builds the ring from
	// humans-then-bots. Draw on its behalf until either the bot becomes
	// current (the turn advanced past it) or the game ends.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.Session == nil || r.Session.Phase() != game.PhasePlaying {
			break
		}
		cur := r.Session.CurrentPlayer()
		if cur == nil {
			break
		}
		if cur.ID == botID {
			break
		}
		submitAndWait(t, s, Command{Kind: CmdDrawCard, ActorID: cur.ID})
	}

	time.Sleep(100 * time.Millisecond) // let the bot timer's artificial delay elapse

	if r.Session != nil && r.Session.Phase() == game.PhasePlaying {
		require.NotEqual(t, botID, r.Session.CurrentPlayer().ID, "bot should have acted and yielded the turn")
	}
}

func TestSchedulerDisconnectAndReconnect(t *testing.T) {
	s, r, _ := newTestScheduler(t)

	submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p1", "Alice")})
	submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p2", "Bob")})
	startRes := submitAndWait(t, s, Command{Kind: CmdStartGame, ActorID: "p1"})
	require.NoError(t, startRes.Err)

	current := r.Session.CurrentPlayer().ID
	res := submitAndWait(t, s, Command{Kind: CmdDisconnect, ActorID: current})
	require.NoError(t, res.Err)
	require.Equal(t, player.ConnDisconnected, r.Session.CurrentPlayer().ConnectionStatus())

	res = submitAndWait(t, s, Command{Kind: CmdReconnect, ActorID: current})
	require.NoError(t, res.Err)
	require.Equal(t, player.ConnConnected, r.Session.CurrentPlayer().ConnectionStatus())
}

func TestDisconnectTimerNotArmedInTournamentMode(t *testing.T) {
	cfg := room.DefaultConfiguration()
	cfg.TournamentMode = true
	r := room.New("ABC123", "Test", false, cfg, rand.New(rand.NewSource(1)))
	bus := eventbus.New(slog.Disabled, 32, 2)
	bus.Start()
	defer bus.Stop()

	s := New(r, bus, slog.Disabled, rand.New(rand.NewSource(2)))
	go s.Run()
	defer s.Stop()

	submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p1", "Alice")})
	submitAndWait(t, s, Command{Kind: CmdJoin, Player: player.New("p2", "Bob")})
	submitAndWait(t, s, Command{Kind: CmdStartGame, ActorID: "p1"})

	current := r.Session.CurrentPlayer().ID
	res := submitAndWait(t, s, Command{Kind: CmdDisconnect, ActorID: current})
	require.NoError(t, res.Err)
	require.Len(t, s.disconnectTimers, 0)
}
