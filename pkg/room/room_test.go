package room

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/eventbus"
	"github.com/unoengine/uno-server/pkg/game"
	"github.com/unoengine/uno-server/pkg/player"
)

func newTestRoom() *Room {
	return New("ABC123", "Test Room", false, DefaultConfiguration(), rand.New(rand.NewSource(1)))
}

func TestJoinFirstHumanBecomesLeader(t *testing.T) {
	r := newTestRoom()
	p1 := player.New("p1", "Alice")
	events, err := r.Join(p1, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "p1", r.LeaderID())
	require.True(t, p1.IsLeader)

	var sawLeadership bool
	for _, e := range events {
		require.Equal(t, "ABC123", e.RoomCode)
		if e.Type == eventbus.LeadershipTransferred {
			sawLeadership = true
		}
	}
	require.True(t, sawLeadership)
}

func TestJoinRejectsWhenFull(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.MaxPlayers = 2
	r := New("ABC123", "Test", false, cfg, rand.New(rand.NewSource(1)))
	_, err := r.Join(player.New("p1", "A"), "")
	require.NoError(t, err)
	_, err = r.Join(player.New("p2", "B"), "")
	require.NoError(t, err)
	_, err = r.Join(player.New("p3", "C"), "")
	require.Equal(t, apperrors.RoomFull, apperrors.KindOf(err))
}

func TestJoinRejectsKickedEmail(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join(player.New("p1", "A"), "a@x.com")
	require.NoError(t, err)
	_, err = r.Join(player.New("p2", "B"), "b@x.com")
	require.NoError(t, err)
	_, err = r.Kick("p1", "p2")
	require.NoError(t, err)

	_, err = r.Join(player.New("p2-again", "B"), "b@x.com")
	require.Equal(t, apperrors.Kicked, apperrors.KindOf(err))
}

func TestKickRejectsNonLeader(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")

	_, err := r.Kick("p2", "p1")
	require.Equal(t, apperrors.NotLeader, apperrors.KindOf(err))
}

func TestKickCannotTargetLeader(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")

	_, err := r.Kick("p1", "p1")
	require.Equal(t, apperrors.InvalidState, apperrors.KindOf(err))
}

func TestLeaveTransfersLeadership(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")

	_, err := r.Leave("p1")
	require.NoError(t, err)
	require.Equal(t, "p2", r.LeaderID())
}

func TestLeaveLastHumanMarksRemoved(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")

	_, err := r.Leave("p1")
	require.NoError(t, err)
	require.True(t, r.Removed())
}

func TestAddBotRequiresLeader(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")

	_, _, err := r.AddBot("p2")
	require.Equal(t, apperrors.NotLeader, apperrors.KindOf(err))

	bot, events, err := r.AddBot("p1")
	require.NoError(t, err)
	require.NotNil(t, bot)
	require.Len(t, events, 1)
	require.Equal(t, 1, len(r.Bots()))
}

func TestAddBotRespectsMaxBots(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.MaxBots = 1
	r := New("ABC123", "Test", false, cfg, rand.New(rand.NewSource(1)))
	r.Join(player.New("p1", "A"), "")

	_, _, err := r.AddBot("p1")
	require.NoError(t, err)
	_, _, err = r.AddBot("p1")
	require.Equal(t, apperrors.RoomFull, apperrors.KindOf(err))
}

func TestStartGameRequiresTwoSeats(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")

	_, err := r.StartGame("p1")
	require.Equal(t, apperrors.InvalidState, apperrors.KindOf(err))
}

func TestStartGameTransitionsToInProgress(t *testing.T) {
	r := newTestRoom()
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")

	events, err := r.StartGame("p1")
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, r.Status())
	require.NotNil(t, r.Session)

	var sawStarted bool
	for _, e := range events {
		require.Equal(t, r.Session.ID, e.SessionID)
		if e.Type == eventbus.GameStarted {
			sawStarted = true
		}
	}
	require.True(t, sawStarted)
}

func TestLeaveDuringPlayingConvertsToTemporaryBot(t *testing.T) {
	r := newTestRoom()
	p1 := player.New("p1", "A")
	p2 := player.New("p2", "B")
	r.Join(p1, "")
	r.Join(p2, "")
	_, err := r.StartGame("p1")
	require.NoError(t, err)

	current := r.Session.CurrentPlayer().ID
	_, err = r.Leave(current)
	require.NoError(t, err)

	require.Equal(t, 2, r.SeatCount())
	require.Len(t, r.Bots(), 1)
	require.False(t, r.Removed())
}

func TestLeaveDuringTournamentModeRemovesSeatEntirely(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.TournamentMode = true
	r := New("ABC123", "Test", false, cfg, rand.New(rand.NewSource(1)))
	r.Join(player.New("p1", "A"), "")
	r.Join(player.New("p2", "B"), "")
	_, err := r.StartGame("p1")
	require.NoError(t, err)

	_, err = r.Leave("p2")
	require.NoError(t, err)
	require.Equal(t, game.PhaseGameOver, r.Session.Phase())
}

func TestResetForNewRoundDropsTemporaryBotsAndClearsHands(t *testing.T) {
	r := newTestRoom()
	p1 := player.New("p1", "A")
	p2 := player.New("p2", "B")
	r.Join(p1, "")
	r.Join(p2, "")
	_, err := r.StartGame("p1")
	require.NoError(t, err)

	current := r.Session.CurrentPlayer().ID
	_, err = r.Leave(current)
	require.NoError(t, err)

	r.status = StatusFinished
	r.ResetForNewRound()

	require.Equal(t, StatusWaiting, r.Status())
	require.Nil(t, r.Session)
	require.Len(t, r.Bots(), 0)
	for _, h := range r.Humans() {
		require.Equal(t, 0, h.Hand.Size())
	}
}
