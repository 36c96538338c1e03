package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/card"
	"github.com/unoengine/uno-server/pkg/player"
)

// allCardIDs collects every card id currently held by the session (deck,
// discard, and every seat's hand), for the multiset-conservation check.
func allCardIDs(s *Session) []int {
	var ids []int
	for _, c := range s.deck.AllCards() {
		ids = append(ids, c.ID())
	}
	for _, c := range s.discard {
		ids = append(ids, c.ID())
	}
	for _, p := range s.roster {
		for _, c := range p.Hand.Cards() {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

func requireFullStandardDeck(t *testing.T, s *Session) {
	t.Helper()
	ids := allCardIDs(s)
	require.Len(t, ids, 108)
	seen := make(map[int]bool, 108)
	for _, id := range ids {
		require.False(t, seen[id], "card id %d appears twice", id)
		seen[id] = true
	}
	for id := 1; id <= 108; id++ {
		require.True(t, seen[id], "card id %d missing", id)
	}
}

func requireTopColorInvariant(t *testing.T, s *Session) {
	t.Helper()
	top, ok := s.TopCard()
	if !ok {
		return
	}
	if top.Variant().IsWild() {
		require.True(t, s.DeclaredColor().IsConcrete(), "wild top must carry a declared color")
	} else {
		require.False(t, s.DeclaredColor().IsConcrete(), "non-wild top must not carry a declared color")
	}
}

// TestInvariantsHoldAcrossRandomPlay drives a session through a long
// sequence of randomly chosen legal plays/draws and checks invariants
// after every single command: the full 108-card multiset is
// conserved, exactly one player is current while Playing, and a wild top
// always (only) carries a declared color.
func TestInvariantsHoldAcrossRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	players := []*player.Player{
		player.New("p1", "A"),
		player.New("p2", "B"),
		player.New("p3", "C"),
		player.New("p4", "D"),
	}
	cfg := Config{InitialHandSize: 7, TurnTimeLimit: 20 * time.Second, StackingEnabled: true}
	s := NewSession("sess-prop", players, cfg, rng)

	_, err := s.Start()
	require.NoError(t, err)
	requireFullStandardDeck(t, s)
	requireTopColorInvariant(t, s)

	for i := 0; i < 500 && s.Phase() == PhasePlaying; i++ {
		cur := s.CurrentPlayer()
		require.NotNil(t, cur, "exactly one player must be current while Playing")

		top, _ := s.TopCard()
		hand := cur.Hand.Cards()
		pending := s.PendingDraw()
		var legal []card.Card
		for _, c := range hand {
			if !card.CanPlayOn(top, s.DeclaredColor(), c) {
				continue
			}
			if pending > 0 && c.Variant() != card.DrawTwo && c.Variant() != card.WildDrawFour {
				continue
			}
			legal = append(legal, c)
		}

		if len(legal) == 0 {
			_, err := s.DrawCard(cur.ID)
			require.NoError(t, err)
		} else {
			choice := legal[rng.Intn(len(legal))]
			declared := card.WildColor
			if choice.Variant().IsWild() {
				declared = card.StandardColors[rng.Intn(len(card.StandardColors))]
			}
			_, err := s.PlayCard(cur.ID, choice.ID(), declared, true)
			require.NoError(t, err)
		}

		requireFullStandardDeck(t, s)
		requireTopColorInvariant(t, s)
		if s.Phase() == PhasePlaying {
			require.NotNil(t, s.CurrentPlayer())
		}
	}
}

// TestLawApplyThenUndoIsNoopOnVisibleState is a round-trip law: for a
// command sequence with undo supported (here: a voluntary draw immediately
// playable, which by the draw-card procedure leaves the turn open for
// a follow-up play instead of advancing), apply then undo leaves deck
// order, discard contents, hand contents, direction, pending-draw and the
// current player exactly as they were.
func TestLawApplyThenUndoIsNoopOnVisibleState(t *testing.T) {
	p1 := player.New("p1", "A")
	p2 := player.New("p2", "B")
	p1.Hand.Add(card.NewNumber(1, card.Blue, 2))
	p2.Hand.Add(card.NewNumber(2, card.Green, 7))
	s := newTestSession(t, testConfig(), p1, p2)
	s.discard = []card.Card{card.NewNumber(9000, card.Red, 9)}
	s.deck.PushTop(card.NewNumber(9001, card.Red, 3)) // playable on Red 9: the draw won't advance the turn

	preDeck := append([]card.Card{}, s.deck.AllCards()...)
	preDiscard := append([]card.Card{}, s.discard...)
	preP1Hand := append([]card.Card{}, p1.Hand.Cards()...)
	preDeclared := s.DeclaredColor()
	preClockwise := s.ring.Clockwise()
	prePending := s.PendingDraw()
	preCurrent := s.CurrentPlayer().ID

	_, err := s.DrawCard("p1")
	require.NoError(t, err)
	require.Equal(t, 2, p1.Hand.Size(), "sanity: the draw must have actually changed state")
	require.Equal(t, preCurrent, s.CurrentPlayer().ID, "an immediately-playable draw must not advance the turn")

	require.NoError(t, s.Undo("p1"))

	require.Equal(t, preDeck, s.deck.AllCards())
	require.Equal(t, preDiscard, s.discard)
	require.Equal(t, preP1Hand, p1.Hand.Cards())
	require.Equal(t, preDeclared, s.DeclaredColor())
	require.Equal(t, preClockwise, s.ring.Clockwise())
	require.Equal(t, prePending, s.PendingDraw())
	require.Equal(t, preCurrent, s.CurrentPlayer().ID)
}

// TestBoundaryCallOneRejectedOnWrongHandSize is a boundary case: calling ONE
// on a hand of size != 1 is rejected with CannotCallOne.
func TestBoundaryCallOneRejectedOnWrongHandSize(t *testing.T) {
	p1 := player.New("p1", "A")
	p2 := player.New("p2", "B")
	p1.Hand.AddAll([]card.Card{card.NewNumber(1, card.Red, 1), card.NewNumber(2, card.Red, 2)})
	p2.Hand.AddAll([]card.Card{card.NewNumber(3, card.Blue, 3)})
	s := newTestSession(t, testConfig(), p1, p2)

	_, err := s.CallOne("p1")
	require.Error(t, err)
	require.Equal(t, apperrors.CannotCallOne, apperrors.KindOf(err))
}
