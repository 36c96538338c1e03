package hand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unoengine/uno-server/pkg/card"
)

func TestAddFindRemove(t *testing.T) {
	h := New()
	c1 := card.NewNumber(1, card.Red, 5)
	c2 := card.NewNumber(2, card.Blue, 7)
	h.Add(c1)
	h.Add(c2)
	require.Equal(t, 2, h.Size())

	found, ok := h.Find(2)
	require.True(t, ok)
	require.Equal(t, c2, found)

	removed, ok := h.Remove(1)
	require.True(t, ok)
	require.Equal(t, c1, removed)
	require.Equal(t, 1, h.Size())

	_, ok = h.Remove(1)
	require.False(t, ok)
}

func TestPlayableSubset(t *testing.T) {
	h := New()
	h.AddAll([]card.Card{
		card.NewNumber(1, card.Red, 5),
		card.NewNumber(2, card.Blue, 9),
		card.NewWild(3, card.Wild),
	})

	top := card.NewNumber(9, card.Green, 5)
	playable := h.Playable(top, card.WildColor)
	require.Len(t, playable, 2) // red 5 (number match) and the wild
}

func TestClear(t *testing.T) {
	h := New()
	h.Add(card.NewNumber(1, card.Red, 5))
	h.Clear()
	require.Equal(t, 0, h.Size())
}

func TestReplace(t *testing.T) {
	h := New()
	w := card.NewWild(1, card.Wild)
	h.Add(w)
	h.Replace(w.WithDeclared(card.Green))

	found, _ := h.Find(1)
	require.Equal(t, card.Green, found.DeclaredColor())
}
