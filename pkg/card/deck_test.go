package card

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStandardDeckHas108Cards(t *testing.T) {
	d := NewStandardDeck(rand.New(rand.NewSource(1)))
	require.Equal(t, 108, d.Size())

	counts := map[Variant]int{}
	colorCounts := map[Color]int{}
	for _, c := range d.AllCards() {
		counts[c.Variant()]++
		if c.IntrinsicColor().IsConcrete() {
			colorCounts[c.IntrinsicColor()]++
		}
	}
	require.Equal(t, 4, counts[Wild])
	require.Equal(t, 4, counts[WildDrawFour])
	for _, c := range StandardColors {
		require.Equal(t, 25, colorCounts[c])
	}
}

func TestDrawEmptiesDeck(t *testing.T) {
	d := NewStandardDeck(rand.New(rand.NewSource(2)))
	drawn := 0
	for {
		_, ok := d.Draw()
		if !ok {
			break
		}
		drawn++
	}
	require.Equal(t, 108, drawn)
	require.Equal(t, 0, d.Size())
}

func TestRefillFromPreservesTopAndClearsDeclaredColors(t *testing.T) {
	d := NewStandardDeck(rand.New(rand.NewSource(3)))
	for d.Size() > 0 {
		d.Draw()
	}

	wild := NewWild(1, Wild).WithDeclared(Blue)
	discard := []Card{
		NewNumber(2, Red, 3),
		NewWild(4, WildDrawFour).WithDeclared(Green),
		wild, // top of discard
	}

	top, ok := d.RefillFrom(discard)
	require.True(t, ok)
	require.Equal(t, wild.ID(), top.ID())
	require.Equal(t, Blue, top.DeclaredColor()) // caller decides whether to clear the top

	require.Equal(t, 2, d.Size())
	for _, c := range d.AllCards() {
		require.Equal(t, WildColor, c.DeclaredColor())
	}
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	d1 := NewStandardDeck(rand.New(rand.NewSource(42)))
	d2 := NewStandardDeck(rand.New(rand.NewSource(42)))
	require.Equal(t, d1.AllCards(), d2.AllCards())
}
