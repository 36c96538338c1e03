// Package bot implements the bot driver: a pure, deterministic
// priority function that chooses a card (and declared color, and whether to
// call ONE) for an AI-controlled seat. It never touches a Session directly —
// the scheduler invokes Decide and feeds the result back through the same
// command path a human client would use.
package bot

import (
	"math/rand"

	"github.com/unoengine/uno-server/pkg/card"
)

// Decision is what the bot driver wants to do on its turn.
type Decision struct {
	// Draw is true when no legal card is available and the bot must draw
	// instead of playing.
	Draw bool

	// CardID is the chosen card's id (meaningless when Draw is true).
	CardID int

	// DeclaredColor is set only when the chosen card is a wild.
	DeclaredColor card.Color

	// CallOne marks a call of ONE with this play. Decide leaves it false;
	// the call-ONE roll is ShouldCallOne, which the caller makes itself.
	CallOne bool
}

const callOneProbability = 0.9

// Decide implements a fixed priority order over hand against the current
// discard top and declared color. strictWildDrawFour gates step 1 by the
// tournament-mode WildDrawFour legality rule; it should be false outside
// tournament mode. rng drives tie-breaking among equally ranked candidates
// (the call-ONE roll is ShouldCallOne, not Decide), and must be supplied by the caller so
// Decide stays pure and deterministic given (hand, top, declared color,
// RNG seed).
func Decide(hand []card.Card, top card.Card, declared card.Color, strictWildDrawFour bool, rng *rand.Rand) Decision {
	effective := declared
	if !effective.IsConcrete() {
		effective = top.EffectiveColor()
	}

	if c, ok := firstOfVariant(hand, card.WildDrawFour); ok {
		if !strictWildDrawFour || card.StrictWildDrawFourLegal(hand, effective) {
			return Decision{CardID: c.ID(), DeclaredColor: declareColor(hand)}
		}
	}

	if c, ok := firstMatchingColorVariant(hand, card.DrawTwo, effective); ok {
		return Decision{CardID: c.ID()}
	}

	if c, ok := firstMatchingColorVariant(hand, card.Skip, effective); ok {
		return Decision{CardID: c.ID()}
	}
	if c, ok := firstMatchingColorVariant(hand, card.Reverse, effective); ok {
		return Decision{CardID: c.ID()}
	}

	if c, ok := firstOfVariant(hand, card.Wild); ok {
		return Decision{CardID: c.ID(), DeclaredColor: declareColor(hand)}
	}

	if c, ok := highestValueMatchingColor(hand, effective); ok {
		return Decision{CardID: c.ID()}
	}

	legal := legalCandidates(hand, top, declared)
	if len(legal) == 0 {
		return Decision{Draw: true}
	}
	return Decision{CardID: legal[rng.Intn(len(legal))].ID()}
}

// ShouldCallOne rolls the call-ONE probability.
func ShouldCallOne(rng *rand.Rand) bool {
	return rng.Float64() < callOneProbability
}

func legalCandidates(hand []card.Card, top card.Card, declared card.Color) []card.Card {
	var out []card.Card
	for _, c := range hand {
		if card.CanPlayOn(top, declared, c) {
			out = append(out, c)
		}
	}
	return out
}

func firstOfVariant(hand []card.Card, v card.Variant) (card.Card, bool) {
	for _, c := range hand {
		if c.Variant() == v {
			return c, true
		}
	}
	return card.Card{}, false
}

func firstMatchingColorVariant(hand []card.Card, v card.Variant, effective card.Color) (card.Card, bool) {
	for _, c := range hand {
		if c.Variant() == v && c.IntrinsicColor() == effective {
			return c, true
		}
	}
	return card.Card{}, false
}

func highestValueMatchingColor(hand []card.Card, effective card.Color) (card.Card, bool) {
	best, found := card.Card{}, false
	for _, c := range hand {
		if c.Variant().IsWild() {
			continue
		}
		if c.IntrinsicColor() != effective {
			continue
		}
		if !found || c.Points() > best.Points() {
			best, found = c, true
		}
	}
	return best, found
}

// colorOrder gives the R<Y<G<B tie-break order.
var colorOrder = []card.Color{card.Red, card.Yellow, card.Green, card.Blue}

// declareColor picks the most-frequent non-wild color in hand, tie-broken
// R<Y<G<B; falls back to Red if the hand holds no non-wild cards (an empty
// hand has nothing to call color on anyway, but callers always hold the
// wild they're about to play).
func declareColor(hand []card.Card) card.Color {
	counts := map[card.Color]int{}
	for _, c := range hand {
		if c.Variant().IsWild() {
			continue
		}
		counts[c.IntrinsicColor()]++
	}

	best := card.Red
	bestCount := -1
	for _, col := range colorOrder {
		if counts[col] > bestCount {
			best, bestCount = col, counts[col]
		}
	}
	return best
}
