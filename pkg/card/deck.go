package card

import "math/rand"

// StandardColors lists the four concrete colors in a fixed tie-break order
// (R<Y<G<B), used by the deck builder and by the bot's color-declaration
// heuristic.
var StandardColors = []Color{Red, Yellow, Green, Blue}

// Deck is a mutable stack of cards. Draw takes from the top; cards are
// appended to the bottom during a shuffle-in. Grounded on
// pkg/poker/deck.go's Deck: a slice-backed stack plus an injected *rand.Rand
// so tests and bots can run deterministically off a seed.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewStandardDeck builds the canonical 108-card UNO deck: per color, one
// 0, two each of 1-9, two Skip, two Reverse, two DrawTwo (25 per color),
// plus 4 Wild and 4 WildDrawFour. It is shuffled before being returned.
func NewStandardDeck(rng *rand.Rand) *Deck {
	cards := make([]Card, 0, 108)
	id := 0
	next := func() int {
		id++
		return id
	}

	for _, color := range StandardColors {
		cards = append(cards, NewNumber(next(), color, 0))
		for v := 1; v <= 9; v++ {
			cards = append(cards, NewNumber(next(), color, v))
			cards = append(cards, NewNumber(next(), color, v))
		}
		for i := 0; i < 2; i++ {
			cards = append(cards, NewAction(next(), color, Skip))
			cards = append(cards, NewAction(next(), color, Reverse))
			cards = append(cards, NewAction(next(), color, DrawTwo))
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, NewWild(next(), Wild))
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, NewWild(next(), WildDrawFour))
	}

	d := &Deck{cards: cards, rng: rng}
	d.Shuffle()
	return d
}

// Shuffle randomizes the deck's order in place (uniform permutation via the
// injected RNG's Fisher-Yates shuffle).
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card, or ok=false if the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int { return len(d.cards) }

// ReturnAndReshuffle appends cards to the deck and reshuffles, used by the
// deal procedure to put back a wild card turned up as the would-be first
// discard, reshuffled in before another is drawn.
func (d *Deck) ReturnAndReshuffle(cs ...Card) {
	d.cards = append(d.cards, cs...)
	d.Shuffle()
}

// PushTop restores cards to the top of the deck in the order given, i.e.
// cs[0] ends up on top. Used by command-log undo to rewind a draw without
// reshuffling.
func (d *Deck) PushTop(cs ...Card) {
	d.cards = append(append([]Card{}, cs...), d.cards...)
}

// RefillFrom refills the deck from the discard pile: given the discard
// pile with its current top card (discard[len-1]), it clears any declared
// color on the remaining (non-top) discards, shuffles them into the deck, and
// returns the unchanged top card for the caller to push back. The caller is
// responsible for clearing the discard pile down to just that top card.
func (d *Deck) RefillFrom(discard []Card) (top Card, refilled bool) {
	if len(discard) == 0 {
		return Card{}, false
	}
	top = discard[len(discard)-1]
	rest := discard[:len(discard)-1]

	cleared := make([]Card, len(rest))
	for i, c := range rest {
		cleared[i] = c.WithoutDeclared()
	}
	d.cards = append(d.cards, cleared...)
	d.Shuffle()
	return top, true
}

// AllCards returns a copy of the deck's remaining cards, top first. Used by
// invariant tests that need to account for the full 108-card multiset.
func (d *Deck) AllCards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
