// Package hand implements a player's card collection: O(1) append, O(n)
// find/remove by id, and the "playable subset" query used both for UI hints
// and bot card selection.
package hand

import "github.com/unoengine/uno-server/pkg/card"

// Hand is an ordered sequence of cards.
type Hand struct {
	cards []card.Card
}

// New creates an empty hand, as dealt at player join.
func New() *Hand {
	return &Hand{}
}

// Add appends a card to the hand.
func (h *Hand) Add(c card.Card) {
	h.cards = append(h.cards, c)
}

// AddAll appends multiple cards, e.g. for a deal or a draw of several cards.
func (h *Hand) AddAll(cs []card.Card) {
	h.cards = append(h.cards, cs...)
}

// Size returns the number of cards held.
func (h *Hand) Size() int { return len(h.cards) }

// Cards returns a copy of the hand's cards in order.
func (h *Hand) Cards() []card.Card {
	out := make([]card.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Find returns the card with the given id and whether it was found.
func (h *Hand) Find(id int) (card.Card, bool) {
	for _, c := range h.cards {
		if c.ID() == id {
			return c, true
		}
	}
	return card.Card{}, false
}

// Remove removes the card with the given id, returning it and whether it
// was present.
func (h *Hand) Remove(id int) (card.Card, bool) {
	for i, c := range h.cards {
		if c.ID() == id {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return c, true
		}
	}
	return card.Card{}, false
}

// Replace swaps the card with the given id for an updated copy (e.g. a wild
// card after WithDeclared). No-op if the id isn't present.
func (h *Hand) Replace(updated card.Card) {
	for i, c := range h.cards {
		if c.ID() == updated.ID() {
			h.cards[i] = updated
			return
		}
	}
}

// Clear empties the hand on round reset.
func (h *Hand) Clear() {
	h.cards = nil
}

// Playable returns the subset of the hand that is legal to play against the
// given discard top and declared color, in hand order.
func (h *Hand) Playable(top card.Card, declared card.Color) []card.Card {
	var out []card.Card
	for _, c := range h.cards {
		if card.CanPlayOn(top, declared, c) {
			out = append(out, c)
		}
	}
	return out
}
