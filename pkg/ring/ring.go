// Package ring implements the Turn Ring: a circular, bidirectional
// collection of seats with a "current" cursor and a direction flag. Cursor
// moves are O(1); the removal and replacement operations are O(n). This is an array-backed
// structure owned by the Session — never a web of pointers between Player
// objects, which are shared across a player's lifetime independent of any
// one game.
package ring

// Ring is a circular ordered collection of elements of type T, identified
// for RemoveByID purposes by a caller-supplied id extractor.
type Ring[T any] struct {
	seats     []T
	idOf      func(T) string
	current   int
	clockwise bool
}

// New creates a Ring over seats in the given order, starting clockwise with
// the first seat current. Re-initialized fresh at each session start from
// the room's roster.
func New[T any](seats []T, idOf func(T) string) *Ring[T] {
	cp := make([]T, len(seats))
	copy(cp, seats)
	return &Ring[T]{seats: cp, idOf: idOf, current: 0, clockwise: true}
}

// Len returns the number of seats in the ring.
func (r *Ring[T]) Len() int { return len(r.seats) }

// Clockwise reports the current direction.
func (r *Ring[T]) Clockwise() bool { return r.clockwise }

// Current returns the seat at the cursor.
func (r *Ring[T]) Current() T { return r.seats[r.current] }

// CurrentIndex returns the cursor's index, for callers that need to restore
// it (e.g. command-log undo).
func (r *Ring[T]) CurrentIndex() int { return r.current }

// SetCurrentIndex forces the cursor to idx, used by undo to restore a
// pre-command snapshot.
func (r *Ring[T]) SetCurrentIndex(idx int) { r.current = idx % len(r.seats) }

// SetClockwise forces the direction, used by undo.
func (r *Ring[T]) SetClockwise(clockwise bool) { r.clockwise = clockwise }

func (r *Ring[T]) step(count int) int {
	n := len(r.seats)
	delta := count
	if !r.clockwise {
		delta = -count
	}
	idx := ((r.current+delta)%n + n) % n
	return idx
}

// PeekNext returns the seat the ring would land on after one Advance,
// without moving the cursor.
func (r *Ring[T]) PeekNext() T {
	return r.seats[r.step(1)]
}

// Advance moves the cursor one seat in the current direction and returns
// the new current seat.
func (r *Ring[T]) Advance() T {
	r.current = r.step(1)
	return r.seats[r.current]
}

// Reverse flips the direction flag. The cursor does not move.
func (r *Ring[T]) Reverse() {
	r.clockwise = !r.clockwise
}

// Skip advances twice, returning the seat that was skipped over (the one
// landed on after the first advance).
func (r *Ring[T]) Skip() (skipped T, newCurrent T) {
	r.current = r.step(1)
	skipped = r.seats[r.current]
	r.current = r.step(1)
	newCurrent = r.seats[r.current]
	return skipped, newCurrent
}

// RemoveCurrent removes the seat at the cursor and returns it. The cursor
// advances in the current direction to what was the next seat; if the ring
// becomes empty, subsequent Current/Advance calls will panic (callers must
// check Len()).
func (r *Ring[T]) RemoveCurrent() T {
	removed := r.seats[r.current]
	n := len(r.seats)
	if n == 1 {
		r.seats = nil
		r.current = 0
		return removed
	}

	next := r.step(1)
	newSeats := make([]T, 0, n-1)
	for i := 0; i < n; i++ {
		if i == r.current {
			continue
		}
		newSeats = append(newSeats, r.seats[i])
	}

	// Recompute the cursor: find the seat that used to be at index `next`
	// (unless it was r.current itself, i.e. n was already 1, handled above).
	nextID := r.idOf(r.seats[next])
	r.seats = newSeats
	for i, s := range r.seats {
		if r.idOf(s) == nextID {
			r.current = i
			break
		}
	}
	return removed
}

// RemoveByID removes the seat with the given id, wherever it is in the
// ring (O(n)). If it was the current seat, the cursor behaves as in
// RemoveCurrent. Returns ok=false if no such seat exists.
func (r *Ring[T]) RemoveByID(id string) (removed T, ok bool) {
	for i, s := range r.seats {
		if r.idOf(s) == id {
			wasCurrent := i == r.current
			if wasCurrent {
				return r.RemoveCurrent(), true
			}
			removed = s
			currentID := r.idOf(r.seats[r.current])
			newSeats := append(append([]T{}, r.seats[:i]...), r.seats[i+1:]...)
			r.seats = newSeats
			for j, s2 := range r.seats {
				if r.idOf(s2) == currentID {
					r.current = j
					break
				}
			}
			return removed, true
		}
	}
	var zero T
	return zero, false
}

// ReplaceByID swaps the value stored at the seat identified by id for
// newVal, leaving position and cursor untouched. Used when a disconnected
// player's seat is taken over by a temporary bot without disturbing turn
// order. Returns false if id isn't present.
func (r *Ring[T]) ReplaceByID(id string, newVal T) bool {
	for i, s := range r.seats {
		if r.idOf(s) == id {
			r.seats[i] = newVal
			return true
		}
	}
	return false
}

// Seats returns a copy of the ring's seats in ring order starting from
// index 0 (not necessarily the current seat).
func (r *Ring[T]) Seats() []T {
	out := make([]T, len(r.seats))
	copy(out, r.seats)
	return out
}
