// Package registry implements the process-wide room registry: a concurrent
// map of rooms keyed by code, with atomic insert-if-absent code allocation
// and per-room back-references by member.
package registry

import (
	"math/rand"
	"sync"

	"github.com/unoengine/uno-server/pkg/apperrors"
	"github.com/unoengine/uno-server/pkg/room"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6
const codeGenerationAttempts = 64

// Registry is the process-wide room index. The only structure in this
// engine accessed across room workers, so it owns its own lock;
// individual Rooms never do.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*room.Room
	memberOf map[string]string // playerID -> room code, for back-reference lookups
	rng      *rand.Rand
	rngMu    sync.Mutex
}

// New creates an empty registry.
func New(rng *rand.Rand) *Registry {
	return &Registry{
		rooms:    map[string]*room.Room{},
		memberOf: map[string]string{},
		rng:      rng,
	}
}

// GenerateCode produces a uniform random 6-character code over
// [A-Z,0-9], retrying on collision.
func (reg *Registry) GenerateCode() (string, error) {
	for i := 0; i < codeGenerationAttempts; i++ {
		code := reg.randomCode()
		reg.mu.RLock()
		_, exists := reg.rooms[code]
		reg.mu.RUnlock()
		if !exists {
			return code, nil
		}
	}
	return "", apperrors.New(apperrors.RoomCodeCollision, "exhausted code generation attempts")
}

func (reg *Registry) randomCode() string {
	reg.rngMu.Lock()
	defer reg.rngMu.Unlock()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[reg.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Insert adds r under its own Code, atomically, failing if the code is
// already taken (insert-if-absent).
func (reg *Registry) Insert(r *room.Room) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[r.Code]; exists {
		return apperrors.New(apperrors.RoomCodeCollision, "room code already registered")
	}
	reg.rooms[r.Code] = r
	return nil
}

// Lookup returns the room for code, if any.
func (reg *Registry) Lookup(code string) (*room.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// Remove deletes code from the registry; a code is only ever released this
// way: a code is released only when the room is removed.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
	for pid, c := range reg.memberOf {
		if c == code {
			delete(reg.memberOf, pid)
		}
	}
}

// SetMember records that playerID is currently seated in the room at code,
// for per-room back-reference lookups.
func (reg *Registry) SetMember(playerID, code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.memberOf[playerID] = code
}

// ClearMember removes a player's back-reference, e.g. on Leave.
func (reg *Registry) ClearMember(playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.memberOf, playerID)
}

// RoomOf returns the room code a player is currently seated in, if any.
func (reg *Registry) RoomOf(playerID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	code, ok := reg.memberOf[playerID]
	return code, ok
}

// Len returns the number of active rooms. The registry enforces no
// max-rooms-per-process limit.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// All returns a snapshot slice of every active room, e.g. for graceful
// shutdown, when a GameEnded{reason:"shutdown"} is published per room.
func (reg *Registry) All() []*room.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}
