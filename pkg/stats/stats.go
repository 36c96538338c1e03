// Package stats defines the external statistics-sink contract: GameEnded
// results are reported to whatever system tracks player records (a
// leaderboard, a win/loss ledger) without the engine knowing its storage.
// The same contract-owned-by-engine shape as pkg/identity, applied to a
// narrower write-only concern.
package stats

import (
	"context"
	"sync"
)

// GameResult is what the engine reports when a round or match concludes.
type GameResult struct {
	RoomCode string
	WinnerID string
	Scores   map[string]int // playerID -> points at end of round/match
	Reason   string         // "hand-emptied", "no-players-remaining", "shutdown"
}

// Sink records completed games. A production deployment backs this with a
// persistent store; this package ships only the contract plus an in-memory
// stand-in for development and tests.
type Sink interface {
	RecordGameEnd(ctx context.Context, result GameResult) error
}

// MemorySink accumulates results in process memory, useful for local runs
// and assertions in tests.
type MemorySink struct {
	mu      sync.Mutex
	results []GameResult
	wins    map[string]int
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{wins: map[string]int{}}
}

// RecordGameEnd implements Sink.
func (m *MemorySink) RecordGameEnd(ctx context.Context, result GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	if result.WinnerID != "" {
		m.wins[result.WinnerID]++
	}
	return nil
}

// Results returns a copy of every recorded result, in recording order.
func (m *MemorySink) Results() []GameResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GameResult, len(m.results))
	copy(out, m.results)
	return out
}

// Wins returns the number of times playerID has been recorded as a winner.
func (m *MemorySink) Wins(playerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wins[playerID]
}
