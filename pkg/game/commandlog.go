package game

import (
	"github.com/unoengine/uno-server/pkg/card"
)

// Command names the kind of move a LogEntry records.
type Command int

const (
	CmdPlayCard Command = iota
	CmdDrawCard
	CmdCallOne
)

// LogEntry carries enough pre-command state to reverse exactly one step:
// the pre-play top card, the actor's own card reference (the card played,
// or the cards drawn), and the session-wide fields a command may have
// mutated — a narrow snapshot scoped to only what undo needs, rather than a
// full state clone.
type LogEntry struct {
	Command  Command
	ActorID  string
	PreTop   card.Card
	PlayedCard card.Card   // CmdPlayCard: the exact card removed from hand, pre-declare
	DrawnCards []card.Card // CmdDrawCard: cards drawn, top-of-deck first

	PreDeclared     card.Color
	PreClockwise    bool
	PrePendingDraw  int
	PreNextSkip     bool
	PreCurrentIndex int
	PreCalledOne    bool

	// Advanced is true if turn advancement occurred as part of this
	// command; the log is sealed immediately afterward and such an entry
	// can never be undone.
	Advanced bool
}

// CommandLog is the per-session append-only record of undoable commands.
// It holds every
// entry recorded since the last seal, but only the most recent is ever
// eligible for undo.
type CommandLog struct {
	entries []LogEntry
}

// NewCommandLog creates an empty log.
func NewCommandLog() *CommandLog {
	return &CommandLog{}
}

// Record appends an entry.
func (l *CommandLog) Record(e LogEntry) {
	l.entries = append(l.entries, e)
}

// Seal discards the log's contents; called whenever turn advancement
// occurs, after which undo no longer applies across the boundary.
func (l *CommandLog) Seal() {
	l.entries = nil
}

// PopLast removes and returns the most recently recorded entry, if any.
func (l *CommandLog) PopLast() (LogEntry, bool) {
	if len(l.entries) == 0 {
		return LogEntry{}, false
	}
	e := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return e, true
}

// Empty reports whether the log currently holds no undoable entries.
func (l *CommandLog) Empty() bool {
	return len(l.entries) == 0
}
