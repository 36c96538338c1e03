package room

import (
	"time"

	"github.com/unoengine/uno-server/pkg/apperrors"
)

// Configuration holds enumerated, validated room options. Rejected
// configurations fail room creation rather than silently clamping.
type Configuration struct {
	MaxPlayers      int
	InitialHandSize int
	TurnTimeLimit   time.Duration
	AllowStacking   bool
	AllowBots       bool
	MaxBots         int
	PointsToWin     int
	TournamentMode  bool
}

// DefaultConfiguration returns the engine-wide defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxPlayers:      4,
		InitialHandSize: 7,
		TurnTimeLimit:   20 * time.Second,
		AllowStacking:   true,
		AllowBots:       true,
		MaxBots:         3,
		PointsToWin:     500,
		TournamentMode:  false,
	}
}

var validPointsToWin = map[int]bool{100: true, 200: true, 500: true}

// Validate enforces the allowed bounds, returning an InvalidState
// apperrors error on the first violation found.
func (c Configuration) Validate() error {
	switch {
	case c.MaxPlayers < 2 || c.MaxPlayers > 4:
		return apperrors.New(apperrors.InvalidState, "max players must be between 2 and 4")
	case c.InitialHandSize < 1 || c.InitialHandSize > 10:
		return apperrors.New(apperrors.InvalidState, "initial hand size must be between 1 and 10")
	case c.TurnTimeLimit < 15*time.Second || c.TurnTimeLimit > 120*time.Second:
		return apperrors.New(apperrors.InvalidState, "turn time limit must be between 15 and 120 seconds")
	case c.MaxBots < 0 || c.MaxBots > 3:
		return apperrors.New(apperrors.InvalidState, "max bots must be between 0 and 3")
	case !validPointsToWin[c.PointsToWin]:
		return apperrors.New(apperrors.InvalidState, "points to win must be 100, 200 or 500")
	default:
		return nil
	}
}
