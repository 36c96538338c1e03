// Package config loads the process-wide defaults: turn-timer default,
// disconnect-grace default, bot-action-delay range, max rooms per process,
// max concurrent connections, and listen address. An internal toml-tagged
// struct is decoded with github.com/BurntSushi/toml and copied onto a
// defaulted public struct, with flags registered for command-line
// overrides. Per-room Configuration (pkg/room.Configuration) is validated
// at room-creation time and is not influenced by this file.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// fileFormat is the toml-decodable shape of the config file on disk.
type fileFormat struct {
	Listen string `toml:"listen"`
	Turn   struct {
		TimeLimitSeconds uint `toml:"time_limit_seconds"`
	} `toml:"turn"`
	Disconnect struct {
		GraceSeconds uint `toml:"grace_seconds"`
	} `toml:"disconnect"`
	Bot struct {
		ActionDelayMinMs uint `toml:"action_delay_min_ms"`
		ActionDelayMaxMs uint `toml:"action_delay_max_ms"`
	} `toml:"bot"`
	Limits struct {
		MaxRooms       uint `toml:"max_rooms"`
		MaxConnections uint `toml:"max_connections"`
	} `toml:"limits"`
	Log struct {
		DebugLevel string `toml:"debug_level"`
		File       string `toml:"file"`
	} `toml:"log"`
}

// Config is the resolved, ready-to-use process configuration.
// cmd/unoserver applies ListenAddr, BotActionMin/BotActionMax and the log
// settings. TurnTimeLimit, DisconnectGrace, MaxRooms and MaxConnections
// are loaded and overridable, but no component reads them: a room's turn
// limit comes from its room.Configuration, the reconnection window is
// room.DisconnectGrace, and no room or connection cap is enforced.
type Config struct {
	ListenAddr string

	TurnTimeLimit   time.Duration
	DisconnectGrace time.Duration
	BotActionMin    time.Duration
	BotActionMax    time.Duration

	MaxRooms       uint
	MaxConnections uint

	LogDebugLevel string
	LogFile       string
}

// Default returns the values used when no config file is present and no
// flags override them.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		TurnTimeLimit:   30 * time.Second,
		DisconnectGrace: 30 * time.Second,
		BotActionMin:    800 * time.Millisecond,
		BotActionMax:    1500 * time.Millisecond,
		MaxRooms:        1000,
		MaxConnections:  10000,
		LogDebugLevel:   "info",
	}
}

// Load reads r (toml) and overlays it onto Default().
func Load(r io.Reader) (Config, error) {
	var data fileFormat
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	c := Default()
	if data.Listen != "" {
		c.ListenAddr = data.Listen
	}
	if data.Turn.TimeLimitSeconds > 0 {
		c.TurnTimeLimit = time.Duration(data.Turn.TimeLimitSeconds) * time.Second
	}
	if data.Disconnect.GraceSeconds > 0 {
		c.DisconnectGrace = time.Duration(data.Disconnect.GraceSeconds) * time.Second
	}
	if data.Bot.ActionDelayMinMs > 0 {
		c.BotActionMin = time.Duration(data.Bot.ActionDelayMinMs) * time.Millisecond
	}
	if data.Bot.ActionDelayMaxMs > 0 {
		c.BotActionMax = time.Duration(data.Bot.ActionDelayMaxMs) * time.Millisecond
	}
	if data.Limits.MaxRooms > 0 {
		c.MaxRooms = data.Limits.MaxRooms
	}
	if data.Limits.MaxConnections > 0 {
		c.MaxConnections = data.Limits.MaxConnections
	}
	if data.Log.DebugLevel != "" {
		c.LogDebugLevel = data.Log.DebugLevel
	}
	if data.Log.File != "" {
		c.LogFile = data.Log.File
	}
	return c, nil
}

// LoadFile opens path and loads it, returning Default() unchanged if path
// is empty or the file doesn't exist (matching conf.Load's fallback when
// the default config file is absent).
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// RegisterFlags binds command-line overrides onto c. Call after LoadFile
// so flags take priority over the file, then call flag.Parse().
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "address to listen on")
	fs.DurationVar(&c.TurnTimeLimit, "turn-time-limit", c.TurnTimeLimit, "per-turn time limit")
	fs.DurationVar(&c.DisconnectGrace, "disconnect-grace", c.DisconnectGrace, "grace period before a disconnected seat becomes a bot")
	fs.DurationVar(&c.BotActionMin, "bot-action-delay-min", c.BotActionMin, "minimum artificial bot thinking delay")
	fs.DurationVar(&c.BotActionMax, "bot-action-delay-max", c.BotActionMax, "maximum artificial bot thinking delay")
	fs.UintVar(&c.MaxRooms, "max-rooms", c.MaxRooms, "maximum number of concurrently open rooms")
	fs.UintVar(&c.MaxConnections, "max-connections", c.MaxConnections, "maximum number of concurrent client connections")
	fs.StringVar(&c.LogDebugLevel, "debuglevel", c.LogDebugLevel, "logging level: trace, debug, info, warn, error")
	fs.StringVar(&c.LogFile, "logfile", c.LogFile, "optional additional log file path")
}
