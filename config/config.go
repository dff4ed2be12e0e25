package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"time"
)

// ErrInvalid is returned for option values rejected at configuration time.
var ErrInvalid = errors.New("invalid configuration")

// Defaults mirror the documented option defaults.
const (
	DefaultDismissDelay    = 5 * time.Second
	DefaultMaxPaneHeight   = 5
	DefaultScrollbackLines = 1000
)

// Config holds the options that shape pane behaviour.
type Config struct {
	EraseOnUpdate   bool
	AudibleAlert    bool
	RaiseOnUpdate   bool
	DismissDelay    time.Duration // 0 = disabled
	MaxPaneHeight   int
	ScrollbackLines int // 0 = unbounded
	DropOnExit      bool
	UsePTY          bool
	Unsplittable    bool
	Exempt          []string // glob patterns matched against stream keys
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		EraseOnUpdate:   true,
		DismissDelay:    DefaultDismissDelay,
		MaxPaneHeight:   DefaultMaxPaneHeight,
		ScrollbackLines: DefaultScrollbackLines,
	}
}

// Validate rejects values the core cannot honour.
func (c Config) Validate() error {
	if c.MaxPaneHeight < 0 {
		return fmt.Errorf("%w: max_pane_height %d is negative", ErrInvalid, c.MaxPaneHeight)
	}
	if c.DismissDelay < 0 {
		return fmt.Errorf("%w: dismiss_delay %s is negative", ErrInvalid, c.DismissDelay)
	}
	if c.ScrollbackLines < 0 {
		return fmt.Errorf("%w: scrollback_lines %d is negative", ErrInvalid, c.ScrollbackLines)
	}
	for _, pattern := range c.Exempt {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: exempt pattern %q: %v", ErrInvalid, pattern, err)
		}
	}
	return nil
}

// DismissEnabled reports whether idle panes are removed automatically.
func (c Config) DismissEnabled() bool {
	return c.DismissDelay > 0
}

// IsExempt reports whether a stream key matches one of the exempt patterns.
// Patterns are tried against the full key and its base name.
func (c Config) IsExempt(key string) bool {
	base := filepath.Base(key)
	for _, pattern := range c.Exempt {
		if ok, _ := path.Match(pattern, key); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Dir returns the tailpane configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "tailpane")
}

// StateDir returns the directory for the log file.
// Respects XDG_STATE_HOME, falling back to ~/.local/state.
func StateDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(Dir(), "state")
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "tailpane")
}

// File returns the path to config.toml.
func File() string {
	return filepath.Join(Dir(), "config.toml")
}

// InitFile returns the path to init.lua
func InitFile() string {
	return filepath.Join(Dir(), "init.lua")
}
