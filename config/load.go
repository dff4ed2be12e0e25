package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk shape. Pointers distinguish "unset" from zero.
type fileConfig struct {
	EraseOnUpdate   *bool    `toml:"erase_on_update"`
	AudibleAlert    *bool    `toml:"audible_alert"`
	RaiseOnUpdate   *bool    `toml:"raise_on_update"`
	DismissDelay    any      `toml:"dismiss_delay"`
	MaxPaneHeight   *int     `toml:"max_pane_height"`
	ScrollbackLines *int     `toml:"scrollback_lines"`
	DropOnExit      *bool    `toml:"drop_on_exit"`
	UsePTY          *bool    `toml:"use_pty"`
	Unsplittable    *bool    `toml:"unsplittable"`
	Exempt          []string `toml:"exempt"`
}

// Load reads the config at path, falling back to defaults when the file is missing.
// An empty path uses File().
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if raw.EraseOnUpdate != nil {
		cfg.EraseOnUpdate = *raw.EraseOnUpdate
	}
	if raw.AudibleAlert != nil {
		cfg.AudibleAlert = *raw.AudibleAlert
	}
	if raw.RaiseOnUpdate != nil {
		cfg.RaiseOnUpdate = *raw.RaiseOnUpdate
	}
	if raw.DismissDelay != nil {
		d, err := ParseDelay(raw.DismissDelay)
		if err != nil {
			return Config{}, err
		}
		cfg.DismissDelay = d
	}
	if raw.MaxPaneHeight != nil {
		cfg.MaxPaneHeight = *raw.MaxPaneHeight
	}
	if raw.ScrollbackLines != nil {
		cfg.ScrollbackLines = *raw.ScrollbackLines
	}
	if raw.DropOnExit != nil {
		cfg.DropOnExit = *raw.DropOnExit
	}
	if raw.UsePTY != nil {
		cfg.UsePTY = *raw.UsePTY
	}
	if raw.Unsplittable != nil {
		cfg.Unsplittable = *raw.Unsplittable
	}
	if len(raw.Exempt) > 0 {
		cfg.Exempt = append([]string(nil), raw.Exempt...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseDelay accepts seconds (integer or float), a duration string ("1500ms"),
// or "disabled"/"off"/false. Zero disables dismissal.
func ParseDelay(v any) (time.Duration, error) {
	switch val := v.(type) {
	case int64:
		return secondsDelay(float64(val))
	case int:
		return secondsDelay(float64(val))
	case float64:
		return secondsDelay(val)
	case bool:
		if val {
			return 0, fmt.Errorf("%w: dismiss_delay must be seconds or \"disabled\"", ErrInvalid)
		}
		return 0, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "disabled", "off", "never", "none":
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return secondsDelay(secs)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: dismiss_delay %q: %v", ErrInvalid, val, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("%w: dismiss_delay %q is negative", ErrInvalid, val)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: dismiss_delay has unsupported type %T", ErrInvalid, v)
	}
}

func secondsDelay(seconds float64) (time.Duration, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: dismiss_delay %v is negative", ErrInvalid, seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return File(), nil
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
