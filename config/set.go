package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Options lists the option names accepted by Set, in config file spelling.
var Options = []string{
	"erase_on_update",
	"audible_alert",
	"raise_on_update",
	"dismiss_delay",
	"max_pane_height",
	"scrollback_lines",
	"drop_on_exit",
	"use_pty",
	"unsplittable",
	"exempt",
}

// Set changes one option. Names may use dashes or underscores. Values may be
// typed or given as strings, as typed on the input line. The config is left
// untouched when the result would not validate.
func (c *Config) Set(name string, value any) error {
	next := *c
	var err error

	switch optionName(name) {
	case "erase_on_update":
		next.EraseOnUpdate, err = toBool(name, value)
	case "audible_alert":
		next.AudibleAlert, err = toBool(name, value)
	case "raise_on_update":
		next.RaiseOnUpdate, err = toBool(name, value)
	case "drop_on_exit":
		next.DropOnExit, err = toBool(name, value)
	case "use_pty":
		next.UsePTY, err = toBool(name, value)
	case "unsplittable":
		next.Unsplittable, err = toBool(name, value)
	case "dismiss_delay":
		next.DismissDelay, err = ParseDelay(value)
	case "max_pane_height":
		next.MaxPaneHeight, err = toInt(name, value)
	case "scrollback_lines":
		next.ScrollbackLines, err = toInt(name, value)
	case "exempt":
		next.Exempt, err = toList(name, value)
	default:
		return fmt.Errorf("%w: unknown option %q", ErrInvalid, name)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func optionName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// Override is an option set on top of the config file, from --set, the set
// command or a script.
type Override struct {
	Name  string
	Value any
}

// Overrides are applied in order, so a later value for an option wins.
type Overrides []Override

// ParseOverride reads a NAME=VALUE flag.
func ParseOverride(kv string) (Override, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return Override{}, fmt.Errorf("%w: --set %q wants NAME=VALUE", ErrInvalid, kv)
	}
	return Override{Name: strings.TrimSpace(name), Value: value}, nil
}

// With returns o with name set to value, replacing an earlier entry for the
// same option.
func (o Overrides) With(name string, value any) Overrides {
	out := make(Overrides, 0, len(o)+1)
	for _, ov := range o {
		if optionName(ov.Name) != optionName(name) {
			out = append(out, ov)
		}
	}
	return append(out, Override{Name: name, Value: value})
}

// Apply sets every override on c. The config is left untouched when any of
// them is rejected.
func (c *Config) Apply(o Overrides) error {
	next := *c
	for _, ov := range o {
		if err := next.Set(ov.Name, ov.Value); err != nil {
			return err
		}
	}
	*c = next
	return nil
}

func toBool(name string, v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s wants a boolean, got %v", ErrInvalid, name, v)
}

func toInt(name string, v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val == math.Trunc(val) {
			return int(val), nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %s wants an integer, got %v", ErrInvalid, name, v)
}

func toList(name string, v any) ([]string, error) {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...), nil
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s wants a list of patterns, got %v", ErrInvalid, name, v)
}
