// Package textutil prepares raw stream text for display.
package textutil

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const tabWidth = 4

// Plain returns s without ANSI escape sequences.
func Plain(s string) string {
	return ansi.Strip(s)
}

// FilterClearSequences removes ANSI sequences that would clear the screen.
// A stream must never wipe the surface it is drawn on.
func FilterClearSequences(line string) string {
	line = strings.ReplaceAll(line, "\x1b[2J", "")   // Clear entire screen
	line = strings.ReplaceAll(line, "\x1b[3J", "")   // Clear scrollback
	line = strings.ReplaceAll(line, "\x1b[H", "")    // Move cursor to home
	line = strings.ReplaceAll(line, "\x1b[0;0H", "") // Move cursor to 0,0
	line = strings.ReplaceAll(line, "\x1b[1;1H", "") // Move cursor to 1,1
	return line
}

// Sanitize turns one stored line into what a terminal would show for it:
// a carriage return restarts the line (progress bars), tabs become spaces
// and screen-clearing sequences are dropped.
func Sanitize(line string) string {
	line = strings.TrimSuffix(line, "\r")
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	if strings.IndexByte(line, '\t') >= 0 {
		line = strings.ReplaceAll(line, "\t", strings.Repeat(" ", tabWidth))
	}
	if strings.IndexByte(line, '\x1b') >= 0 {
		line = FilterClearSequences(line)
	}
	return line
}
