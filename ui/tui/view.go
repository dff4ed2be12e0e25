package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/drake/tailpane/internal/textutil"
	"github.com/drake/tailpane/surface"
)

const workTitle = "tailpane"

// render draws snap as exactly snap.Height rows. Floating regions are drawn
// last and win where a tiny terminal leaves them no rows of their own.
// inputRow replaces the input region.
func render(snap surface.Snapshot, st Styles, inputRow string) string {
	rows := make([]string, max(snap.Height, 0))

	var floating []surface.RegionView
	for _, r := range snap.Regions {
		switch {
		case r.Input:
			if r.Top >= 0 && r.Top < len(rows) {
				rows[r.Top] = inputRow
			}
		case r.Floating:
			floating = append(floating, r)
		default:
			drawRegion(rows, r, snap.Width, st)
		}
	}
	for _, r := range floating {
		drawRegion(rows, r, snap.Width, st)
	}

	for i, row := range rows {
		rows[i] = ansi.Truncate(row, snap.Width, "")
	}
	return strings.Join(rows, "\n")
}

func drawRegion(rows []string, r surface.RegionView, width int, st Styles) {
	if r.Top < 0 || r.Top >= len(rows) {
		return
	}
	rows[r.Top] = title(r, width, st)

	body := wrapTail(r.Lines, width, r.Height)
	for i := 0; i < r.Height; i++ {
		row := r.Top + 1 + i
		if row >= len(rows) {
			break
		}
		if i < len(body) {
			rows[row] = body[i]
		} else {
			rows[row] = ""
		}
	}
}

func title(r surface.RegionView, width int, st Styles) string {
	name := r.Key
	if name == "" {
		name = workTitle
	}
	style := st.Title
	switch {
	case r.Selected:
		style = st.TitleSelected
	case r.Floating:
		style = st.TitleFloating
	}
	text := ansi.Truncate(" "+name, max(width-1, 0), "…")
	return style.Width(width).Render(text)
}

// wrapTail wraps lines to width and returns the last n screen rows.
func wrapTail(lines []string, width, n int) []string {
	if n <= 0 {
		return nil
	}
	var rows []string
	for _, line := range lines {
		line = textutil.Sanitize(line)
		if width > 0 && ansi.StringWidth(line) > width {
			rows = append(rows, strings.Split(ansi.Hardwrap(line, width, true), "\n")...)
			continue
		}
		rows = append(rows, line)
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows
}

// inputMessage returns the message shown on the input line of snap.
func inputMessage(snap surface.Snapshot) string {
	for _, r := range snap.Regions {
		if r.Input && len(r.Lines) > 0 {
			return r.Lines[len(r.Lines)-1]
		}
	}
	return ""
}
