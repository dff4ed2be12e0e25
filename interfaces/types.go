package interfaces

import (
	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/surface"
)

// UI defines the Terminal layer.
// Single implementation: tui.BubbleTeaUI.
type UI interface {
	// --- Lifecycle ---
	Run() error
	Quit()
	Done() <-chan struct{}
	// Outbound carries resize, key and input line events to the session loop.
	Outbound() <-chan event.Event

	// --- Output ---
	// Refresh replaces the displayed layout with snap.
	Refresh(snap surface.Snapshot)

	// --- Signals ---
	Bell()
	Raise()
}
