// Package tui draws the surface in a terminal with Bubble Tea.
package tui

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/interfaces"
	"github.com/drake/tailpane/surface"
)

// Terminal control sequences written for pane signals.
const (
	bellSeq  = "\a"
	raiseSeq = "\x1b[5t" // xterm: raise the window to the front
)

var _ interfaces.UI = (*BubbleTeaUI)(nil)

// BubbleTeaUI implements interfaces.UI using Bubble Tea.
// It bridges the channel-based session with Bubble Tea's
// model/update/view event loop.
type BubbleTeaUI struct {
	program *tea.Program

	// Only the newest snapshot matters; older ones are overwritten
	// before the drain goroutine hands them to the program.
	pending atomic.Pointer[surface.Snapshot]
	wake    chan struct{}

	// Outbound events from UI to Session. Session reads from this
	// channel in its event loop.
	outbound chan event.Event

	sigMu   sync.Mutex
	signals io.Writer

	// Shutdown coordination
	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
}

// NewBubbleTeaUI creates a new Bubble Tea-based UI.
func NewBubbleTeaUI() *BubbleTeaUI {
	b := &BubbleTeaUI{
		wake:     make(chan struct{}, 1),
		outbound: make(chan event.Event, 256),
		signals:  os.Stderr,
		done:     make(chan struct{}),
	}
	b.program = tea.NewProgram(
		NewModel(b.outbound),
		tea.WithAltScreen(),
		tea.WithInputTTY(),
	)
	return b
}

// Refresh queues snap for drawing. It never blocks.
func (b *BubbleTeaUI) Refresh(snap surface.Snapshot) {
	b.pending.Store(&snap)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Bell rings the terminal bell.
func (b *BubbleTeaUI) Bell() {
	b.signal(bellSeq)
}

// Raise asks the terminal window to come to the front.
func (b *BubbleTeaUI) Raise() {
	b.signal(raiseSeq)
}

func (b *BubbleTeaUI) signal(seq string) {
	b.sigMu.Lock()
	defer b.sigMu.Unlock()
	io.WriteString(b.signals, seq)
}

// Run starts the TUI and blocks until exit. It returns at once when Quit
// was called first.
func (b *BubbleTeaUI) Run() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.mu.Unlock()

	// Single goroutine hands snapshots to Bubble Tea.
	// This can block on Send() without affecting the session.
	go func() {
		for {
			select {
			case <-b.done:
				return
			case <-b.wake:
				if snap := b.pending.Load(); snap != nil {
					b.program.Send(snapshotMsg(*snap))
				}
			}
		}
	}()

	// Run blocks until quit
	_, err := b.program.Run()
	b.close()
	return err
}

// close marks the UI finished and reports whether the program was started.
func (b *BubbleTeaUI) close() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return b.running
}

// Done returns a channel that closes when the UI exits.
func (b *BubbleTeaUI) Done() <-chan struct{} {
	return b.done
}

// Quit signals the TUI to exit.
func (b *BubbleTeaUI) Quit() {
	if b.close() {
		b.program.Quit()
	}
}

// Outbound returns a channel of events from UI to Session.
func (b *BubbleTeaUI) Outbound() <-chan event.Event {
	return b.outbound
}
