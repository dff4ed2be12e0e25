// Package session owns the event loop that feeds stream output into panes
// and dismisses them once they go quiet.
package session

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/config"
	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/interfaces"
	"github.com/drake/tailpane/lua"
	"github.com/drake/tailpane/pane"
	"github.com/drake/tailpane/stream"
	"github.com/drake/tailpane/surface"
	"github.com/drake/tailpane/timer"
)

// Ensure Session implements lua.Host at compile time
var _ lua.Host = (*Session)(nil)

// Options configure a Session.
type Options struct {
	Config     config.Config
	ConfigPath string           // watched for changes when set
	Overrides  config.Overrides // reapplied on every reload of ConfigPath
	InitScript string           // run at boot when the file exists
	Scripts    []string         // run after InitScript
	Logger     pslog.Logger

	// Initial surface size; the UI reports the real one once it starts.
	Width, Height int
}

// Stats is a point-in-time view of the session for monitoring.
type Stats struct {
	Panes         int
	Timers        int
	Streams       int
	EventQueueLen int
	EventQueueCap int
	TimerQueueLen int
	TimerQueueCap int
	Goroutines    int
}

// Session orchestrates streams, panes and their dismissal timers.
// Everything that touches the surface runs on the session loop.
type Session struct {
	ui     interfaces.UI
	logger pslog.Logger
	opts   Options

	// cfg and overrides are owned by the loop; shared is a copy for other
	// goroutines.
	cfg       config.Config
	overrides config.Overrides
	shared    atomic.Pointer[config.Config]

	stack   *surface.Stack
	store   *pane.Store
	render  *pane.Renderer
	timer   *timer.Service
	streams *stream.Adapter
	engine  *lua.Engine

	events      chan event.Event
	timerEvents chan timer.Event
	feed        <-chan stream.Event

	panes atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
}

// New creates a new Session. It is passive - no goroutines start here.
func New(ui interfaces.UI, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}
	cfg := opts.Config
	timerEvents := make(chan timer.Event, 1024)

	s := &Session{
		ui:          ui,
		logger:      opts.Logger,
		opts:        opts,
		cfg:         cfg,
		overrides:   opts.Overrides,
		timer:       timer.NewService(timerEvents),
		timerEvents: timerEvents,
		events:      make(chan event.Event, 4096),
		streams:     stream.NewAdapter(opts.Logger),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	s.shared.Store(&cfg)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.feed = s.streams.Events()

	s.stack = surface.NewStack(surface.StackOptions{
		Width:        opts.Width,
		Height:       opts.Height,
		Scrollback:   cfg.ScrollbackLines,
		Unsplittable: cfg.Unsplittable,
		Exempt:       cfg.IsExempt,
	})
	s.store = pane.NewStore(s.stack)
	s.render = pane.NewRenderer(s.stack, ui)
	s.render.AudibleAlert = cfg.AudibleAlert
	s.render.RaiseOnUpdate = cfg.RaiseOnUpdate

	s.engine = lua.NewEngine(s, s, s, s, s, s)
	return s
}

// Run starts the session and blocks until the UI exits or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer s.engine.Close()

	if err := s.boot(); err != nil {
		s.logger.Warn("boot failed", "err", err)
		s.stack.Print("boot error: " + err.Error())
	}
	if s.opts.ConfigPath != "" {
		s.watchConfig()
	}
	s.refresh()

	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-s.done:
		}
	}()
	go s.processEvents()

	s.logger.Info("session started")
	err := s.ui.Run()
	s.shutdown()
	<-s.loopDone
	return err
}

// Done is closed once shutdown begins.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stats is safe to call from any goroutine.
func (s *Session) Stats() Stats {
	return Stats{
		Panes:         int(s.panes.Load()),
		Timers:        s.timer.Pending(),
		Streams:       len(s.streams.Active()),
		EventQueueLen: len(s.events),
		EventQueueCap: cap(s.events),
		TimerQueueLen: len(s.timerEvents),
		TimerQueueCap: cap(s.timerEvents),
		Goroutines:    runtime.NumGoroutine(),
	}
}

// boot loads the VM state.
func (s *Session) boot() error {
	if err := s.engine.Init(); err != nil {
		return err
	}
	if path := s.opts.InitScript; path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.engine.DoFile(path); err != nil {
				return fmt.Errorf("init.lua: %w", err)
			}
		}
	}
	for _, path := range s.opts.Scripts {
		if err := s.engine.DoFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	s.engine.CallHook("ready")
	return nil
}

// processEvents is the main event loop.
func (s *Session) processEvents() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			// Timers armed after shutdown began are cancelled here.
			s.timer.CancelAll()
			return
		case ev, ok := <-s.feed:
			if !ok {
				s.feed = nil
				continue
			}
			s.handleStream(ev)
		case ev := <-s.events:
			s.handleEvent(ev)
		case ev := <-s.ui.Outbound():
			s.handleEvent(ev)
		case ev := <-s.timerEvents:
			s.handleTimer(ev)
		}
		s.refresh()
	}
}

// drainStreams applies stream events that are already queued.
func (s *Session) drainStreams() {
	for s.feed != nil {
		select {
		case ev, ok := <-s.feed:
			if !ok {
				s.feed = nil
				return
			}
			s.handleStream(ev)
		default:
			return
		}
	}
}

// handleEvent executes a single event on the session loop.
func (s *Session) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.UserInput:
		s.runCommand(ev.Payload)
	case event.Resize:
		s.stack.SetSize(ev.Width, ev.Height)
		s.refit()
	case event.SystemControl:
		s.handleControl(ev.Control)
	case event.AsyncResult:
		if ev.Callback != nil {
			ev.Callback()
		}
	}
}

// handleControl processes system control events.
func (s *Session) handleControl(ctrl event.ControlOp) {
	switch ctrl.Action {
	case event.ActionQuit:
		s.shutdown()
	case event.ActionClose:
		s.closeFocused()
	case event.ActionFocus:
		s.stack.CycleFocus()
	case event.ActionReload:
		s.reloadConfig()
	case event.ActionLoadScript:
		s.loadScript(ctrl.ScriptPath)
	}
}

func (s *Session) handleStream(ev stream.Event) {
	if ev.End {
		s.onEnd(ev)
		return
	}
	s.OnChunk(ev.Key, ev.Data)
}

// OnChunk shows chunk in the pane for key, creating the pane when needed,
// and restarts its dismissal timer. It must run on the session loop.
func (s *Session) OnChunk(key, chunk string) {
	p, created, err := s.store.GetOrCreate(key, pane.Options{
		MaxHeight:     s.cfg.MaxPaneHeight,
		EraseOnUpdate: s.cfg.EraseOnUpdate,
	})
	if err != nil {
		// No region at all: keep the output visible in the work area.
		s.logger.Warn("pane placement failed", "stream", key, "err", err)
		s.stack.Print(key + ": " + strings.TrimRight(chunk, "\n"))
		return
	}
	p.MaxHeight = s.cfg.MaxPaneHeight
	p.EraseOnUpdate = s.cfg.EraseOnUpdate

	if created {
		s.logger.Debug("pane placed", "stream", key, "region", int(p.Region), "placement", p.Placement.String())
		s.engine.CallHook("pane", key, p.Placement.String())
	}
	if err := s.render.Apply(p, chunk); err != nil {
		s.logger.Warn("pane update failed", "stream", key, "err", err)
	}
	s.arm(p)
}

// arm restarts the inactivity timer of p.
func (s *Session) arm(p *pane.Pane) {
	if !s.cfg.DismissEnabled() {
		if p.TimerID != 0 {
			s.timer.Cancel(p.TimerID)
			p.TimerID = 0
		}
		return
	}
	p.TimerID = s.timer.Rearm(p.TimerID, s.cfg.DismissDelay, p.Key)
}

// handleTimer runs a fired timer. Pane timers are matched against the
// pane's current timer, so a fire that lost the race with an update is
// dropped.
func (s *Session) handleTimer(ev timer.Event) {
	if ev.Key == "" {
		s.engine.OnTimer(ev.ID)
		return
	}
	s.drainStreams()

	p, ok := s.store.Get(ev.Key)
	if !ok || p.TimerID != ev.ID {
		s.logger.Debug("stale dismissal ignored", "stream", ev.Key, "timer", ev.ID)
		return
	}
	p.TimerID = 0
	s.dismiss(ev.Key, "idle")
}

func (s *Session) onEnd(ev stream.Event) {
	log := s.logger.With("stream", ev.Key)
	reason := ""
	if ev.Err != nil {
		reason = ev.Err.Error()
		log.Warn("stream ended", "err", ev.Err)
		s.stack.Print(fmt.Sprintf("%s: %v", ev.Key, ev.Err))
	} else {
		log.Info("stream ended")
		s.stack.Print(ev.Key + ": finished")
	}
	s.engine.CallHook("exit", ev.Key, reason)
	if s.cfg.DropOnExit {
		s.dismiss(ev.Key, "exit")
	}
}

// dismiss removes the pane for key and its timer.
func (s *Session) dismiss(key, reason string) bool {
	p, err := s.store.Remove(key)
	if p == nil {
		return false
	}
	if p.TimerID != 0 {
		s.timer.Cancel(p.TimerID)
		p.TimerID = 0
	}
	if err != nil {
		s.logger.Warn("pane region removal failed", "stream", key, "err", err)
	}
	s.logger.Debug("pane dismissed", "stream", key, "reason", reason)
	s.engine.CallHook("dismiss", key, reason)
	return true
}

// closeFocused dismisses the pane in the selected region.
func (s *Session) closeFocused() {
	id := s.stack.Selected()
	if p, ok := s.store.ByRegion(id); ok {
		s.dismiss(p.Key, "closed")
		return
	}
	if r, ok := s.stack.Region(id); ok && r.Key != "" {
		if err := s.stack.Remove(id); err != nil {
			s.stack.Echo(err.Error())
		}
		return
	}
	s.stack.Echo("nothing to close")
}

// refit clamps every pane to its content after the surface changed size.
func (s *Session) refit() {
	for _, key := range s.store.Keys() {
		p, _ := s.store.Get(key)
		if _, err := s.render.Fit(p); err != nil {
			s.logger.Debug("pane refit failed", "stream", key, "err", err)
		}
	}
}

func (s *Session) refresh() {
	s.panes.Store(int64(s.store.Len()))
	s.ui.Refresh(s.stack.Snapshot())
}

// post hands ev to the loop without blocking the caller.
func (s *Session) post(ev event.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	default:
		s.logger.Warn("session queue full, event dropped", "type", int(ev.Type))
	}
}

// notify shows msg in the work area from any goroutine.
func (s *Session) notify(msg string) {
	s.post(event.Event{
		Type:     event.AsyncResult,
		Callback: func() { s.stack.Print(msg) },
	})
}

// shutdown stops timers, streams and the UI. It is safe to call from any
// goroutine, more than once.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		n := s.timer.Pending()
		s.timer.Stop()
		s.cancel()
		s.streams.Close()
		s.ui.Quit()
		s.logger.Info("session stopped", "timers_cancelled", n)
	})
}
