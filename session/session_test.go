package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/config"
	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/stream"
	"github.com/drake/tailpane/surface"
	"github.com/drake/tailpane/timer"
)

type fakeUI struct {
	mu       sync.Mutex
	last     surface.Snapshot
	bells    int
	raises   int
	out      chan event.Event
	done     chan struct{}
	quitOnce sync.Once
}

func newFakeUI() *fakeUI {
	return &fakeUI{out: make(chan event.Event, 16), done: make(chan struct{})}
}

func (f *fakeUI) Run() error                   { <-f.done; return nil }
func (f *fakeUI) Quit()                        { f.quitOnce.Do(func() { close(f.done) }) }
func (f *fakeUI) Done() <-chan struct{}        { return f.done }
func (f *fakeUI) Outbound() <-chan event.Event { return f.out }

func (f *fakeUI) Refresh(snap surface.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = snap
}

func (f *fakeUI) Bell() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bells++
}

func (f *fakeUI) Raise() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raises++
}

func (f *fakeUI) snapshot() surface.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeUI) hasRegion(key string) bool {
	for _, r := range f.snapshot().Regions {
		if r.Key == key {
			return true
		}
	}
	return false
}

func testLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
}

func newTestSession(t *testing.T, cfg config.Config) (*Session, *fakeUI) {
	t.Helper()
	ui := newFakeUI()
	s := New(ui, Options{Config: cfg, Logger: testLogger(), Width: 80, Height: 24})
	if err := s.engine.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.shutdown()
		s.engine.Close()
	})
	return s, ui
}

func waitTimer(t *testing.T, s *Session) timer.Event {
	t.Helper()
	select {
	case ev := <-s.timerEvents:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
		return timer.Event{}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func workText(s *Session) string {
	for _, r := range s.stack.Regions() {
		if r.Key == "" && !r.Floating && !r.Input {
			return s.stack.Text(r.ID)
		}
	}
	return ""
}

func paneText(t *testing.T, s *Session, key string) string {
	t.Helper()
	p, ok := s.store.Get(key)
	if !ok {
		t.Fatalf("no pane for %s", key)
	}
	return s.stack.Text(p.Region)
}

func TestChunksShareOnePane(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("build.log", "compiling\n")
	s.OnChunk("build.log", "linking\n")

	if s.store.Len() != 1 {
		t.Fatalf("panes = %d, want 1", s.store.Len())
	}
	if got := paneText(t, s, "build.log"); got != "linking\n" {
		t.Errorf("text = %q, want only the latest chunk", got)
	}
	n := 0
	for _, r := range s.stack.Regions() {
		if r.Key == "build.log" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("regions bound to key = %d", n)
	}
}

func TestInterleavedStreamsKeepOwnRegions(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("a.log", "one\n")
	s.OnChunk("b.log", "two\n")
	s.OnChunk("a.log", "three\n")

	if got := paneText(t, s, "a.log"); got != "three\n" {
		t.Errorf("a.log text = %q", got)
	}
	if got := paneText(t, s, "b.log"); got != "two\n" {
		t.Errorf("b.log text = %q", got)
	}
	pa, _ := s.store.Get("a.log")
	pb, _ := s.store.Get("b.log")
	ra, _ := s.stack.Region(pa.Region)
	rb, _ := s.stack.Region(pb.Region)
	if ra.Floating || rb.Floating {
		t.Errorf("floating pane: a=%+v b=%+v", ra, rb)
	}
	if ra.Top < rb.Bottom() && rb.Top < ra.Bottom() {
		t.Errorf("pane regions overlap: a=[%d,%d) b=[%d,%d)", ra.Top, ra.Bottom(), rb.Top, rb.Bottom())
	}
}

func TestAppendWhenEraseDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.EraseOnUpdate = false
	s, _ := newTestSession(t, cfg)

	s.OnChunk("k", "a\n")
	s.OnChunk("k", "b\n")
	if got := paneText(t, s, "k"); got != "a\nb\n" {
		t.Errorf("text = %q", got)
	}
}

func TestDismissAfterDelay(t *testing.T) {
	cfg := config.Default()
	cfg.DismissDelay = 20 * time.Millisecond
	s, _ := newTestSession(t, cfg)

	s.OnChunk("build.log", "done\n")
	s.handleTimer(waitTimer(t, s))

	if s.store.Len() != 0 {
		t.Fatal("pane survived its dismissal")
	}
	if _, ok := s.stack.RegionFor("build.log"); ok {
		t.Error("region still bound after dismissal")
	}
}

func TestDisabledDelayNeverArms(t *testing.T) {
	cfg := config.Default()
	cfg.DismissDelay = 0
	s, _ := newTestSession(t, cfg)

	s.OnChunk("k", "x\n")
	s.OnChunk("k", "y\n")
	if n := s.timer.Pending(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
	if s.store.Len() != 1 {
		t.Error("pane missing")
	}
}

func TestUpdateAtFireTimeKeepsPane(t *testing.T) {
	cfg := config.Default()
	cfg.DismissDelay = 20 * time.Millisecond
	s, _ := newTestSession(t, cfg)

	s.OnChunk("k", "first\n")
	fired := waitTimer(t, s)

	// Output arrives after the timer fired but before the loop saw it.
	s.OnChunk("k", "second\n")
	s.handleTimer(fired)

	if s.store.Len() != 1 {
		t.Fatal("pane dismissed despite a newer update")
	}
	if got := paneText(t, s, "k"); got != "second\n" {
		t.Errorf("text = %q", got)
	}
	p, _ := s.store.Get("k")
	if p.TimerID == 0 || p.TimerID == fired.ID {
		t.Errorf("timer id = %d, want a fresh timer", p.TimerID)
	}
}

func TestChunkAfterDismissalRecreatesPane(t *testing.T) {
	cfg := config.Default()
	cfg.DismissDelay = 20 * time.Millisecond
	s, _ := newTestSession(t, cfg)

	s.OnChunk("k", "first\n")
	s.handleTimer(waitTimer(t, s))
	if s.store.Len() != 0 {
		t.Fatal("pane not dismissed")
	}

	s.OnChunk("k", "again\n")
	if got := paneText(t, s, "k"); got != "again\n" {
		t.Errorf("text = %q", got)
	}
	if n := s.timer.PendingFor("k"); n != 1 {
		t.Errorf("pending timers for k = %d, want 1", n)
	}
}

func TestQueuedChunkBeatsTimer(t *testing.T) {
	cfg := config.Default()
	cfg.DismissDelay = 20 * time.Millisecond
	s, _ := newTestSession(t, cfg)

	s.OnChunk("k", "first\n")
	fired := waitTimer(t, s)

	feed := make(chan stream.Event, 1)
	feed <- stream.Event{Key: "k", Data: "late\n"}
	s.feed = feed
	s.handleTimer(fired)

	if s.store.Len() != 1 {
		t.Fatal("queued output lost the race to the timer")
	}
	if got := paneText(t, s, "k"); got != "late\n" {
		t.Errorf("text = %q", got)
	}
}

func TestScriptTimersRunCallbacks(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	if err := s.engine.DoString("t", `tail.after(0.01, function() tail.log("tick") end)`); err != nil {
		t.Fatal(err)
	}
	ev := waitTimer(t, s)
	if ev.Key != "" {
		t.Fatalf("script timer carries key %q", ev.Key)
	}
	s.handleTimer(ev)
	if !strings.Contains(workText(s), "tick") {
		t.Errorf("work area = %q", workText(s))
	}
}

func TestStreamEnd(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("make", "ok\n")
	s.handleStream(stream.Event{Key: "make", End: true})
	if s.store.Len() != 1 {
		t.Error("pane dropped on exit without drop_on_exit")
	}
	if !strings.Contains(workText(s), "make: finished") {
		t.Errorf("work area = %q", workText(s))
	}

	s.handleStream(stream.Event{Key: "make", End: true, Err: errors.New("exit status 2")})
	if !strings.Contains(workText(s), "make: exit status 2") {
		t.Errorf("work area = %q", workText(s))
	}
}

func TestDropOnExit(t *testing.T) {
	cfg := config.Default()
	cfg.DropOnExit = true
	s, _ := newTestSession(t, cfg)

	s.OnChunk("make", "ok\n")
	s.handleStream(stream.Event{Key: "make", End: true})
	if s.store.Len() != 0 {
		t.Error("pane kept after exit")
	}
	if n := s.timer.Pending(); n != 0 {
		t.Errorf("pending timers = %d", n)
	}
}

func TestHooks(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	err := s.engine.DoString("h", `
		tail.on("pane", function(key, how) tail.log("pane " .. key .. " " .. how) end)
		tail.on("dismiss", function(key, why) tail.log("gone " .. key .. " " .. why) end)
	`)
	if err != nil {
		t.Fatal(err)
	}
	s.OnChunk("build.log", "x\n")
	s.OnChunk("build.log", "y\n")
	s.runCommand("close build.log")

	text := workText(s)
	if strings.Count(text, "pane build.log split") != 1 {
		t.Errorf("pane hook output = %q", text)
	}
	if !strings.Contains(text, "gone build.log closed") {
		t.Errorf("dismiss hook output = %q", text)
	}
}

func TestSignals(t *testing.T) {
	cfg := config.Default()
	cfg.AudibleAlert = true
	cfg.RaiseOnUpdate = true
	s, ui := newTestSession(t, cfg)

	s.OnChunk("k", "x\n")
	ui.mu.Lock()
	defer ui.mu.Unlock()
	if ui.bells != 1 || ui.raises != 1 {
		t.Errorf("bells = %d raises = %d", ui.bells, ui.raises)
	}
}

func TestSetOptionRefitsPanes(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("k", "1\n2\n3\n4\n5\n6\n")
	p, _ := s.store.Get("k")
	if r, _ := s.stack.Region(p.Region); r.Height != 5 {
		t.Fatalf("height = %d, want 5", r.Height)
	}

	if err := s.SetOption("max-pane-height", 2); err != nil {
		t.Fatal(err)
	}
	if r, _ := s.stack.Region(p.Region); r.Height != 2 {
		t.Errorf("height after set = %d, want 2", r.Height)
	}

	if err := s.SetOption("max-pane-height", -1); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if s.cfg.MaxPaneHeight != 2 {
		t.Errorf("rejected value applied: %d", s.cfg.MaxPaneHeight)
	}
	if got := s.shared.Load().MaxPaneHeight; got != 2 {
		t.Errorf("shared max height = %d", got)
	}
}

func TestDisablingDelayCancelsTimers(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("k", "x\n")
	if s.timer.PendingFor("k") != 1 {
		t.Fatal("timer not armed")
	}
	if err := s.SetOption("dismiss-delay", "disabled"); err != nil {
		t.Fatal(err)
	}
	if n := s.timer.Pending(); n != 0 {
		t.Errorf("pending timers = %d", n)
	}
}

func TestReloadKeepsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("max_pane_height = 3\nerase_on_update = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	overrides := config.Overrides{{Name: "dismiss-delay", Value: "disabled"}}
	if err := cfg.Apply(overrides); err != nil {
		t.Fatal(err)
	}

	ui := newFakeUI()
	s := New(ui, Options{Config: cfg, ConfigPath: path, Overrides: overrides, Logger: testLogger()})
	t.Cleanup(func() {
		s.shutdown()
		s.engine.Close()
	})
	if err := s.SetOption("max-pane-height", 2); err != nil {
		t.Fatal(err)
	}

	os.WriteFile(path, []byte("max_pane_height = 4\ndismiss_delay = 9\naudible_alert = true\n"), 0o644)
	s.reloadConfig()
	if s.cfg.DismissEnabled() {
		t.Error("--set dismiss-delay lost on reload")
	}
	if s.cfg.MaxPaneHeight != 2 {
		t.Errorf("max height = %d, want 2 from set", s.cfg.MaxPaneHeight)
	}
	if !s.cfg.AudibleAlert || !s.cfg.EraseOnUpdate {
		t.Errorf("file values not applied: %+v", s.cfg)
	}

	os.WriteFile(path, []byte("max_pane_height = -1\n"), 0o644)
	s.reloadConfig()
	if s.cfg.MaxPaneHeight != 2 || !s.cfg.AudibleAlert {
		t.Errorf("rejected file replaced config: %+v", s.cfg)
	}
}

func TestRunCommand(t *testing.T) {
	s, _ := newTestSession(t, config.Default())
	inputText := func() string { return s.stack.Text(s.stack.InputRegion()) }

	s.runCommand("set dismiss-delay off")
	if s.cfg.DismissEnabled() {
		t.Error("set did not disable dismissal")
	}
	if inputText() != "" {
		t.Errorf("input line = %q after success", inputText())
	}

	s.runCommand("frobnicate")
	if !strings.Contains(inputText(), "unknown command") {
		t.Errorf("input line = %q", inputText())
	}

	s.runCommand("file")
	if !strings.Contains(inputText(), "usage") {
		t.Errorf("input line = %q", inputText())
	}

	s.runCommand("stop nothing")
	if !strings.Contains(inputText(), "not running") {
		t.Errorf("input line = %q", inputText())
	}

	s.runCommand(`lua tail.log("from input")`)
	if !strings.Contains(workText(s), "from input") {
		t.Errorf("work area = %q", workText(s))
	}
}

func TestCloseFocused(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	s.OnChunk("k", "x\n")
	p, _ := s.store.Get("k")
	s.stack.Select(p.Region)
	s.handleControl(event.ControlOp{Action: event.ActionClose})
	if s.store.Len() != 0 {
		t.Error("focused pane not closed")
	}
	if s.timer.Pending() != 0 {
		t.Error("closed pane left its timer armed")
	}
}

func TestTailFileErrors(t *testing.T) {
	s, _ := newTestSession(t, config.Default())

	if err := s.TailFile("build:/var/log/build.log"); !errors.Is(err, stream.ErrRemotePath) {
		t.Errorf("remote err = %v", err)
	}
	if err := s.TailFile(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("missing file accepted")
	}
	if err := s.TailCommand("", nil); err == nil {
		t.Error("empty command accepted")
	}
	if s.store.Len() != 0 || len(s.streams.Active()) != 0 {
		t.Error("failed tail left state behind")
	}
}

func TestTailFileOneKeyPerFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.log"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	s, _ := newTestSession(t, config.Default())

	if err := s.TailFile("a.log"); err != nil {
		t.Fatal(err)
	}
	if err := s.TailFile("./a.log"); !errors.Is(err, stream.ErrActive) {
		t.Errorf("second spelling err = %v, want ErrActive", err)
	}
	want := filepath.Join(dir, "a.log")
	if active := s.streams.Active(); len(active) != 1 || active[0] != want {
		t.Errorf("active = %v, want [%s]", active, want)
	}
	if !s.Stop("a.log") {
		t.Error("Stop by relative path failed")
	}
}

func TestRunFollowsFileAndDismisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	if err := os.WriteFile(path, []byte("step 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DismissDelay = 300 * time.Millisecond
	ui := newFakeUI()
	s := New(ui, Options{Config: cfg, Logger: testLogger(), Width: 80, Height: 24})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	if err := s.TailFile(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pane to appear", func() bool { return ui.hasRegion(path) })
	waitFor(t, "pane to be dismissed", func() bool { return !ui.hasRegion(path) })
	if s.Stats().Panes != 0 {
		t.Errorf("stats panes = %d", s.Stats().Panes)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownCancelsTimers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("ready\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DismissDelay = time.Hour
	ui := newFakeUI()
	s := New(ui, Options{Config: cfg, Logger: testLogger()})

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	if err := s.TailFile(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "timer to be armed", func() bool { return s.Stats().Timers == 1 })

	ui.out <- event.Event{Type: event.SystemControl, Control: event.ControlOp{Action: event.ActionQuit}}
	select {
	case <-errc:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	if n := s.timer.Pending(); n != 0 {
		t.Errorf("pending timers after shutdown = %d", n)
	}
	if err := s.TailFile(path); !errors.Is(err, stream.ErrClosed) {
		t.Errorf("tail after shutdown: %v", err)
	}
}
