package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/drake/tailpane/lua"
	"github.com/drake/tailpane/stream"
)

// TailFile starts following path. Failures to open the file are returned
// and no pane is created.
func (s *Session) TailFile(path string) error {
	cfg := s.shared.Load()
	src := stream.NewFile(path, cfg.MaxPaneHeight)
	if err := s.streams.Attach(s.ctx, src); err != nil {
		s.logger.Warn("tail file failed", "path", path, "err", err)
		return err
	}
	s.logger.Info("following file", "stream", src.Key())
	s.notify("following " + src.Key())
	return nil
}

// TailCommand runs name with args and follows its output.
func (s *Session) TailCommand(name string, args []string) error {
	if name == "" {
		return errors.New("empty command")
	}
	cfg := s.shared.Load()
	src := stream.NewCommand(name, args...)
	src.PTY = cfg.UsePTY
	if err := s.streams.Attach(s.ctx, src); err != nil {
		s.logger.Warn("tail command failed", "command", src.Key(), "err", err)
		return err
	}
	s.logger.Info("following command", "stream", src.Key(), "pty", src.PTY)
	s.notify("running " + src.Key())
	return nil
}

// Stop implements lua.TailService. A relative file path names the same
// stream as its absolute form.
func (s *Session) Stop(key string) bool {
	if s.streams.Detach(key) {
		return true
	}
	if abs := stream.FileKey(key); abs != key {
		return s.streams.Detach(abs)
	}
	return false
}

// Print implements lua.UIService.
func (s *Session) Print(text string) {
	s.stack.Print(text)
}

// SetOption implements lua.ConfigService.
func (s *Session) SetOption(name string, value any) error {
	next := s.cfg
	if err := next.Set(name, value); err != nil {
		return err
	}
	s.overrides = s.overrides.With(name, value)
	s.setConfig(next)
	s.logger.Info("option set", "option", name, "value", fmt.Sprint(value))
	return nil
}

// TimerAfter implements lua.TimerService.
func (s *Session) TimerAfter(d time.Duration) int {
	return s.timer.After(d, "")
}

// TimerCancel implements lua.TimerService.
func (s *Session) TimerCancel(id int) {
	s.timer.Cancel(id)
}

// Quit implements lua.SystemService.
func (s *Session) Quit() {
	s.shutdown()
}

// Load enqueues a request to load a Lua script on the session loop.
func (s *Session) Load(path string) {
	s.post(eventLoad(path))
}

// loadScript loads a Lua script file and notifies hooks. Runs on the session goroutine.
func (s *Session) loadScript(path string) {
	if path == "" {
		s.stack.Print("load failed: empty path")
		return
	}
	if err := s.engine.DoFile(path); err != nil {
		s.logger.Warn("script load failed", "path", path, "err", err)
		s.stack.Print(fmt.Sprintf("load failed (%s): %v", path, err))
		return
	}
	s.engine.CallHook("loaded", path)
}

// Panes implements lua.StateService.
func (s *Session) Panes() []lua.PaneInfo {
	keys := s.store.Keys()
	out := make([]lua.PaneInfo, 0, len(keys))
	for _, key := range keys {
		p, _ := s.store.Get(key)
		r, _ := s.stack.Region(p.Region)
		out = append(out, lua.PaneInfo{
			Key:       p.Key,
			Height:    r.Height,
			Placement: p.Placement.String(),
			Updates:   p.Updates,
		})
	}
	return out
}
