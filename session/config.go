package session

import (
	"github.com/drake/tailpane/config"
	"github.com/drake/tailpane/event"
)

// watchConfig reloads the config file whenever it changes on disk.
func (s *Session) watchConfig() {
	err := config.Watch(s.ctx, s.opts.ConfigPath, func(cfg config.Config, err error) {
		s.post(event.Event{
			Type:     event.AsyncResult,
			Callback: func() { s.applyConfig(cfg, err) },
		})
	})
	if err != nil {
		s.logger.Warn("config watch failed", "path", s.opts.ConfigPath, "err", err)
	}
}

// reloadConfig re-reads the config file on the session loop.
func (s *Session) reloadConfig() {
	if s.opts.ConfigPath == "" {
		s.stack.Echo("no config file")
		return
	}
	cfg, err := config.Load(s.opts.ConfigPath)
	s.applyConfig(cfg, err)
}

// applyConfig installs a loaded config with the session's overrides on top.
// A rejected config leaves the running one in place.
func (s *Session) applyConfig(cfg config.Config, err error) {
	if err == nil {
		err = cfg.Apply(s.overrides)
	}
	if err != nil {
		s.logger.Warn("config rejected", "err", err)
		s.stack.Echo("config: " + err.Error())
		return
	}
	s.setConfig(cfg)
	s.logger.Info("config applied", "dismiss_delay", cfg.DismissDelay.String(), "max_pane_height", cfg.MaxPaneHeight)
}

// setConfig pushes cfg into the surface, renderer and live panes.
func (s *Session) setConfig(cfg config.Config) {
	s.cfg = cfg
	shared := cfg
	s.shared.Store(&shared)

	s.stack.SetUnsplittable(cfg.Unsplittable)
	s.stack.SetExempt(cfg.IsExempt)
	s.stack.SetScrollback(cfg.ScrollbackLines)
	s.render.AudibleAlert = cfg.AudibleAlert
	s.render.RaiseOnUpdate = cfg.RaiseOnUpdate

	for _, key := range s.store.Keys() {
		p, _ := s.store.Get(key)
		p.MaxHeight = cfg.MaxPaneHeight
		p.EraseOnUpdate = cfg.EraseOnUpdate
		if _, err := s.render.Fit(p); err != nil {
			s.logger.Debug("pane refit failed", "stream", key, "err", err)
		}
		if !cfg.DismissEnabled() && p.TimerID != 0 {
			s.timer.Cancel(p.TimerID)
			p.TimerID = 0
		}
	}
}
