package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/config"
	"github.com/drake/tailpane/debug"
	"github.com/drake/tailpane/session"
	"github.com/drake/tailpane/ui/tui"
)

// sessionFlags are shared by every command that opens the terminal UI.
type sessionFlags struct {
	configPath string
	scripts    []string
	sets       []string
	logPath    string
	debug      bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file (default "+config.File()+")")
	pf.StringArrayVarP(&f.scripts, "script", "s", nil, "Lua script to run after init.lua (repeatable)")
	pf.StringArrayVar(&f.sets, "set", nil, "override an option, e.g. --set dismiss-delay=10 (repeatable)")
	pf.StringVar(&f.logPath, "log", "", "log file (default "+filepath.Join(config.StateDir(), "tailpane.log")+")")
	pf.BoolVar(&f.debug, "debug", false, "log at debug level")
}

func newFileCmd(flags *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "file PATH...",
		Aliases: []string{"tail"},
		Short:   "Follow files, one pane per file",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, flags, func(s *session.Session) error {
				for _, path := range args {
					if err := s.TailFile(path); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCommandCmd(flags *sessionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cmd -- COMMAND [ARGS...]",
		Aliases: []string{"run"},
		Short:   "Run a command and follow its output in a pane",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, flags, func(s *session.Session) error {
				return s.TailCommand(args[0], args[1:])
			})
		},
	}
	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// loadConfig reads the config file and applies --set overrides. The
// overrides are returned as well so they survive a reload of the file.
// An invalid file or override is rejected before anything starts.
func loadConfig(flags *sessionFlags) (config.Config, string, config.Overrides, error) {
	path := flags.configPath
	if path == "" {
		path = config.File()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", nil, err
	}
	var overrides config.Overrides
	for _, kv := range flags.sets {
		ov, err := config.ParseOverride(kv)
		if err != nil {
			return config.Config{}, "", nil, err
		}
		overrides = overrides.With(ov.Name, ov.Value)
	}
	if err := cfg.Apply(overrides); err != nil {
		return config.Config{}, "", nil, err
	}
	return cfg, path, overrides, nil
}

// openLog returns a logger writing to the log file. The terminal belongs to
// the UI, so nothing is logged to stderr while it runs.
func openLog(flags *sessionFlags) (pslog.Logger, io.Closer, error) {
	path := flags.logPath
	if path == "" {
		path = filepath.Join(config.StateDir(), "tailpane.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	level := pslog.InfoLevel
	if flags.debug || debug.Enabled() {
		level = pslog.DebugLevel
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(f),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: level}),
	)
	return logger, f, nil
}

// runSession opens the UI, lets start attach the initial streams and blocks
// until the user quits. A stream that cannot be opened fails the command
// before the terminal is taken over.
func runSession(cmd *cobra.Command, flags *sessionFlags, start func(*session.Session) error) error {
	cfg, cfgPath, overrides, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, closer, err := openLog(flags)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := pslog.ContextWithLogger(cmd.Context(), logger)
	ui := tui.NewBubbleTeaUI()
	s := session.New(ui, session.Options{
		Config:     cfg,
		ConfigPath: cfgPath,
		Overrides:  overrides,
		InitScript: config.InitFile(),
		Scripts:    flags.scripts,
		Logger:     logger,
	})
	if start != nil {
		if err := start(s); err != nil {
			s.Quit()
			return err
		}
	}

	debug.NewMonitor(logger, s).Start(ctx)
	logger.Info("tailpane starting", "config", cfgPath, "dismiss_delay", cfg.DismissDelay.String())
	return s.Run(ctx)
}
