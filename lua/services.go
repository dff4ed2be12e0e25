package lua

import "time"

// TailService starts and stops streams.
type TailService interface {
	TailFile(path string) error
	TailCommand(name string, args []string) error
	Stop(key string) bool
}

// UIService handles visual elements.
type UIService interface {
	Print(text string)
}

// ConfigService changes options at runtime.
type ConfigService interface {
	SetOption(name string, value any) error
}

// TimerService handles scheduling.
type TimerService interface {
	TimerAfter(d time.Duration) int
	TimerCancel(id int)
}

// SystemService handles app lifecycle.
type SystemService interface {
	Quit()
	Load(path string)
}

// StateService provides read-only access to pane state.
type StateService interface {
	Panes() []PaneInfo
}
