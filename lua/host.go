package lua

// PaneInfo describes a live pane for scripts.
type PaneInfo struct {
	Key       string
	Height    int
	Placement string
	Updates   int
}

// Host provides the bridge between Engine and the rest of the system.
// The session implements it; tests use MockHost.
type Host interface {
	TailService
	UIService
	ConfigService
	TimerService
	SystemService
	StateService
}
