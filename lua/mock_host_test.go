package lua

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockHost implements Host for testing.
type MockHost struct {
	mu sync.Mutex

	// Captured calls, in order, formatted as "op:args"
	Calls []string

	// FailPaths makes TailFile fail for these paths
	FailPaths map[string]bool
	// Active keys reported by Stop
	Active    map[string]bool
	PaneList  []PaneInfo

	ScheduledTimers []struct {
		ID       int
		Duration time.Duration
	}
	CancelledTimers []int

	// Timer ID generation
	nextTimerID int
}

func NewMockHost() *MockHost {
	return &MockHost{
		FailPaths: map[string]bool{},
		Active:    map[string]bool{},
	}
}

func (m *MockHost) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

func (m *MockHost) TailFile(path string) error {
	m.record("file:%s", path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPaths[path] {
		return errors.New("no such file")
	}
	return nil
}

func (m *MockHost) TailCommand(name string, args []string) error {
	m.record("command:%s", strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil
}

func (m *MockHost) Stop(key string) bool {
	m.record("stop:%s", key)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Active[key]
}

func (m *MockHost) Print(text string) {
	m.record("print:%s", text)
}

func (m *MockHost) SetOption(name string, value any) error {
	m.record("set:%s=%v", name, value)
	if name == "bogus" {
		return errors.New("unknown option")
	}
	return nil
}

func (m *MockHost) TimerAfter(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTimerID++
	m.ScheduledTimers = append(m.ScheduledTimers, struct {
		ID       int
		Duration time.Duration
	}{m.nextTimerID, d})
	return m.nextTimerID
}

func (m *MockHost) TimerCancel(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelledTimers = append(m.CancelledTimers, id)
}

func (m *MockHost) Quit() {
	m.record("quit:")
}

func (m *MockHost) Load(path string) {
	m.record("load:%s", path)
}

func (m *MockHost) Panes() []PaneInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PaneInfo(nil), m.PaneList...)
}

// DrainCalls returns and clears the captured calls.
func (m *MockHost) DrainCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.Calls
	m.Calls = nil
	return calls
}
