package debug

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/session"
)

type fakeSource struct {
	done chan struct{}
}

func (f *fakeSource) Stats() session.Stats {
	return session.Stats{Panes: 2, Timers: 1, Streams: 3}
}

func (f *fakeSource) Done() <-chan struct{} { return f.done }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEnabled(t *testing.T) {
	t.Setenv("TAILPANE_DEBUG", "")
	if Enabled() {
		t.Error("enabled without TAILPANE_DEBUG")
	}
	if NewMonitor(pslog.Ctx(context.Background()), &fakeSource{}) != nil {
		t.Error("monitor created while disabled")
	}
	// A nil monitor is safe to start.
	var m *Monitor
	m.Start(context.Background())

	t.Setenv("TAILPANE_DEBUG", "1")
	if !Enabled() {
		t.Error("not enabled with TAILPANE_DEBUG=1")
	}
}

func TestMonitorLogsUntilDone(t *testing.T) {
	var out syncBuffer
	logger := pslog.NewWithOptions(&out, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.DebugLevel,
	})
	src := &fakeSource{done: make(chan struct{})}
	m := newMonitor(logger, src, 10*time.Millisecond)
	m.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "session stats") {
		if time.Now().After(deadline) {
			t.Fatalf("no stats logged:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(src.done)

	deadline = time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "monitor stopped") {
		if time.Now().After(deadline) {
			t.Fatalf("monitor did not stop:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(out.String(), "panes") {
		t.Errorf("stats fields missing:\n%s", out.String())
	}
}
