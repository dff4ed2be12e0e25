// Package stream turns followed files and spawned commands into a single
// ordered feed of chunk events keyed by stream identity.
package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/internal/buffer"
)

var (
	// ErrRemotePath is returned when asked to follow a file on another host.
	ErrRemotePath = errors.New("remote paths cannot be followed")
	// ErrActive is returned when a key is already being followed.
	ErrActive = errors.New("stream already active")
	// ErrClosed is returned by Attach after Close.
	ErrClosed = errors.New("stream adapter closed")
)

// Event is one chunk of output, or the end of a stream.
type Event struct {
	Key  string
	Data string
	End  bool
	Err  error // why the stream ended; nil for a clean end or a detach
}

// Source produces output for one key.
type Source interface {
	Key() string
	// Open acquires the file or process. A source that fails to open emits nothing.
	Open(ctx context.Context) error
	// Run delivers chunks until the source is exhausted or ctx is done.
	Run(ctx context.Context, emit func(chunk string)) error
	// Close releases the source. It is safe to call more than once.
	Close() error
}

type attachment struct {
	src    Source
	cancel context.CancelFunc
}

// Adapter runs sources and merges their output into one event channel.
// Chunks of a single stream keep their production order and are followed by
// exactly one end event.
type Adapter struct {
	in     chan<- Event
	out    <-chan Event
	logger pslog.Logger

	mu     sync.Mutex
	active map[string]*attachment
	closed bool
	wg     sync.WaitGroup
}

// NewAdapter creates an adapter. Producers never block on a slow consumer.
func NewAdapter(logger pslog.Logger) *Adapter {
	in, out := buffer.Unbounded[Event](256, 0, nil)
	return &Adapter{
		in:     in,
		out:    out,
		logger: logger,
		active: make(map[string]*attachment),
	}
}

// Events returns the merged feed. It is closed after Close.
func (a *Adapter) Events() <-chan Event {
	return a.out
}

// Attach opens src and starts delivering its output. Open failures are
// returned to the caller and produce no events.
func (a *Adapter) Attach(ctx context.Context, src Source) error {
	key := src.Key()
	if err := a.admit(key); err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(ctx)
	if err := src.Open(sctx); err != nil {
		cancel()
		return fmt.Errorf("open %s: %w", key, err)
	}

	a.mu.Lock()
	if err := a.admitLocked(key); err != nil {
		a.mu.Unlock()
		cancel()
		src.Close()
		return err
	}
	a.active[key] = &attachment{src: src, cancel: cancel}
	a.wg.Add(1)
	a.mu.Unlock()

	a.logger.Debug("stream attached", "stream", key)
	go a.run(sctx, cancel, key, src)
	return nil
}

func (a *Adapter) admit(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admitLocked(key)
}

func (a *Adapter) admitLocked(key string) error {
	if a.closed {
		return ErrClosed
	}
	if _, ok := a.active[key]; ok {
		return fmt.Errorf("%w: %s", ErrActive, key)
	}
	return nil
}

func (a *Adapter) run(ctx context.Context, cancel context.CancelFunc, key string, src Source) {
	defer a.wg.Done()

	stop := context.AfterFunc(ctx, func() { src.Close() })
	err := src.Run(ctx, func(chunk string) {
		a.in <- Event{Key: key, Data: chunk}
	})
	stop()
	src.Close()
	if ctx.Err() != nil {
		err = nil
	}
	cancel()

	a.mu.Lock()
	if cur, ok := a.active[key]; ok && cur.src == src {
		delete(a.active, key)
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Debug("stream failed", "stream", key, "err", err)
	} else {
		a.logger.Debug("stream ended", "stream", key)
	}
	a.in <- Event{Key: key, End: true, Err: err}
}

// Detach stops following key. The stream still emits its end event.
func (a *Adapter) Detach(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	at, ok := a.active[key]
	if ok {
		at.cancel()
	}
	return ok
}

// Active returns the followed keys in sorted order.
func (a *Adapter) Active() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.active))
	for k := range a.active {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Close stops every source, waits for them and closes the event feed.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	for _, at := range a.active {
		at.cancel()
	}
	a.mu.Unlock()

	a.wg.Wait()
	close(a.in)
}

// IsRemote reports whether path names a file on another host: a URL, a
// "/method:host:" remote prefix, or an scp style "host:path".
func IsRemote(path string) bool {
	if strings.Contains(path, "://") {
		return true
	}
	if rest, ok := strings.CutPrefix(path, "/"); ok {
		i := strings.IndexByte(rest, ':')
		j := strings.IndexByte(rest, '/')
		return i > 0 && (j < 0 || i < j) && isMethod(rest[:i]) && strings.Count(rest, ":") >= 2
	}
	i := strings.IndexByte(path, ':')
	if i <= 1 {
		// No colon, or a drive letter.
		return false
	}
	j := strings.IndexByte(path, '/')
	return j < 0 || i < j
}

func isMethod(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
