package stream

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

const readSize = 4096

// CommandSource runs a command and streams its combined stdout and stderr.
// Every read becomes one chunk, the way output arrives from the process.
type CommandSource struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
	PTY  bool     // run under a pseudo terminal

	cmd       *exec.Cmd
	out       io.ReadCloser
	closeOnce sync.Once
}

// NewCommand creates a source for name with args.
func NewCommand(name string, args ...string) *CommandSource {
	return &CommandSource{Name: name, Args: args}
}

// Key implements Source. The key is the command line.
func (c *CommandSource) Key() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Open implements Source. A command that cannot start fails here.
func (c *CommandSource) Open(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if c.PTY {
		f, err := pty.Start(cmd)
		if err != nil {
			return err
		}
		c.cmd, c.out = cmd, f
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return err
	}
	// The child holds its own copy of the write end.
	w.Close()
	c.cmd, c.out = cmd, r
	return nil
}

// Run implements Source. It returns the command's exit error, if any.
func (c *CommandSource) Run(ctx context.Context, emit func(string)) error {
	buf := make([]byte, readSize)
	for {
		n, err := c.out.Read(buf)
		if n > 0 {
			emit(string(buf[:n]))
		}
		if err != nil {
			// A pty reports EIO once the child side is gone.
			if !errors.Is(err, io.EOF) && !errors.Is(err, syscall.EIO) && !errors.Is(err, os.ErrClosed) {
				c.cmd.Wait()
				return err
			}
			break
		}
	}
	return c.cmd.Wait()
}

// Close implements Source. The process is killed if still running.
func (c *CommandSource) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.cmd != nil && c.cmd.Process != nil {
			c.cmd.Process.Kill()
		}
		if c.out != nil {
			err = c.out.Close()
		}
	})
	return err
}
