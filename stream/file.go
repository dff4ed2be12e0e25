package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hpcloud/tail"
)

const readBlock = 4096

// FileSource follows a growing local file. It first emits the last Context
// lines as one chunk, then every batch of appended lines. Rotation is followed
// by reopening the path.
type FileSource struct {
	Path    string
	Context int // lines of existing content shown on open

	t         *tail.Tail
	initial   string
	closeOnce sync.Once
}

// NewFile creates a source for path with n lines of initial context. The
// path is made absolute, so every spelling of a file shares one key.
func NewFile(path string, n int) *FileSource {
	return &FileSource{Path: FileKey(path), Context: n}
}

// FileKey returns the stream key for a file path: the cleaned absolute path,
// or path itself when it is remote or cannot be resolved.
func FileKey(path string) string {
	if path == "" || IsRemote(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Key implements Source.
func (f *FileSource) Key() string {
	return f.Path
}

// Open implements Source. Remote and unreadable paths fail here.
func (f *FileSource) Open(ctx context.Context) error {
	if IsRemote(f.Path) {
		return fmt.Errorf("%w: %s", ErrRemotePath, f.Path)
	}
	path, err := filepath.Abs(f.Path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	size := info.Size()
	f.initial, err = lastLines(file, size, f.Context)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	f.t, err = tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: size, Whence: io.SeekStart},
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("follow %s: %w", path, err)
	}
	return nil
}

// Run implements Source. Lines already waiting are delivered together.
func (f *FileSource) Run(ctx context.Context, emit func(string)) error {
	if f.initial != "" {
		emit(f.initial)
		f.initial = ""
	}

	var batch bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-f.t.Lines:
			if !ok {
				return f.t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			batch.Reset()
			batch.WriteString(line.Text)
			batch.WriteByte('\n')
			if err := f.drain(&batch); err != nil {
				emit(batch.String())
				return err
			}
			emit(batch.String())
		}
	}
}

func (f *FileSource) drain(batch *bytes.Buffer) error {
	for {
		select {
		case line, ok := <-f.t.Lines:
			if !ok {
				return f.t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			batch.WriteString(line.Text)
			batch.WriteByte('\n')
		default:
			return nil
		}
	}
}

// Close implements Source.
func (f *FileSource) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.t != nil {
			err = f.t.Stop()
		}
	})
	return err
}

// lastLines returns the final n lines of the first size bytes of r, reading
// backwards one block at a time.
func lastLines(r io.ReaderAt, size int64, n int) (string, error) {
	if n <= 0 || size <= 0 {
		return "", nil
	}

	var buf []byte
	off := size
	for off > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		step := min(int64(readBlock), off)
		off -= step
		block := make([]byte, step)
		if _, err := r.ReadAt(block, off); err != nil && err != io.EOF {
			return "", err
		}
		buf = append(block, buf...)
	}

	end := len(buf)
	if buf[end-1] == '\n' {
		end--
	}
	start, count := 0, 0
	for i := end - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			count++
			if count == n {
				start = i + 1
				break
			}
		}
	}
	return string(buf[start:]), nil
}
