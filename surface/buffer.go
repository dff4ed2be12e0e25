package surface

import "strings"

// buffer holds the retained text of a region as lines.
// The last line stays open until a newline arrives, so chunks that split a
// line in two are joined back together.
type buffer struct {
	lines []string
	open  bool
	limit int // 0 = unbounded
}

func (b *buffer) write(text string) {
	if text == "" {
		return
	}
	parts := strings.Split(text, "\n")
	last := len(parts) - 1
	for i, part := range parts {
		if i == last && part == "" {
			break
		}
		if i == 0 && b.open && len(b.lines) > 0 {
			b.lines[len(b.lines)-1] += part
			continue
		}
		b.lines = append(b.lines, part)
	}
	b.open = parts[last] != ""
	b.bound()
}

func (b *buffer) bound() {
	if b.limit <= 0 || len(b.lines) <= b.limit {
		return
	}
	drop := len(b.lines) - b.limit
	b.lines = append([]string(nil), b.lines[drop:]...)
}

func (b *buffer) reset() {
	b.lines = nil
	b.open = false
}

func (b *buffer) text() string {
	if len(b.lines) == 0 {
		return ""
	}
	s := strings.Join(b.lines, "\n")
	if !b.open {
		s += "\n"
	}
	return s
}

// tail returns a copy of the last n lines.
func (b *buffer) tail(n int) []string {
	if n <= 0 || len(b.lines) == 0 {
		return nil
	}
	start := 0
	if len(b.lines) > n {
		start = len(b.lines) - n
	}
	out := make([]string, len(b.lines)-start)
	copy(out, b.lines[start:])
	return out
}
