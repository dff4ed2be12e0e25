package surface

import (
	"slices"
	"testing"
)

func TestBufferWrite(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
		text   string
	}{
		{"single line", []string{"a\n"}, []string{"a"}, "a\n"},
		{"split line", []string{"he", "llo\nwor", "ld\n"}, []string{"hello", "world"}, "hello\nworld\n"},
		{"open tail", []string{"a\nb"}, []string{"a", "b"}, "a\nb"},
		{"blank line", []string{"a\n", "\n"}, []string{"a", ""}, "a\n\n"},
		{"empty chunk", []string{""}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b buffer
			for _, c := range tt.chunks {
				b.write(c)
			}
			if !slices.Equal(b.lines, tt.want) {
				t.Errorf("lines = %q, want %q", b.lines, tt.want)
			}
			if got := b.text(); got != tt.text {
				t.Errorf("text = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestBufferLimit(t *testing.T) {
	b := buffer{limit: 3}
	b.write("1\n2\n3\n4\n5\n")
	if !slices.Equal(b.lines, []string{"3", "4", "5"}) {
		t.Errorf("lines = %q", b.lines)
	}
	if got := b.tail(2); !slices.Equal(got, []string{"4", "5"}) {
		t.Errorf("tail(2) = %q", got)
	}
	if got := b.tail(10); len(got) != 3 {
		t.Errorf("tail(10) len = %d, want 3", len(got))
	}
}

func TestMeasurerRows(t *testing.T) {
	m := newMeasurer()
	tests := []struct {
		line  string
		width int
		want  int
	}{
		{"", 10, 1},
		{"0123456789", 10, 1},
		{"0123456789a", 10, 2},
		{"\x1b[31m0123456789\x1b[0m", 10, 1},
		{"a\tb", 4, 2},
		{"anything", 0, 1},
	}
	for _, tt := range tests {
		if got := m.rows(tt.line, tt.width); got != tt.want {
			t.Errorf("rows(%q, %d) = %d, want %d", tt.line, tt.width, got, tt.want)
		}
	}
}
