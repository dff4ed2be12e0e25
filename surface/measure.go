package surface

import (
	"github.com/charmbracelet/lipgloss"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drake/tailpane/internal/textutil"
)

const measureCacheSize = 4096

type measureKey struct {
	line  string
	width int
}

// measurer counts the screen rows a line wraps to.
// Tail output repeats the same lines on every fit, so results are cached.
type measurer struct {
	cache *lru.Cache[measureKey, int]
}

func newMeasurer() *measurer {
	cache, _ := lru.New[measureKey, int](measureCacheSize)
	return &measurer{cache: cache}
}

// rows returns how many rows line occupies at width. Empty lines take one row.
func (m *measurer) rows(line string, width int) int {
	if width <= 0 {
		return 1
	}
	key := measureKey{line: line, width: width}
	if n, ok := m.cache.Get(key); ok {
		return n
	}
	w := lipgloss.Width(textutil.Sanitize(line))
	n := 1
	if w > width {
		n = (w + width - 1) / width
	}
	m.cache.Add(key, n)
	return n
}

func (m *measurer) height(lines []string, width int) int {
	total := 0
	for _, line := range lines {
		total += m.rows(line, width)
	}
	return total
}
