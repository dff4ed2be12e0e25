// Package layout decides where a new pane goes on the surface.
package layout

import (
	"errors"

	"github.com/drake/tailpane/surface"
)

// Placement reports how a region was obtained.
type Placement int

const (
	// Reused means the key already had a region.
	Reused Placement = iota
	// Split means the lowest region was divided and the lower half taken.
	Split
	// Displayed means the host's generic display operation placed the key.
	Displayed
)

func (p Placement) String() string {
	switch p {
	case Reused:
		return "reused"
	case Split:
		return "split"
	case Displayed:
		return "displayed"
	}
	return "unknown"
}

// Locate returns a region bound to key.
//
// A region already showing key is reused. Unsplittable layouts and exempt keys
// go through Display. Otherwise the physically lowest tiled region is split and
// its lower half bound to key. A split that cannot happen degrades to Display.
// The input region is never split, and selection is left where it was.
func Locate(l surface.Layout, key string) (surface.RegionID, Placement, error) {
	if id, ok := l.RegionFor(key); ok {
		return id, Reused, nil
	}
	if l.Unsplittable() || l.Exempt(key) {
		return display(l, key)
	}

	selected := l.Selected()
	if selected == l.InputRegion() {
		l.Select(l.NextRegion(selected))
	}

	lowest, ok := Lowest(l)
	if !ok {
		restore(l, selected)
		return display(l, key)
	}
	id, err := l.Split(lowest)
	restore(l, selected)
	if err != nil {
		return display(l, key)
	}
	if err := l.Bind(id, key); err != nil {
		return surface.NoRegion, Split, err
	}
	return id, Split, nil
}

// Lowest walks the circular region order once, starting at the selected
// region, and returns the region whose bottom edge is greatest. The first
// region visited wins a tie.
func Lowest(l surface.Layout) (surface.RegionID, bool) {
	start := l.Selected()
	r, ok := l.Region(start)
	if !ok || r.Input || r.Floating {
		start = l.NextRegion(start)
		if r, ok = l.Region(start); !ok {
			return surface.NoRegion, false
		}
	}

	best, bottom := start, r.Bottom()
	limit := len(l.Regions())
	for cur, n := l.NextRegion(start), 0; cur != start && n < limit; cur, n = l.NextRegion(cur), n+1 {
		r, ok := l.Region(cur)
		if !ok {
			break
		}
		if r.Bottom() > bottom {
			best, bottom = cur, r.Bottom()
		}
	}
	return best, true
}

func restore(l surface.Layout, selected surface.RegionID) {
	if selected != l.InputRegion() {
		l.Select(selected)
	}
}

func display(l surface.Layout, key string) (surface.RegionID, Placement, error) {
	id, err := l.Display(key)
	if err != nil {
		return surface.NoRegion, Displayed, errors.Join(surface.ErrNoRegion, err)
	}
	return id, Displayed, nil
}
