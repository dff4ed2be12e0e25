// Package surface describes the display host the pane core runs against.
//
// The host owns the layout: a column of tiled regions with a one-line input
// region at the bottom, plus floating regions used by the generic display
// operation. The core only queries geometry and asks for mutations through the
// narrow Layout and Content interfaces, so any terminal or windowed toolkit can
// implement them. Stack is the in-memory implementation the terminal UI draws.
package surface

import "errors"

// RegionID identifies a region for its whole lifetime. IDs are never reused.
type RegionID int

// NoRegion is the zero RegionID.
const NoRegion RegionID = 0

var (
	// ErrNoRegion is returned when a region does not exist or cannot be produced.
	ErrNoRegion = errors.New("no such region")
	// ErrTooSmall is returned when a region has too few rows to split.
	ErrTooSmall = errors.New("region too small to split")
	// ErrReadOnly is returned when content is written to a region that is not writable.
	ErrReadOnly = errors.New("region is read-only")
	// ErrInputRegion is returned for layout mutations targeting the input region.
	ErrInputRegion = errors.New("input region cannot host a pane")
)

// Region is a rectangular strip of the surface.
// Tiled and floating regions draw a one-row title above Height text rows.
type Region struct {
	ID       RegionID
	Key      string // bound stream key; empty for the work area
	Top      int    // first row, title included
	Height   int    // text rows
	Floating bool
	Input    bool
}

// Rows returns the total rows occupied, title included.
func (r Region) Rows() int {
	if r.Input {
		return r.Height
	}
	return r.Height + 1
}

// Bottom returns the row just below the region.
func (r Region) Bottom() int {
	return r.Top + r.Rows()
}

// Layout is the geometry half of the display host.
type Layout interface {
	// Regions returns tiled regions top to bottom, then the input region, then floating ones.
	Regions() []Region
	Region(id RegionID) (Region, bool)

	Selected() RegionID
	Select(id RegionID)
	// NextRegion follows the circular order of tiled regions. The input
	// region and floating regions are not part of the cycle.
	NextRegion(id RegionID) RegionID
	InputRegion() RegionID

	Unsplittable() bool
	// Exempt reports whether key must be placed through Display.
	Exempt(key string) bool
	// RegionFor returns the region currently showing key.
	RegionFor(key string) (RegionID, bool)

	// Split divides a tiled region and returns the new lower half.
	Split(id RegionID) (RegionID, error)
	// Resize grows or shrinks a region and returns the delta actually applied.
	Resize(id RegionID, delta int) (int, error)
	Remove(id RegionID) error
	// Display shows key somewhere without computing a split.
	Display(key string) (RegionID, error)
	Bind(id RegionID, key string) error
}

// Content is the buffer half of the display host.
type Content interface {
	SetWritable(id RegionID, writable bool) error
	Erase(id RegionID) error
	Insert(id RegionID, text string) error
	// ContentHeight returns the rows the content needs at the region's width.
	ContentHeight(id RegionID) int
	SetUnmodified(id RegionID)
	Modified(id RegionID) bool
	Text(id RegionID) string
}

// Host is the full capability set the pane core consumes.
type Host interface {
	Layout
	Content
}

// Signals are the user-visible side effects of an update.
type Signals interface {
	Bell()
	Raise()
}
