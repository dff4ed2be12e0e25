package surface

import (
	"fmt"
	"slices"
)

const inputHeight = 1

// StackOptions configure a Stack.
type StackOptions struct {
	Width        int
	Height       int
	Scrollback   int // retained lines per region; 0 = unbounded
	Unsplittable bool
	Exempt       func(key string) bool
}

type region struct {
	Region
	buf      buffer
	writable bool
	modified bool
}

// Stack is a terminal laid out as a column of tiled regions above a one-line
// input region. The first region is the work area; panes are carved below it.
// Floating regions sit between the tiled column and the input line.
//
// Stack is not safe for concurrent use. The session loop owns it and hands
// copies to the renderer through Snapshot.
type Stack struct {
	width  int
	height int

	tiled    []*region
	input    *region
	floating []*region

	selected RegionID
	nextID   RegionID

	unsplittable bool
	exempt       func(string) bool
	scrollback   int
	measure      *measurer
}

var _ Host = (*Stack)(nil)

// NewStack creates a stack holding only the work area and the input region.
func NewStack(opts StackOptions) *Stack {
	s := &Stack{
		width:        opts.Width,
		height:       opts.Height,
		unsplittable: opts.Unsplittable,
		exempt:       opts.Exempt,
		scrollback:   opts.Scrollback,
		measure:      newMeasurer(),
	}

	work := s.newRegion()
	s.tiled = []*region{work}

	s.input = s.newRegion()
	s.input.Input = true
	s.input.Height = inputHeight

	s.selected = work.ID
	s.fit()
	return s
}

func (s *Stack) newRegion() *region {
	s.nextID++
	r := &region{Region: Region{ID: s.nextID}}
	r.buf.limit = s.scrollback
	return r
}

// --- Sizing ---

// SetSize re-flows the stack for a new terminal size. Pane heights are kept
// where possible; the work area absorbs the difference.
func (s *Stack) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.fit()
}

// Size returns the terminal dimensions.
func (s *Stack) Size() (width, height int) {
	return s.width, s.height
}

// SetUnsplittable toggles generic-display placement.
func (s *Stack) SetUnsplittable(v bool) {
	s.unsplittable = v
}

// SetExempt replaces the exemption predicate.
func (s *Stack) SetExempt(fn func(string) bool) {
	s.exempt = fn
}

// SetScrollback changes the per-region retention for existing and new regions.
func (s *Stack) SetScrollback(lines int) {
	s.scrollback = lines
	for _, r := range s.all() {
		r.buf.limit = lines
		r.buf.bound()
	}
}

func (s *Stack) available() int {
	if avail := s.height - inputHeight; avail > 0 {
		return avail
	}
	return 0
}

// fit makes the tiled column and the floating regions fill the rows above
// the input line. Work regions give rows up first, then panes top to bottom,
// then floating regions.
func (s *Stack) fit() {
	diff := s.available() - s.floatingRows()
	for _, r := range s.tiled {
		diff -= r.Rows()
	}
	if diff > 0 {
		s.tiled[0].Height += diff
	}
	for _, i := range s.shrinkOrder() {
		if diff >= 0 {
			break
		}
		r := s.tiled[i]
		give := min(r.Height-s.minHeight(r), -diff)
		if give > 0 {
			r.Height -= give
			diff += give
		}
	}
	for _, f := range s.floating {
		if diff >= 0 {
			break
		}
		give := min(f.Height, -diff)
		f.Height -= give
		diff += give
	}
	s.reflow()
}

// reflow stacks the tiled regions from the top, the floating regions below
// them and the input line last.
func (s *Stack) reflow() {
	top := 0
	for _, r := range s.tiled {
		r.Top = top
		top += r.Rows()
	}
	bottom := min(top+s.floatingRows(), s.available())
	s.input.Top = bottom
	for _, f := range s.floating {
		f.Top = bottom - f.Rows()
		bottom = f.Top
	}
}

// minHeight keeps the work area visible; pane regions may shrink to nothing.
func (s *Stack) minHeight(r *region) int {
	if r.Key == "" {
		return 1
	}
	return 0
}

func (s *Stack) shrinkOrder() []int {
	var work, panes []int
	for i, r := range s.tiled {
		if r.Key == "" {
			work = append(work, i)
		} else {
			panes = append(panes, i)
		}
	}
	return append(work, panes...)
}

func (s *Stack) floatingRows() int {
	n := 0
	for _, f := range s.floating {
		n += f.Rows()
	}
	return n
}

// workSlack counts the rows work regions can give up.
func (s *Stack) workSlack() int {
	n := 0
	for _, r := range s.tiled {
		if r.Key == "" {
			n += r.Height - s.minHeight(r)
		}
	}
	return n
}

// borrow moves n rows out of the column, taking them from the work regions
// nearest to tiled index i. Nothing moves when those regions cannot cover n.
func (s *Stack) borrow(i, n int) bool {
	var donors []*region
	slack := 0
	for _, j := range s.byDistance(i) {
		if w := s.tiled[j]; w.Key == "" {
			donors = append(donors, w)
			slack += w.Height - s.minHeight(w)
		}
	}
	if slack < n {
		return false
	}
	for _, w := range donors {
		give := min(w.Height-s.minHeight(w), n)
		w.Height -= give
		n -= give
	}
	return true
}

// --- Lookup ---

func (s *Stack) all() []*region {
	out := make([]*region, 0, len(s.tiled)+len(s.floating)+1)
	out = append(out, s.tiled...)
	out = append(out, s.input)
	out = append(out, s.floating...)
	return out
}

func (s *Stack) find(id RegionID) *region {
	for _, r := range s.all() {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Stack) tiledIndex(id RegionID) int {
	return slices.IndexFunc(s.tiled, func(r *region) bool { return r.ID == id })
}

func (s *Stack) floatingIndex(id RegionID) int {
	return slices.IndexFunc(s.floating, func(r *region) bool { return r.ID == id })
}

// byDistance lists the other tiled indexes nearest first, below before above,
// with work regions ahead of pane regions so panes keep their fitted height.
func (s *Stack) byDistance(i int) []int {
	var work, panes []int
	for d := 1; d < len(s.tiled); d++ {
		for _, j := range []int{i + d, i - d} {
			if j < 0 || j >= len(s.tiled) {
				continue
			}
			if s.tiled[j].Key == "" {
				work = append(work, j)
			} else {
				panes = append(panes, j)
			}
		}
	}
	return append(work, panes...)
}

// --- Layout ---

// Regions implements Layout.
func (s *Stack) Regions() []Region {
	out := make([]Region, 0, len(s.tiled)+len(s.floating)+1)
	for _, r := range s.all() {
		out = append(out, r.Region)
	}
	return out
}

// Region implements Layout.
func (s *Stack) Region(id RegionID) (Region, bool) {
	if r := s.find(id); r != nil {
		return r.Region, true
	}
	return Region{}, false
}

// Selected implements Layout.
func (s *Stack) Selected() RegionID {
	return s.selected
}

// Select implements Layout. Unknown IDs are ignored.
func (s *Stack) Select(id RegionID) {
	if s.find(id) != nil {
		s.selected = id
	}
}

// NextRegion implements Layout.
func (s *Stack) NextRegion(id RegionID) RegionID {
	i := s.tiledIndex(id)
	if i < 0 {
		return s.tiled[0].ID
	}
	return s.tiled[(i+1)%len(s.tiled)].ID
}

// CycleFocus moves the selection through tiled regions, floating regions and
// finally the input line.
func (s *Stack) CycleFocus() RegionID {
	order := make([]RegionID, 0, len(s.tiled)+len(s.floating)+1)
	for _, r := range s.tiled {
		order = append(order, r.ID)
	}
	for _, r := range s.floating {
		order = append(order, r.ID)
	}
	order = append(order, s.input.ID)

	i := slices.Index(order, s.selected)
	s.selected = order[(i+1)%len(order)]
	return s.selected
}

// InputRegion implements Layout.
func (s *Stack) InputRegion() RegionID {
	return s.input.ID
}

// Unsplittable implements Layout.
func (s *Stack) Unsplittable() bool {
	return s.unsplittable
}

// Exempt implements Layout.
func (s *Stack) Exempt(key string) bool {
	return s.exempt != nil && s.exempt(key)
}

// RegionFor implements Layout.
func (s *Stack) RegionFor(key string) (RegionID, bool) {
	if key == "" {
		return NoRegion, false
	}
	for _, r := range s.all() {
		if !r.Input && r.Key == key {
			return r.ID, true
		}
	}
	return NoRegion, false
}

// Split implements Layout. The upper half keeps the larger share. A region
// too small to halve keeps its rows and the new region borrows from the work
// area instead.
func (s *Stack) Split(id RegionID) (RegionID, error) {
	if id == s.input.ID {
		return NoRegion, ErrInputRegion
	}
	i := s.tiledIndex(id)
	if i < 0 {
		return NoRegion, ErrNoRegion
	}
	r := s.tiled[i]
	lower := 1
	switch {
	case r.Height >= 3:
		lower = (r.Height - 1) / 2
		r.Height = r.Height - 1 - lower
	case !s.borrow(i, lower+1):
		// Too small to halve and no work rows to carve a title and a text row from.
		return NoRegion, ErrTooSmall
	}

	nr := s.newRegion()
	nr.Height = lower
	s.tiled = slices.Insert(s.tiled, i+1, nr)
	s.reflow()
	return nr.ID, nil
}

// Resize implements Layout. Growing takes rows from the nearest work region
// first; shrinking hands rows back the same way.
func (s *Stack) Resize(id RegionID, delta int) (int, error) {
	if id == s.input.ID {
		return 0, ErrInputRegion
	}
	if j := s.floatingIndex(id); j >= 0 {
		f := s.floating[j]
		h := max(0, min(f.Height+delta, f.Height+s.workSlack()))
		applied := h - f.Height
		f.Height = h
		s.fit()
		return applied, nil
	}
	i := s.tiledIndex(id)
	if i < 0 {
		return 0, ErrNoRegion
	}
	r := s.tiled[i]
	applied := 0

	switch {
	case delta > 0:
		need := delta
		for _, j := range s.byDistance(i) {
			n := s.tiled[j]
			give := min(n.Height-s.minHeight(n), need)
			if give > 0 {
				n.Height -= give
				need -= give
			}
			if need == 0 {
				break
			}
		}
		applied = delta - need
		r.Height += applied

	case delta < 0:
		donors := s.byDistance(i)
		if len(donors) == 0 {
			return 0, nil
		}
		take := max(0, min(-delta, r.Height-s.minHeight(r)))
		r.Height -= take
		s.tiled[donors[0]].Height += take
		applied = -take
	}

	s.reflow()
	return applied, nil
}

// Remove implements Layout. A tiled region's rows go to its nearest
// neighbour, preferring a work region. The last tiled region stays.
func (s *Stack) Remove(id RegionID) error {
	if id == s.input.ID {
		return ErrInputRegion
	}
	if j := s.floatingIndex(id); j >= 0 {
		s.floating = slices.Delete(s.floating, j, j+1)
		if s.selected == id {
			s.selected = s.tiled[0].ID
		}
		s.fit()
		return nil
	}
	i := s.tiledIndex(id)
	if i < 0 {
		return ErrNoRegion
	}
	if len(s.tiled) == 1 {
		return fmt.Errorf("%w: cannot remove the last region", ErrNoRegion)
	}
	r := s.tiled[i]
	recipient := s.tiled[s.byDistance(i)[0]]
	recipient.Height += r.Rows()

	s.tiled = slices.Delete(s.tiled, i, i+1)
	if s.selected == id {
		s.selected = recipient.ID
	}
	s.reflow()
	return nil
}

// Display implements Layout. A key without a region gets a floating one just
// above the input line. Its rows come out of the work area, so it never covers
// a tiled pane while the work area has rows to spare.
func (s *Stack) Display(key string) (RegionID, error) {
	if id, ok := s.RegionFor(key); ok {
		return id, nil
	}
	f := s.newRegion()
	f.Key = key
	f.Floating = true
	if s.workSlack() >= 2 {
		f.Height = 1
	}
	s.floating = append(s.floating, f)
	s.fit()
	return f.ID, nil
}

// Bind implements Layout.
func (s *Stack) Bind(id RegionID, key string) error {
	if id == s.input.ID {
		return ErrInputRegion
	}
	r := s.find(id)
	if r == nil {
		return ErrNoRegion
	}
	r.Key = key
	return nil
}

// --- Content ---

// SetWritable implements Content.
func (s *Stack) SetWritable(id RegionID, writable bool) error {
	r := s.find(id)
	if r == nil {
		return ErrNoRegion
	}
	r.writable = writable
	return nil
}

// Erase implements Content.
func (s *Stack) Erase(id RegionID) error {
	r := s.find(id)
	if r == nil {
		return ErrNoRegion
	}
	if !r.writable {
		return ErrReadOnly
	}
	r.buf.reset()
	r.modified = true
	return nil
}

// Insert implements Content.
func (s *Stack) Insert(id RegionID, text string) error {
	r := s.find(id)
	if r == nil {
		return ErrNoRegion
	}
	if !r.writable {
		return ErrReadOnly
	}
	r.buf.write(text)
	if text != "" {
		r.modified = true
	}
	return nil
}

// ContentHeight implements Content.
func (s *Stack) ContentHeight(id RegionID) int {
	r := s.find(id)
	if r == nil {
		return 0
	}
	return s.measure.height(r.buf.lines, s.width)
}

// SetUnmodified implements Content.
func (s *Stack) SetUnmodified(id RegionID) {
	if r := s.find(id); r != nil {
		r.modified = false
	}
}

// Modified implements Content.
func (s *Stack) Modified(id RegionID) bool {
	if r := s.find(id); r != nil {
		return r.modified
	}
	return false
}

// Text implements Content.
func (s *Stack) Text(id RegionID) string {
	if r := s.find(id); r != nil {
		return r.buf.text()
	}
	return ""
}

// Print appends a message line to the work area.
func (s *Stack) Print(msg string) {
	for _, r := range s.tiled {
		if r.Key == "" {
			r.buf.write(msg + "\n")
			return
		}
	}
}

// Echo replaces the input line's message.
func (s *Stack) Echo(msg string) {
	s.input.buf.reset()
	s.input.buf.write(msg)
}

// --- Snapshot ---

// RegionView is a region as the renderer sees it.
type RegionView struct {
	Region
	Lines    []string // trailing lines, enough to fill Height
	Selected bool
}

// Snapshot is an immutable copy of the stack for drawing.
type Snapshot struct {
	Width   int
	Height  int
	Regions []RegionView
}

// Snapshot copies the layout and the visible tail of each region.
func (s *Stack) Snapshot() Snapshot {
	snap := Snapshot{Width: s.width, Height: s.height}
	for _, r := range s.all() {
		snap.Regions = append(snap.Regions, RegionView{
			Region:   r.Region,
			Lines:    r.buf.tail(max(r.Height, 1)),
			Selected: r.ID == s.selected,
		})
	}
	return snap
}
