// Package pane binds stream keys to regions of the surface and keeps their
// content fitted.
package pane

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/drake/tailpane/layout"
	"github.com/drake/tailpane/surface"
)

// Pane is the display state of one stream.
type Pane struct {
	Key       string
	Region    surface.RegionID
	Placement layout.Placement

	MaxHeight     int
	EraseOnUpdate bool

	// TimerID is the pending dismissal timer, 0 when none is armed.
	TimerID int

	Updates    int
	LastUpdate time.Time
}

// Options are applied to a pane when it is created.
type Options struct {
	MaxHeight     int
	EraseOnUpdate bool
}

// Store is the only owner of the key to pane mapping.
// Like the surface it places panes on, it belongs to the session loop.
type Store struct {
	host  surface.Host
	panes map[string]*Pane
}

// NewStore creates an empty store placing panes on host.
func NewStore(host surface.Host) *Store {
	return &Store{
		host:  host,
		panes: make(map[string]*Pane),
	}
}

// GetOrCreate returns the pane for key, creating it and its region when absent.
// A pane whose region was removed behind the store's back gets a new region.
// The second result reports whether a region was placed.
func (s *Store) GetOrCreate(key string, opts Options) (*Pane, bool, error) {
	if p, ok := s.panes[key]; ok {
		if s.valid(p) {
			return p, false, nil
		}
		id, how, err := layout.Locate(s.host, key)
		if err != nil {
			return nil, false, fmt.Errorf("place %s: %w", key, err)
		}
		p.Region, p.Placement = id, how
		return p, true, nil
	}

	id, how, err := layout.Locate(s.host, key)
	if err != nil {
		return nil, false, fmt.Errorf("place %s: %w", key, err)
	}
	p := &Pane{
		Key:           key,
		Region:        id,
		Placement:     how,
		MaxHeight:     opts.MaxHeight,
		EraseOnUpdate: opts.EraseOnUpdate,
	}
	s.panes[key] = p
	return p, true, nil
}

func (s *Store) valid(p *Pane) bool {
	r, ok := s.host.Region(p.Region)
	return ok && r.Key == p.Key
}

// Get returns the pane for key without creating one.
func (s *Store) Get(key string) (*Pane, bool) {
	p, ok := s.panes[key]
	return p, ok
}

// ByRegion returns the pane shown in region id.
func (s *Store) ByRegion(id surface.RegionID) (*Pane, bool) {
	for _, p := range s.panes {
		if p.Region == id {
			return p, true
		}
	}
	return nil, false
}

// Remove drops the pane for key and gives its region back to the layout.
// The removed pane is returned so its timer can be cancelled.
func (s *Store) Remove(key string) (*Pane, error) {
	p, ok := s.panes[key]
	if !ok {
		return nil, nil
	}
	delete(s.panes, key)
	if !s.valid(p) {
		return p, nil
	}
	if err := s.host.Remove(p.Region); err != nil && !errors.Is(err, surface.ErrNoRegion) {
		return p, fmt.Errorf("remove %s: %w", key, err)
	}
	return p, nil
}

// Clear removes every pane and returns them.
func (s *Store) Clear() []*Pane {
	var out []*Pane
	for _, key := range s.Keys() {
		p, _ := s.Remove(key)
		out = append(out, p)
	}
	return out
}

// Len returns the number of live panes.
func (s *Store) Len() int {
	return len(s.panes)
}

// Keys returns the live keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.panes))
	for k := range s.panes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
