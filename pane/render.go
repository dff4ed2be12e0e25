package pane

import (
	"fmt"
	"time"

	"github.com/drake/tailpane/surface"
)

// Renderer applies chunks to panes.
type Renderer struct {
	Host    surface.Host
	Signals surface.Signals // nil disables both signals

	AudibleAlert  bool
	RaiseOnUpdate bool

	now func() time.Time
}

// NewRenderer creates a renderer writing to host.
func NewRenderer(host surface.Host, signals surface.Signals) *Renderer {
	return &Renderer{Host: host, Signals: signals, now: time.Now}
}

// Apply writes chunk into the pane's region, replacing or appending per the
// pane's erase policy, then fits the region to its content. Signals fire only
// after the content is in place.
func (r *Renderer) Apply(p *Pane, chunk string) error {
	h := r.Host
	id := p.Region

	if err := h.SetWritable(id, true); err != nil {
		return fmt.Errorf("apply %s: %w", p.Key, err)
	}
	err := r.write(id, p.EraseOnUpdate, chunk)
	if werr := h.SetWritable(id, false); err == nil {
		err = werr
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", p.Key, err)
	}

	if _, err := r.Fit(p); err != nil {
		return fmt.Errorf("fit %s: %w", p.Key, err)
	}
	h.SetUnmodified(id)

	p.Updates++
	if r.now != nil {
		p.LastUpdate = r.now()
	}

	if r.Signals != nil {
		if r.AudibleAlert {
			r.Signals.Bell()
		}
		if r.RaiseOnUpdate {
			r.Signals.Raise()
		}
	}
	return nil
}

func (r *Renderer) write(id surface.RegionID, erase bool, chunk string) error {
	if erase {
		if err := r.Host.Erase(id); err != nil {
			return err
		}
	}
	return r.Host.Insert(id, chunk)
}

// Fit resizes the pane's region to min(content height, max height) and
// returns the resulting height.
func (r *Renderer) Fit(p *Pane) (int, error) {
	target := r.Host.ContentHeight(p.Region)
	if p.MaxHeight >= 0 && target > p.MaxHeight {
		target = p.MaxHeight
	}
	reg, ok := r.Host.Region(p.Region)
	if !ok {
		return 0, surface.ErrNoRegion
	}
	applied, err := r.Host.Resize(p.Region, target-reg.Height)
	if err != nil {
		return reg.Height, err
	}
	return reg.Height + applied, nil
}
