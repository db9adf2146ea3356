package schedule

import (
	"errors"
	"sort"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
)

// Mode selects how activation slots are computed.
type Mode string

const (
	// ModeFixed rotates at a fixed set of daily local clock hours.
	ModeFixed Mode = "fixed"
	// ModeRolling rotates on a fixed-duration window starting now.
	ModeRolling Mode = "rolling"
)

// Slot is one planned broadcast window. Deadline is the activation of the
// following slot, so slot length varies when fixed hours are unevenly
// spaced.
type Slot struct {
	Activation time.Time
	Deadline   time.Time
}

// Planner computes the next activation slot. Planners are immutable; a slot
// is computed fresh each cycle.
type Planner struct {
	mode     Mode
	hours    []int
	loc      *time.Location
	rotation time.Duration
}

// NewFixed builds a fixed-hours planner. Hours are local clock hours in loc.
func NewFixed(hours []int, loc *time.Location) (*Planner, error) {
	if len(hours) == 0 {
		return nil, errors.New("fixed planner requires at least one hour")
	}
	if loc == nil {
		return nil, errors.New("fixed planner requires a timezone")
	}
	sorted := append([]int{}, hours...)
	sort.Ints(sorted)
	for _, hour := range sorted {
		if hour < 0 || hour > 23 {
			return nil, errors.New("fixed planner hours must be within 0-23")
		}
	}
	return &Planner{mode: ModeFixed, hours: sorted, loc: loc}, nil
}

// NewRolling builds a rolling-window planner.
func NewRolling(rotation time.Duration) (*Planner, error) {
	if rotation <= 0 {
		return nil, errors.New("rolling planner requires a positive rotation")
	}
	return &Planner{mode: ModeRolling, rotation: rotation}, nil
}

// FromConfig picks the planner mode: fixed when fixed start hours are
// configured, rolling otherwise.
func FromConfig(cfg *config.Config) (*Planner, error) {
	hours, err := cfg.FixedHours()
	if err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		return NewFixed(hours, loc)
	}
	return NewRolling(cfg.Rotation())
}

// Mode reports the planner mode.
func (p *Planner) Mode() Mode {
	return p.mode
}

// Next returns the slot following ref. In fixed mode the activation is the
// nearest future occurrence of a configured hour (strictly after ref,
// wrapping to the next day) and the deadline is the activation of the slot
// after it. In rolling mode activation is ref and the deadline is
// ref plus the rotation window.
func (p *Planner) Next(ref time.Time) Slot {
	if p.mode == ModeRolling {
		return Slot{Activation: ref, Deadline: ref.Add(p.rotation)}
	}
	activation := p.nextFixed(ref)
	deadline := p.nextFixed(activation.Add(time.Second))
	return Slot{Activation: activation, Deadline: deadline}
}

func (p *Planner) nextFixed(ref time.Time) time.Time {
	local := ref.In(p.loc)
	for day := 0; day <= 1; day++ {
		date := local.AddDate(0, 0, day)
		for _, hour := range p.hours {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, p.loc)
			if candidate.After(ref) {
				return candidate
			}
		}
	}
	// Unreachable: tomorrow always holds a future occurrence of every hour.
	return local.AddDate(0, 0, 1)
}
