package schedule

import (
	"fmt"
	"time"
)

const (
	// horizonDays bounds how far ahead the planner searches for a slot.
	horizonDays = 14
	// collisionRadius is the minimum spacing between two publish slots.
	collisionRadius = 60 * time.Second
	// minLead is the shortest notice a same-day slot may give.
	minLead = time.Minute
)

// Planner computes the next available publish slot under cap, window, and
// collision constraints. The zero value is unusable; build one with
// NewPlanner or populate every field.
type Planner struct {
	Location *time.Location
	DailyCap int
	Windows  []Window
}

// NewPlanner resolves the timezone and window list into a Planner.
func NewPlanner(timezone string, dailyCap int, windows []string) (*Planner, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	parsed, err := ParseWindows(windows)
	if err != nil {
		return nil, err
	}
	return &Planner{
		Location: location,
		DailyCap: dailyCap,
		Windows:  parsed,
	}, nil
}

// NextSlot returns the earliest publish timestamp satisfying every
// constraint, or false when no slot exists within the horizon. taken holds
// the publish times already claimed by other items, persisted or assigned
// earlier in the same run; day-boundary counting and collision comparison
// both use the planner's Location so DST transitions cannot shift an item
// across days.
func (p *Planner) NextSlot(now time.Time, taken []time.Time) (time.Time, bool) {
	if p == nil || p.Location == nil || p.DailyCap <= 0 || len(p.Windows) == 0 {
		return time.Time{}, false
	}

	perDay := make(map[string]int, len(taken))
	for _, slot := range taken {
		perDay[p.dayKey(slot)]++
	}

	local := now.In(p.Location)
	year, month, day := local.Date()

	for offset := 0; offset < horizonDays; offset++ {
		dayStart := time.Date(year, month, day+offset, 0, 0, 0, 0, p.Location)
		if perDay[p.dayKey(dayStart)] >= p.DailyCap {
			continue
		}

		for _, window := range p.Windows {
			candidate := time.Date(year, month, day+offset, window.Hour, window.Minute, 0, 0, p.Location)
			if offset == 0 && candidate.Before(now.Add(minLead)) {
				continue
			}
			if collides(candidate, taken) {
				continue
			}
			return candidate, true
		}
	}

	return time.Time{}, false
}

func (p *Planner) dayKey(t time.Time) string {
	return t.In(p.Location).Format("2006-01-02")
}

func collides(candidate time.Time, taken []time.Time) bool {
	for _, slot := range taken {
		delta := candidate.Sub(slot)
		if delta < 0 {
			delta = -delta
		}
		if delta < collisionRadius {
			return true
		}
	}
	return false
}
