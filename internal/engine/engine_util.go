package engine

import (
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
)

func NewState(recipes []recipe.Recipe, rules Rules) State {
	s := State{
		Dishes: make([]Dish, 0, len(recipes)),
		Status: StatusActive,
		Rules:  rules,
	}
	for _, r := range recipes {
		d := Dish{Name: r.Name, Steps: r.Steps, Block: BlockIdle}
		if len(r.Steps) == 0 {
			d.Block = BlockFinished
		}
		s.Dishes = append(s.Dishes, d)
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Remaining is the time left on a timing dish, clamped at zero.
func Remaining(d Dish, now time.Time) time.Duration {
	if d.Block != BlockTiming {
		return 0
	}
	if left := d.Deadline.Sub(now); left > 0 {
		return left
	}
	return 0
}

// nextServable scans from the focused dish, wrapping, for the first dish that
// is neither timing nor finished.
func nextServable(s State) (int, bool) {
	n := len(s.Dishes)
	for i := 0; i < n; i++ {
		idx := (s.LastServed + i) % n
		switch s.Dishes[idx].Block {
		case BlockTiming, BlockFinished:
			continue
		}
		return idx, true
	}
	return 0, false
}

func soonestTiming(s State, now time.Time) (int, bool) {
	best, found := 0, false
	for i, d := range s.Dishes {
		if d.Block != BlockTiming {
			continue
		}
		if !found || Remaining(d, now) < Remaining(s.Dishes[best], now) {
			best, found = i, true
		}
	}
	return best, found
}

func heldStep(d Dish) *recipe.Step {
	if d.Cursor == 0 {
		return nil
	}
	st := d.Steps[d.Cursor-1]
	return &st
}

func (r Rules) scale(d time.Duration) time.Duration {
	if r.TimeScale <= 0 || r.TimeScale == 1 {
		return d
	}
	return time.Duration(float64(d) * r.TimeScale)
}
