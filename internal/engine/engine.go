package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
)

var ErrNoPendingBlockable = errors.New("no blockable step awaiting start")
var ErrSessionCompleted = errors.New("session already completed")
var ErrNotTiming = errors.New("dish is not timing a block")
var ErrUnsupportedCommand = errors.New("unsupported command")

type BlockState string

const (
	BlockIdle               BlockState = "idle"
	BlockPresentedUnstarted BlockState = "presented_unstarted"
	BlockTiming             BlockState = "timing"
	BlockFinished           BlockState = "finished"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Dish is the progress through one recipe. Cursor indexes the next step to
// serve, so the step being held or timed is always Steps[Cursor-1].
type Dish struct {
	Name     string
	Steps    []recipe.Step
	Cursor   int
	Block    BlockState
	Deadline time.Time
}

type State struct {
	Dishes     []Dish
	LastServed int
	Status     Status
	Rules      Rules
}

type Rules struct {
	// TimeScale multiplies every block duration. Zero means 1.
	TimeScale float64
}

type CommandType string

const (
	CmdRequestNext    CommandType = "RequestNext"
	CmdStartBlockable CommandType = "StartBlockable"
	CmdBlockFinished  CommandType = "BlockFinished"
)

/*
	CmdRequestNext    -> EvtStepServed (+ EvtDishFinished on the last plain step)
	                  -> EvtBlockNotStarted when the focused dish holds an unstarted block
	                  -> EvtWaiting when every unfinished dish is timing
	                  -> EvtSessionCompleted once, when every dish is finished
	CmdStartBlockable -> EvtBlockStarted
	CmdBlockFinished  -> EvtBlockFinished (+ EvtDishFinished when it was the last step)
*/

type Command struct {
	Type CommandType
	Dish int // CmdBlockFinished only
	Now  time.Time
}

type EventType string

const (
	EvtStepServed       EventType = "StepServed"
	EvtBlockNotStarted  EventType = "BlockNotStarted"
	EvtWaiting          EventType = "Waiting"
	EvtBlockStarted     EventType = "BlockStarted"
	EvtBlockFinished    EventType = "BlockFinished"
	EvtDishFinished     EventType = "DishFinished"
	EvtSessionCompleted EventType = "SessionCompleted"
)

type Event struct {
	Type      EventType
	Dish      int
	DishName  string
	Step      *recipe.Step
	Remaining time.Duration
	Deadline  time.Time
}

// Apply runs one command against s. On error s is left untouched.
func Apply(s *State, cmd Command) ([]Event, error) {
	if s.Status == StatusCompleted {
		return nil, ErrSessionCompleted
	}

	switch cmd.Type {
	case CmdRequestNext:
		return requestNext(s, cmd.Now), nil
	case CmdStartBlockable:
		return startBlockable(s, cmd.Now)
	case CmdBlockFinished:
		return blockFinished(s, cmd.Dish)
	default:
		return nil, ErrUnsupportedCommand
	}
}

func requestNext(s *State, now time.Time) []Event {
	idx, ok := nextServable(*s)
	if !ok {
		if w, ok := soonestTiming(*s, now); ok {
			d := s.Dishes[w]
			return []Event{{
				Type:      EvtWaiting,
				Dish:      w,
				DishName:  d.Name,
				Step:      heldStep(d),
				Remaining: Remaining(d, now),
				Deadline:  d.Deadline,
			}}
		}
		s.Status = StatusCompleted
		return []Event{{Type: EvtSessionCompleted}}
	}

	d := &s.Dishes[idx]
	if d.Block == BlockPresentedUnstarted {
		return []Event{{Type: EvtBlockNotStarted, Dish: idx, DishName: d.Name, Step: heldStep(*d)}}
	}

	step := d.Steps[d.Cursor]
	d.Cursor++
	s.LastServed = idx

	events := []Event{{Type: EvtStepServed, Dish: idx, DishName: d.Name, Step: &step}}
	switch {
	case step.Blockable:
		d.Block = BlockPresentedUnstarted
	case d.Cursor >= len(d.Steps):
		d.Block = BlockFinished
		events = append(events, Event{Type: EvtDishFinished, Dish: idx, DishName: d.Name})
	}
	return events
}

func startBlockable(s *State, now time.Time) ([]Event, error) {
	if s.LastServed < 0 || s.LastServed >= len(s.Dishes) {
		return nil, ErrNoPendingBlockable
	}
	d := &s.Dishes[s.LastServed]
	if d.Block != BlockPresentedUnstarted {
		return nil, ErrNoPendingBlockable
	}

	step := heldStep(*d)
	dur, err := step.BlockDuration()
	if err != nil {
		return nil, fmt.Errorf("dish %q step %d: %w", d.Name, step.Number, err)
	}
	dur = s.Rules.scale(dur)

	d.Block = BlockTiming
	d.Deadline = now.Add(dur)

	return []Event{{
		Type:      EvtBlockStarted,
		Dish:      s.LastServed,
		DishName:  d.Name,
		Step:      step,
		Remaining: dur,
		Deadline:  d.Deadline,
	}}, nil
}

func blockFinished(s *State, idx int) ([]Event, error) {
	if idx < 0 || idx >= len(s.Dishes) || s.Dishes[idx].Block != BlockTiming {
		return nil, ErrNotTiming
	}

	d := &s.Dishes[idx]
	step := heldStep(*d)
	d.Deadline = time.Time{}
	d.Block = BlockIdle

	// Send the cook back to the dish that just came off the heat, unless the
	// focused dish is still holding a block that has to be started first.
	if s.Dishes[s.LastServed].Block != BlockPresentedUnstarted {
		s.LastServed = idx
	}

	events := []Event{{Type: EvtBlockFinished, Dish: idx, DishName: d.Name, Step: step}}
	if d.Cursor >= len(d.Steps) {
		d.Block = BlockFinished
		events = append(events, Event{Type: EvtDishFinished, Dish: idx, DishName: d.Name})
	}
	return events, nil
}
