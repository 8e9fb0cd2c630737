package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	statePending int32 = iota
	stateFired
	stateCancelled
)

// Scheduler runs one-shot timers. Each handle fires its callback at most once
// and never after it has been cancelled.
type Scheduler struct {
	clock  clockwork.Clock
	log    *zap.Logger
	mu     sync.Mutex
	active map[uint64]*Handle
	nextID atomic.Uint64
}

type Handle struct {
	id       uint64
	deadline time.Time
	state    atomic.Int32
	stop     chan struct{}
}

func (h *Handle) ID() uint64          { return h.id }
func (h *Handle) Deadline() time.Time { return h.deadline }

// fired reports whether the callback has been (or is being) delivered.
func (h *Handle) fired() bool { return h.state.Load() == stateFired }

func NewScheduler(clock clockwork.Clock, log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		clock:  clock,
		log:    log,
		active: make(map[uint64]*Handle),
	}
}

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Schedule arms a timer for deadline. fire runs on the timer's own goroutine;
// callers must hand the work to their own serialized context.
func (s *Scheduler) Schedule(deadline time.Time, fire func(*Handle)) *Handle {
	h := &Handle{
		id:       s.nextID.Add(1),
		deadline: deadline,
		stop:     make(chan struct{}),
	}

	s.mu.Lock()
	s.active[h.id] = h
	s.mu.Unlock()

	d := deadline.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	t := s.clock.NewTimer(d)

	go func() {
		select {
		case <-t.Chan():
			if !h.state.CompareAndSwap(statePending, stateFired) {
				return
			}
			s.remove(h.id)
			s.deliver(h, fire)
		case <-h.stop:
			stopAndDrainTimer(t)
		}
	}()

	s.log.Debug("timer scheduled",
		zap.Uint64("timer_id", h.id),
		zap.Time("deadline", deadline),
		zap.Duration("duration", d))
	return h
}

// Cancel stops h. It returns false if h already fired or was cancelled.
func (s *Scheduler) Cancel(h *Handle) bool {
	if h == nil || !h.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	close(h.stop)
	s.remove(h.id)
	s.log.Debug("timer cancelled", zap.Uint64("timer_id", h.id))
	return true
}

// Remaining is deadline - now, clamped at zero.
func (s *Scheduler) Remaining(h *Handle) time.Duration {
	if left := h.deadline.Sub(s.clock.Now()); left > 0 {
		return left
	}
	return 0
}

// Active counts timers that have neither fired nor been cancelled.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func (s *Scheduler) deliver(h *Handle, fire func(*Handle)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("timer callback panicked", zap.Uint64("timer_id", h.id), zap.Any("panic", r))
		}
	}()
	fire(h)
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
