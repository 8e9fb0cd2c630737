package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/engine"
	"github.com/DoyleJ11/cooking-backend/internal/recipe"
	"github.com/DoyleJ11/cooking-backend/internal/timer"
	"github.com/DoyleJ11/cooking-backend/internal/types"
	wire "github.com/DoyleJ11/cooking-backend/pkg/types"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found, create a session first")

const (
	msgBlockNotStarted = "Current step is blockable but not started, need call START_BLOCKABLE !"
	msgAllDone         = "All dishes done !"
	msgBlockFinished   = "Block finished ! Please go back to the previous dish"
)

// clientCommands maps wire types onto engine commands. Anything else reaches
// the engine as an unsupported command.
var clientCommands = map[string]engine.CommandType{
	wire.TypeRequestNext:    engine.CmdRequestNext,
	wire.TypeStartBlockable: engine.CmdStartBlockable,
}

type Msg interface{ isSessionMsg() }

// FromClient carries one inbound command type (REQUEST_NEXT, START_BLOCKABLE,
// HEARTBEAT).
type FromClient struct {
	Type string
}

func (FromClient) isSessionMsg() {}

// Relay emits a message in order with everything else the session sends.
type Relay struct {
	Message types.ServerMessage
}

func (Relay) isSessionMsg() {}

type TimerFired struct {
	Dish   int
	Handle *timer.Handle
}

func (TimerFired) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type View struct {
	ID         string
	Status     engine.Status
	LastServed int
	Dishes     []DishView
	Timers     int
}

type DishView struct {
	Name      string
	Cursor    int
	Block     engine.BlockState
	Remaining time.Duration
}

type Deps struct {
	Scheduler *timer.Scheduler
	Logger    *zap.Logger
	Rules     engine.Rules
	// OnComplete runs on the session goroutine once every dish is done.
	OnComplete func(id string)
}

type Session struct {
	id     string
	inbox  chan Msg
	out    chan<- types.ServerMessage
	state  engine.State
	timers map[int]*timer.Handle
	deps   Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts a session for the resolved recipes. Its first output is the
// CREATE_SESSION acknowledgement.
func New(parent context.Context, id string, recipes []recipe.Recipe, out chan<- types.ServerMessage, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = timer.NewScheduler(nil, deps.Logger)
	}

	s := &Session{
		id:     id,
		inbox:  make(chan Msg, 64),
		out:    out,
		state:  engine.NewState(recipes, deps.Rules),
		timers: make(map[int]*timer.Handle),
		deps:   deps,
		log:    deps.Logger.With(zap.String("session_id", id)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Inbox exposes the actor inbox so tests or the ws layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.done }

// Submit queues a client command. It fails once the session has shut down.
func (s *Session) Submit(msgType string) error {
	return s.send(FromClient{Type: msgType})
}

func (s *Session) Relay(m types.ServerMessage) error {
	return s.send(Relay{Message: m})
}

// Stop cancels the session without waiting for it to wind down.
func (s *Session) Stop() { s.cancel() }

// Close cancels the session and waits until its timers are released and no
// further output can be produced.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) send(m Msg) error {
	if s.ctx.Err() != nil {
		return ErrSessionNotFound
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrSessionNotFound
	}
}

func (s *Session) loop() {
	defer close(s.done)

	s.log.Info("session created", zap.Int("dishes", len(s.state.Dishes)))
	s.emit(types.Text(wire.TypeCreateSession, s.id))

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case FromClient:
				s.handleClient(msg)

			case Relay:
				s.emit(msg.Message)

			case TimerFired:
				s.handleTimerFired(msg)

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				s.cancel()
				return
			}
		}
	}
}

func (s *Session) handleClient(msg FromClient) {
	s.log.Debug("command", zap.String("type", msg.Type))

	if msg.Type == wire.TypeHeartbeat {
		s.emit(types.Text(wire.TypeHeartbeat, s.id))
		return
	}

	if s.state.Status == engine.StatusCompleted {
		s.emit(types.Error(ErrSessionNotFound))
		return
	}

	cmd := engine.Command{Type: clientCommands[msg.Type], Now: s.deps.Scheduler.Now()}

	events, err := engine.Apply(&s.state, cmd)
	if err != nil {
		s.log.Debug("command rejected", zap.String("type", msg.Type), zap.Error(err))
		s.emit(types.Error(err))
		return
	}
	s.publish(events)
}

func (s *Session) handleTimerFired(msg TimerFired) {
	if s.timers[msg.Dish] != msg.Handle {
		s.log.Debug("stale timer fire dropped", zap.Int("dish", msg.Dish))
		return
	}
	delete(s.timers, msg.Dish)

	events, err := engine.Apply(&s.state, engine.Command{
		Type: engine.CmdBlockFinished,
		Dish: msg.Dish,
		Now:  s.deps.Scheduler.Now(),
	})
	if err != nil {
		s.log.Warn("block finish rejected", zap.Int("dish", msg.Dish), zap.Error(err))
		return
	}
	s.publish(events)
}

func (s *Session) publish(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtStepServed:
			s.emit(types.WithStep(wire.TypeRequestNext, nil, s.payload(ev)))

		case engine.EvtBlockNotStarted:
			m := msgBlockNotStarted
			s.emit(types.WithStep(wire.TypeNoNextStep, &m, s.payload(ev)))

		case engine.EvtWaiting:
			left := ev.Remaining
			if h := s.timers[ev.Dish]; h != nil {
				left = s.deps.Scheduler.Remaining(h)
			}
			m := fmt.Sprintf("dish waiting ... %d seconds left !", ceilSeconds(left))
			s.emit(types.WithStep(wire.TypeNoNextStep, &m, s.payload(ev)))

		case engine.EvtBlockStarted:
			dish := ev.Dish
			s.timers[dish] = s.deps.Scheduler.Schedule(ev.Deadline, func(h *timer.Handle) {
				s.enqueue(TimerFired{Dish: dish, Handle: h})
			})
			s.log.Info("block started",
				zap.String("dish", ev.DishName),
				zap.Int("step", ev.Step.Number),
				zap.Duration("remaining", ev.Remaining))
			s.emit(types.Text(wire.TypeStartBlockable, s.id))

		case engine.EvtBlockFinished:
			s.log.Info("block finished", zap.String("dish", ev.DishName), zap.Int("step", ev.Step.Number))
			m := msgBlockFinished
			s.emit(types.WithStep(wire.TypeBlockFinished, &m, s.payload(ev)))

		case engine.EvtDishFinished:
			s.log.Debug("dish finished", zap.String("dish", ev.DishName))

		case engine.EvtSessionCompleted:
			s.log.Info("session completed")
			s.emit(types.Text(wire.TypeNoNextStep, msgAllDone))
			if s.deps.OnComplete != nil {
				s.deps.OnComplete(s.id)
			}
		}
	}
}

// enqueue runs on a timer goroutine. After shutdown the fire is dropped.
func (s *Session) enqueue(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
		s.log.Debug("timer fire after shutdown dropped")
	}
}

func (s *Session) emit(m types.ServerMessage) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.out <- m:
	case <-s.ctx.Done():
		s.log.Debug("connection gone, message dropped", zap.String("type", m.Type))
	}
}

func (s *Session) shutdown() {
	for dish, h := range s.timers {
		s.deps.Scheduler.Cancel(h)
		delete(s.timers, dish)
	}
	s.log.Info("session closed", zap.String("status", string(s.state.Status)))
}

func (s *Session) payload(ev engine.Event) wire.StepPayload {
	return types.StepPayload(ev.DishName, *ev.Step)
}

func (s *Session) view() View {
	now := s.deps.Scheduler.Now()
	v := View{
		ID:         s.id,
		Status:     s.state.Status,
		LastServed: s.state.LastServed,
		Dishes:     make([]DishView, 0, len(s.state.Dishes)),
		Timers:     len(s.timers),
	}
	for _, d := range s.state.Dishes {
		v.Dishes = append(v.Dishes, DishView{
			Name:      d.Name,
			Cursor:    d.Cursor,
			Block:     d.Block,
			Remaining: engine.Remaining(d, now),
		})
	}
	return v
}

func ceilSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
