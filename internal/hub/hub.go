package hub

import (
	"context"

	"github.com/DoyleJ11/cooking-backend/internal/session"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// RegisterSession binds a session to a connection id, stopping any session
// previously bound to it.
type RegisterSession struct {
	ConnID  string
	Session *session.Session
}

type GetSession struct {
	ConnID string
	Reply  chan *session.Session
}

type RemoveSession struct {
	ConnID string
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct{}

func (RegisterSession) isHubMsg() {}
func (GetSession) isHubMsg()      {}
func (RemoveSession) isHubMsg()   {}
func (CountSessions) isHubMsg()   {}
func (ShutdownHub) isHubMsg()     {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Register(connID string, s *session.Session) {
	h.post(RegisterSession{ConnID: connID, Session: s})
}

func (h *Hub) Remove(connID string) {
	h.post(RemoveSession{ConnID: connID})
}

// get returns nil when no session is bound to connID or the hub is gone.
func (h *Hub) get(connID string) *session.Session {
	reply := make(chan *session.Session, 1)
	if !h.post(GetSession{ConnID: connID, Reply: reply}) {
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) Count() int {
	reply := make(chan int, 1)
	if !h.post(CountSessions{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.ctx.Done():
		return 0
	}
}

func (h *Hub) Shutdown() {
	h.post(ShutdownHub{})
}

func (h *Hub) post(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case RegisterSession:
				if prev := h.sessions[msg.ConnID]; prev != nil && prev != msg.Session {
					prev.Stop()
				}
				h.sessions[msg.ConnID] = msg.Session
				h.log.Debug("session registered", zap.String("session_id", msg.ConnID), zap.Int("live", len(h.sessions)))

			case GetSession:
				msg.Reply <- h.sessions[msg.ConnID] // May be nil

			case RemoveSession:
				if _, ok := h.sessions[msg.ConnID]; ok {
					delete(h.sessions, msg.ConnID)
					h.log.Debug("session removed", zap.String("session_id", msg.ConnID), zap.Int("live", len(h.sessions)))
				}

			case CountSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.Stop()
		delete(h.sessions, id)
	}
	h.log.Info("hub stopped")
}
