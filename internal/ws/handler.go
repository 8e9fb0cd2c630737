package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/catalog"
	"github.com/DoyleJ11/cooking-backend/internal/engine"
	"github.com/DoyleJ11/cooking-backend/internal/hub"
	"github.com/DoyleJ11/cooking-backend/internal/session"
	"github.com/DoyleJ11/cooking-backend/internal/timer"
	"github.com/DoyleJ11/cooking-backend/internal/types"
	wire "github.com/DoyleJ11/cooking-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoDishes = errors.New("no dish names supplied")

type Config struct {
	Catalog      catalog.Catalog
	Scheduler    *timer.Scheduler
	Logger       *zap.Logger
	Rules        engine.Rules
	WriteTimeout time.Duration
	// PingInterval is how often the server pings an otherwise quiet client.
	// Reads carry no deadline: a cook may sit through a long block without
	// sending anything.
	PingInterval time.Duration
	PingTimeout  time.Duration
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Scheduler == nil {
		c.Scheduler = timer.NewScheduler(nil, c.Logger)
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	return c
}

func Handler(h *hub.Hub, cfg Config) http.HandlerFunc {
	cfg = cfg.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			cfg.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &connection{
			id:   uuid.NewString(),
			conn: conn,
			hub:  h,
			cfg:  cfg,
			out:  make(chan types.ServerMessage, 16),
		}
		c.log = cfg.Logger.With(zap.String("session_id", c.id))
		c.serve(r.Context())
	}
}

// connection is the per-socket context every command is scoped to. The
// client never sends its session id back.
type connection struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	cfg  Config
	log  *zap.Logger
	out  chan types.ServerMessage
	sess *session.Session
}

func (c *connection) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.log.Info("connected")
	defer c.disconnect()

	// Writer goroutine
	go c.writeLoop(ctx)
	go c.pingLoop(ctx, cancel)

	c.direct(ctx, types.Text(wire.TypeConnect, c.id))

	// Reader loop
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug("client closed connection")
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		cm, err := types.DecodeClientMessage(data)
		if err != nil {
			c.reply(ctx, types.Error(err))
			continue
		}
		c.dispatch(ctx, cm)
	}
}

func (c *connection) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case wire.TypeCreateSession:
		c.createSession(ctx, cm.Dishes())

	case wire.TypeRequestNext, wire.TypeStartBlockable, wire.TypeHeartbeat:
		if c.sess == nil {
			if cm.Type == wire.TypeHeartbeat {
				c.direct(ctx, types.Text(wire.TypeHeartbeat, c.id))
				return
			}
			c.direct(ctx, types.Error(session.ErrSessionNotFound))
			return
		}
		if err := c.sess.Submit(cm.Type); err != nil {
			c.direct(ctx, types.Error(err))
		}

	default:
		c.reply(ctx, types.Error(fmt.Errorf("unknown type %q", cm.Type)))
	}
}

func (c *connection) createSession(ctx context.Context, names []string) {
	if len(names) == 0 {
		c.reply(ctx, types.Error(ErrNoDishes))
		return
	}
	recipes, err := catalog.Resolve(ctx, c.cfg.Catalog, names)
	if err != nil {
		c.log.Info("create session rejected", zap.Strings("dishes", names), zap.Error(err))
		c.reply(ctx, types.Error(err))
		return
	}

	// A second CREATE_SESSION replaces the first; its timers go with it.
	if c.sess != nil {
		c.sess.Close()
	}
	c.sess = session.New(ctx, c.id, recipes, c.out, session.Deps{
		Scheduler:  c.cfg.Scheduler,
		Logger:     c.cfg.Logger,
		Rules:      c.cfg.Rules,
		OnComplete: c.hub.Remove,
	})
	c.hub.Register(c.id, c.sess)
}

// reply sends through the live session when there is one so the message
// cannot overtake earlier responses.
func (c *connection) reply(ctx context.Context, m types.ServerMessage) {
	if c.sess != nil && c.sess.Relay(m) == nil {
		return
	}
	c.direct(ctx, m)
}

func (c *connection) direct(ctx context.Context, m types.ServerMessage) {
	select {
	case c.out <- m:
	case <-ctx.Done():
	}
}

func (c *connection) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.out:
			payload, err := json.Marshal(m)
			if err != nil {
				c.log.Error("encode failed", zap.String("type", m.Type), zap.Error(err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			if err := c.conn.Write(wctx, websocket.MessageText, payload); err != nil {
				c.log.Debug("write failed, message dropped", zap.String("type", m.Type), zap.Error(err))
			}
			cancel()
		}
	}
}

// pingLoop drops the connection when the peer stops answering pings. The
// pong is consumed by the reader loop.
func (c *connection) pingLoop(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
			err := c.conn.Ping(pctx)
			pcancel()
			if err != nil {
				if ctx.Err() == nil {
					c.log.Info("peer stopped answering pings", zap.Error(err))
				}
				cancel()
				return
			}
		}
	}
}

func (c *connection) disconnect() {
	if c.sess != nil {
		c.sess.Close()
	}
	c.hub.Remove(c.id)
	c.log.Info("disconnected")
}
