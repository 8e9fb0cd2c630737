package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/catalog"
	"github.com/DoyleJ11/cooking-backend/internal/hub"
	"github.com/DoyleJ11/cooking-backend/internal/recipe"
	"github.com/DoyleJ11/cooking-backend/internal/timer"
	"github.com/DoyleJ11/cooking-backend/internal/types"
	wire "github.com/DoyleJ11/cooking-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	hub       *hub.Hub
	clock     *clockwork.FakeClock
	scheduler *timer.Scheduler
	url       string
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	cat, err := catalog.NewMemory([]recipe.Recipe{
		{Name: "A", Steps: []recipe.Step{
			{Description: "S1"},
			{Description: "S2", Blockable: true, TimeRequirement: &recipe.TimeRequirement{Duration: "5s"}},
		}},
		{Name: "B", Steps: []recipe.Step{{Description: "T1"}}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClock()
	f := &fixture{
		hub:       hub.NewHub(ctx, nil),
		clock:     clock,
		scheduler: timer.NewScheduler(clock, nil),
	}
	cfg := Config{
		Catalog:      cat,
		Scheduler:    f.scheduler,
		PingInterval: 50 * time.Millisecond,
		PingTimeout:  time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv := httptest.NewServer(Handler(f.hub, cfg))
	t.Cleanup(srv.Close)
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(raw)))
}

func recv(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var m types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHandler_FullCookingRun(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)

	connect := recv(t, conn)
	require.Equal(t, wire.TypeConnect, connect.Type)
	sid := *connect.Message
	require.NotEmpty(t, sid)

	send(t, conn, `{"type":"CREATE_SESSION","dishNames":["A","B"]}`)
	ack := recv(t, conn)
	require.Equal(t, wire.TypeCreateSession, ack.Type)
	require.Equal(t, sid, *ack.Message)
	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	require.Equal(t, "S1", recv(t, conn).Data.Description)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	require.Equal(t, "S2", recv(t, conn).Data.Description)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	guidance := recv(t, conn)
	require.Equal(t, wire.TypeNoNextStep, guidance.Type)
	require.Equal(t, "S2", guidance.Data.Description)

	send(t, conn, `{"type":"START_BLOCKABLE"}`)
	require.Equal(t, wire.TypeStartBlockable, recv(t, conn).Type)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	require.Equal(t, "T1", recv(t, conn).Data.Description)

	send(t, conn, `{"type":"HEARTBEAT"}`)
	require.Equal(t, wire.TypeHeartbeat, recv(t, conn).Type)

	f.clock.Advance(5 * time.Second)
	pushed := recv(t, conn)
	require.Equal(t, wire.TypeBlockFinished, pushed.Type)
	require.Equal(t, "A", pushed.Data.DishName)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	done := recv(t, conn)
	require.Equal(t, wire.TypeNoNextStep, done.Type)
	require.Equal(t, "All dishes done !", *done.Message)

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	require.Equal(t, wire.TypeError, recv(t, conn).Type)
	require.Eventually(t, func() bool { return f.hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_CommandBeforeCreate(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	recv(t, conn) // CONNECT

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	m := recv(t, conn)
	require.Equal(t, wire.TypeError, m.Type)
	require.Contains(t, *m.Message, "session not found")

	send(t, conn, `{"type":"HEARTBEAT"}`)
	require.Equal(t, wire.TypeHeartbeat, recv(t, conn).Type)
}

func TestHandler_UnknownDishRejected(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	recv(t, conn)

	send(t, conn, `{"type":"CREATE_SESSION","data":{"dishNames":["A","pizza"]}}`)
	m := recv(t, conn)
	require.Equal(t, wire.TypeError, m.Type)
	require.Contains(t, *m.Message, "unknown dish")
	require.Equal(t, 0, f.hub.Count())

	send(t, conn, `{"type":"CREATE_SESSION","dishNames":[]}`)
	require.Equal(t, wire.TypeError, recv(t, conn).Type)
}

func TestHandler_BadFrames(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	recv(t, conn)

	send(t, conn, `not json`)
	require.Equal(t, "bad json", *recv(t, conn).Message)

	send(t, conn, `{"type":"LOCK_PICK"}`)
	require.Contains(t, *recv(t, conn).Message, "unknown type")
}

func TestHandler_DisconnectCancelsTimers(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	recv(t, conn)

	send(t, conn, `{"type":"CREATE_SESSION","dishNames":["A"]}`)
	recv(t, conn)
	for _, cmd := range []string{"REQUEST_NEXT", "REQUEST_NEXT", "START_BLOCKABLE"} {
		send(t, conn, `{"type":"`+cmd+`"}`)
		recv(t, conn)
	}
	require.Equal(t, 1, f.scheduler.Active())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))

	require.Eventually(t, func() bool {
		return f.scheduler.Active() == 0 && f.hub.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RecreateReplacesSession(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	recv(t, conn)

	send(t, conn, `{"type":"CREATE_SESSION","dishNames":["A"]}`)
	recv(t, conn)
	for _, cmd := range []string{"REQUEST_NEXT", "REQUEST_NEXT", "START_BLOCKABLE"} {
		send(t, conn, `{"type":"`+cmd+`"}`)
		recv(t, conn)
	}

	send(t, conn, `{"type":"CREATE_SESSION","dishNames":["B"]}`)
	require.Equal(t, wire.TypeCreateSession, recv(t, conn).Type)
	require.Equal(t, 0, f.scheduler.Active())

	send(t, conn, `{"type":"REQUEST_NEXT"}`)
	require.Equal(t, "T1", recv(t, conn).Data.Description)
}

func startBlock(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	recv(t, conn) // CONNECT
	send(t, conn, `{"type":"CREATE_SESSION","dishNames":["A"]}`)
	recv(t, conn)
	for _, cmd := range []string{"REQUEST_NEXT", "REQUEST_NEXT", "START_BLOCKABLE"} {
		send(t, conn, `{"type":"`+cmd+`"}`)
		recv(t, conn)
	}
}

func TestHandler_QuietClientSurvivesLongBlock(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f.url)
	startBlock(t, conn)

	type frame struct {
		data []byte
		err  error
	}
	next := make(chan frame, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, data, err := conn.Read(ctx)
		next <- frame{data: data, err: err}
	}()

	// Several ping intervals pass without the client sending anything.
	time.Sleep(400 * time.Millisecond)
	select {
	case fr := <-next:
		t.Fatalf("unexpected frame while waiting on the block: %s %v", fr.data, fr.err)
	default:
	}
	require.Equal(t, 1, f.scheduler.Active())

	f.clock.Advance(5 * time.Second)

	select {
	case fr := <-next:
		require.NoError(t, fr.err)
		var m types.ServerMessage
		require.NoError(t, json.Unmarshal(fr.data, &m))
		require.Equal(t, wire.TypeBlockFinished, m.Type)
		require.Equal(t, "A", m.Data.DishName)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for BLOCK_FINISHED")
	}
}

func TestHandler_UnresponsivePeerIsDropped(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.PingTimeout = 100 * time.Millisecond })
	conn := dial(t, f.url)
	startBlock(t, conn)
	require.Equal(t, 1, f.scheduler.Active())

	// The client stops reading, so pings go unanswered.
	require.Eventually(t, func() bool {
		return f.scheduler.Active() == 0 && f.hub.Count() == 0
	}, 3*time.Second, 10*time.Millisecond)
}
