package chatlib

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/sechat/sechat/pkg/logger"
)

// fakeSocket is an in-memory pushSocket fed from a channel.
type fakeSocket struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case data := <-s.frames:
		return data, nil
	case <-s.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func newTestDispatcher(log logger.Logger) *Dispatcher {
	return NewDispatcher(NewBrowser(nil, nil, nil), DefaultRoutes("example.com"), log)
}

func TestProcessFrame(t *testing.T) {
	t.Run("event dispatched to room listener", func(t *testing.T) {
		d := newTestDispatcher(nil)
		room := d.addRoom(42, "fkey", newFakeSocket())

		var got []*ChatEvent
		room.On(EventMessage, func(ev *ChatEvent) {
			got = append(got, ev)
		})

		d.processFrame([]byte(`{"r42":{"e":[{"event_type":1,"content":"hi","message_id":7,"user_id":3,"user_name":"u","time_stamp":99}]}}`))

		if len(got) != 1 {
			t.Fatalf("dispatched events: got %d, want 1", len(got))
		}
		ev := got[0]
		if ev.Kind != EventMessage || ev.Content != "hi" || ev.MessageID != 7 {
			t.Errorf("event: %+v", ev)
		}
		if ev.RoomID != 42 {
			t.Errorf("room id: got %d", ev.RoomID)
		}
		if ev.TimeStamp != 99 {
			t.Errorf("time stamp: got %d", ev.TimeStamp)
		}
		if ev.Raw["content"] != "hi" {
			t.Errorf("raw fields: %v", ev.Raw)
		}
	})

	t.Run("unknown event type dropped silently", func(t *testing.T) {
		log := logger.NewMockLogger()
		d := newTestDispatcher(log)
		room := d.addRoom(42, "fkey", newFakeSocket())

		fired := 0
		for _, kind := range []EventKind{EventMessage, EventUserEntered, EventUserLeft} {
			room.On(kind, func(ev *ChatEvent) { fired++ })
		}

		d.processFrame([]byte(`{"r42":{"e":[{"event_type":999,"content":"x"}]}}`))
		d.processFrame([]byte(`{"r42":{"e":[{"event_type":7,"content":"x"}]}}`))

		if fired != 0 {
			t.Errorf("unknown types fired %d callbacks", fired)
		}
		if len(log.WarningCalls) != 0 {
			t.Errorf("unknown type must not be logged: %v", log.WarningCalls)
		}
	})

	t.Run("malformed frame logged and dropped", func(t *testing.T) {
		log := logger.NewMockLogger()
		d := newTestDispatcher(log)
		room := d.addRoom(42, "fkey", newFakeSocket())
		room.On(EventMessage, func(ev *ChatEvent) {
			t.Error("callback fired for malformed frame")
		})

		d.processFrame([]byte(`{"r42":`))

		if len(log.WarningCalls) != 1 {
			t.Fatalf("warnings: got %d, want 1", len(log.WarningCalls))
		}
		if !strings.Contains(log.WarningCalls[0], "malformed frame") {
			t.Errorf("warning: %q", log.WarningCalls[0])
		}
	})

	t.Run("frames for unjoined rooms ignored", func(t *testing.T) {
		d := newTestDispatcher(nil)
		room := d.addRoom(42, "fkey", newFakeSocket())
		room.On(EventMessage, func(ev *ChatEvent) {
			t.Error("callback fired for a different room")
		})

		d.processFrame([]byte(`{"r99":{"e":[{"event_type":1,"content":"x"}]}}`))
	})

	t.Run("non-room keys ignored", func(t *testing.T) {
		d := newTestDispatcher(nil)
		d.addRoom(42, "fkey", newFakeSocket())
		d.processFrame([]byte(`{"t":123,"rX":{"e":[]},"r42":{"e":[]}}`))
	})
}

func TestListenerOrdering(t *testing.T) {
	d := newTestDispatcher(nil)
	room := d.addRoom(1, "fkey", newFakeSocket())

	var order []string
	room.On(EventMessage, func(ev *ChatEvent) { order = append(order, "first") })
	room.On(EventMessage, func(ev *ChatEvent) { order = append(order, "second") })
	dup := func(ev *ChatEvent) { order = append(order, "dup") }
	room.On(EventMessage, dup)
	room.On(EventMessage, dup)

	d.processFrame([]byte(`{"r1":{"e":[{"event_type":1,"content":"x"}]}}`))

	want := []string{"first", "second", "dup", "dup"}
	if len(order) != len(want) {
		t.Fatalf("calls: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("calls: got %v, want %v", order, want)
		}
	}
}

func TestReadLoopLifecycle(t *testing.T) {
	t.Run("close ends the loop and leaves the arena", func(t *testing.T) {
		d := newTestDispatcher(nil)
		sock := newFakeSocket()
		room := d.addRoom(5, "fkey", sock)
		go d.readLoop(room)

		events := make(chan *ChatEvent, 1)
		room.On(EventMessage, func(ev *ChatEvent) { events <- ev })
		sock.frames <- []byte(`{"r5":{"e":[{"event_type":1,"content":"hello"}]}}`)

		select {
		case ev := <-events:
			if ev.Content != "hello" {
				t.Errorf("content: got %q", ev.Content)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("event never delivered")
		}

		room.Close()
		select {
		case <-room.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("done channel never closed")
		}
		if _, ok := d.room(5); ok {
			t.Error("room still in the arena after close")
		}
		room.Close() // second close must not panic or hang
	})

	t.Run("socket failure logged and room removed", func(t *testing.T) {
		log := logger.NewMockLogger()
		d := newTestDispatcher(log)
		sock := newFakeSocket()
		room := d.addRoom(5, "fkey", sock)
		go d.readLoop(room)

		sock.Close() // simulate the server dropping the socket
		select {
		case <-room.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("done channel never closed")
		}
		if _, ok := d.room(5); ok {
			t.Error("room still in the arena after socket failure")
		}
		if len(log.ErrorCalls) != 1 {
			t.Errorf("errors: got %v, want one read failure", log.ErrorCalls)
		}
	})
}

func TestDispatcherJoin(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	listenerReady := make(chan struct{})
	serverDone := make(chan struct{})

	mux.HandleFunc("/ws-auth/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %s", err.Error())
		}
		if r.PostForm.Get("roomid") != "42" || r.PostForm.Get("fkey") != "fkey1" {
			t.Errorf("ws-auth form: %v", r.PostForm)
		}
		fmt.Fprintf(w, `{"url":"ws://%s/ws"}`, r.Host)
	})
	mux.HandleFunc("/chats/42/events", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %s", err.Error())
		}
		if r.PostForm.Get("mode") != "events" || r.PostForm.Get("fkey") != "fkey1" {
			t.Errorf("events form: %v", r.PostForm)
		}
		fmt.Fprint(w, `{"time":1234}`)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		defer close(serverDone)
		if got := r.URL.Query().Get("l"); got != "1234" {
			t.Errorf("cursor: got %q", got)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %s", err.Error())
			return
		}
		<-listenerReady
		err = conn.Write(r.Context(), websocket.MessageText,
			[]byte(`{"r42":{"e":[{"event_type":1,"content":"pushed","message_id":11}]}}`))
		if err != nil {
			t.Errorf("write failed: %s", err.Error())
			return
		}
		// Hold the socket open until the client closes it.
		conn.Read(r.Context())
	})

	routes := DefaultRoutes("example.com")
	routes.ChatBase = srv.URL
	d := NewDispatcher(NewBrowser(nil, nil, nil), routes, nil)
	defer d.Shutdown()

	room, err := d.Join(context.Background(), 42, "fkey1")
	if err != nil {
		t.Fatalf("join failed: %s", err.Error())
	}
	if room.ID != 42 {
		t.Errorf("room id: got %d", room.ID)
	}

	events := make(chan *ChatEvent, 1)
	room.On(EventMessage, func(ev *ChatEvent) { events <- ev })
	close(listenerReady)

	select {
	case ev := <-events:
		if ev.Content != "pushed" || ev.MessageID != 11 {
			t.Errorf("event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pushed event never delivered")
	}

	// Joining the same room again returns the existing handle.
	again, err := d.Join(context.Background(), 42, "fkey1")
	if err != nil {
		t.Fatalf("rejoin failed: %s", err.Error())
	}
	if again != room {
		t.Error("rejoin created a second room")
	}

	room.Close()
	select {
	case <-serverDone:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler never finished")
	}
}

func TestDispatcherShutdown(t *testing.T) {
	d := newTestDispatcher(nil)
	socks := []*fakeSocket{newFakeSocket(), newFakeSocket()}
	rooms := []*Room{
		d.addRoom(1, "fkey", socks[0]),
		d.addRoom(2, "fkey", socks[1]),
	}
	for _, room := range rooms {
		go d.readLoop(room)
	}

	d.Shutdown()

	for _, room := range rooms {
		select {
		case <-room.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("room loop still running after shutdown")
		}
	}
	if _, ok := d.room(1); ok {
		t.Error("arena not empty after shutdown")
	}
}
