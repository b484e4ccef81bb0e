package chatlib

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sechat/sechat/pkg/logger"
)

// Dispatcher owns one push socket per joined room and fans inbound
// events out to per-room, per-kind listeners. Rooms live in an arena
// keyed by room id; handles returned to callers reach back into the
// arena by id only.
type Dispatcher struct {
	browser *Browser
	routes  *Routes
	log     logger.Logger

	mu    sync.Mutex
	rooms map[int64]*Room
}

// NewDispatcher creates a dispatcher with no joined rooms.
func NewDispatcher(browser *Browser, routes *Routes, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Dispatcher{
		browser: browser,
		routes:  routes,
		log:     log,
		rooms:   make(map[int64]*Room),
	}
}

// wsAuthResponse is the ws-auth endpoint's JSON body.
type wsAuthResponse struct {
	URL string `json:"url"`
}

// eventCursor is the events endpoint's JSON body: the time marker the
// socket resumes from.
type eventCursor struct {
	Time int64 `json:"time"`
}

// Join obtains the room's socket URL and starting cursor (the two
// calls are independent and run concurrently), opens the push socket,
// and starts the read loop. The fkey signs both endpoint calls and all
// later actions in the room.
func (d *Dispatcher) Join(ctx context.Context, roomID int64, fkey string) (*Room, error) {
	d.mu.Lock()
	if room, ok := d.rooms[roomID]; ok {
		d.mu.Unlock()
		return room, nil
	}
	d.mu.Unlock()

	var auth wsAuthResponse
	var cursor eventCursor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := d.browser.Post(gctx, d.routes.WSAuth(), urlValues(
			"roomid", strconv.FormatInt(roomID, 10),
			"fkey", fkey,
		))
		if err != nil {
			return fmt.Errorf("ws-auth: %w", err)
		}
		if err := json.Unmarshal([]byte(page.Source), &auth); err != nil || auth.URL == "" {
			return fmt.Errorf("ws-auth: unexpected response %q", page.Source)
		}
		return nil
	})
	g.Go(func() error {
		page, err := d.browser.Post(gctx, d.routes.RoomEvents(roomID), urlValues(
			"mode", "events",
			"msgCount", "0",
			"fkey", fkey,
		))
		if err != nil {
			return fmt.Errorf("event cursor: %w", err)
		}
		if err := json.Unmarshal([]byte(page.Source), &cursor); err != nil {
			return fmt.Errorf("event cursor: unexpected response %q", page.Source)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	socketURL := fmt.Sprintf("%s?l=%d", auth.URL, cursor.Time)
	sock, err := dialSocket(ctx, socketURL, d.routes.ChatBase, d.browser.HTTPClient())
	if err != nil {
		return nil, fmt.Errorf("opening push socket: %w", err)
	}

	room := d.addRoom(roomID, fkey, sock)
	d.log.Info("joined room %d (cursor %d)", roomID, cursor.Time)
	go d.readLoop(room)
	return room, nil
}

// addRoom creates a room, registers it in the arena, and wires its
// lifetime context.
func (d *Dispatcher) addRoom(roomID int64, fkey string, sock pushSocket) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	room := &Room{
		ID:        roomID,
		fkey:      fkey,
		d:         d,
		sock:      sock,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		listeners: make(map[EventKind][]Callback),
	}
	d.mu.Lock()
	d.rooms[roomID] = room
	d.mu.Unlock()
	return room
}

// room looks a room up by id.
func (d *Dispatcher) room(roomID int64) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[roomID]
	return room, ok
}

// removeRoom drops a room from the arena. Idempotent.
func (d *Dispatcher) removeRoom(roomID int64) {
	d.mu.Lock()
	delete(d.rooms, roomID)
	d.mu.Unlock()
}

// readLoop processes inbound frames for one room's socket strictly in
// arrival order. Listener callbacks for a frame run synchronously and
// in registration order before the next frame is read. The loop ends
// when the socket closes or the room is closed.
func (d *Dispatcher) readLoop(room *Room) {
	defer close(room.done)
	defer d.removeRoom(room.ID)
	defer room.sock.Close()
	for {
		data, err := room.sock.ReadFrame(room.ctx)
		if err != nil {
			if room.ctx.Err() == nil {
				d.log.Error("room %d: socket read failed: %s", room.ID, err.Error())
			}
			return
		}
		d.processFrame(data)
	}
}

// processFrame decodes one multiplexed frame and dispatches its events.
// A frame that is not valid JSON is logged and dropped; it never kills
// the socket. Records whose event_type has no table entry are dropped
// silently.
func (d *Dispatcher) processFrame(data []byte) {
	var frame map[string]struct {
		E []json.RawMessage `json:"e"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		d.log.Warning("dropping malformed frame: %s", err.Error())
		return
	}
	for key, roomFrame := range frame {
		if !strings.HasPrefix(key, "r") {
			continue
		}
		roomID, err := strconv.ParseInt(key[1:], 10, 64)
		if err != nil {
			continue
		}
		room, ok := d.room(roomID)
		if !ok {
			continue
		}
		for _, raw := range roomFrame.E {
			ev, ok := decodeEvent(raw, roomID)
			if !ok {
				continue
			}
			ev.room = room
			room.dispatch(ev)
		}
	}
}

// Shutdown closes all room sockets and waits for their read loops to
// finish.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	d.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}

// urlValues builds url.Values from alternating key/value pairs; it
// keeps the endpoint calls above readable.
func urlValues(pairs ...string) map[string][]string {
	v := make(map[string][]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		v[pairs[i]] = []string{pairs[i+1]}
	}
	return v
}
