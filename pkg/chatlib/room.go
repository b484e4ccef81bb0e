package chatlib

import (
	"context"
	"strconv"
	"sync"
)

// Room is the caller's handle on a joined room: listener registration
// and the room's chat actions. It is created by Dispatcher.Join and
// dies when the socket closes or Close is called.
type Room struct {
	ID int64

	fkey string
	d    *Dispatcher
	sock pushSocket

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	listeners map[EventKind][]Callback
}

// On registers a callback for an event kind. Registration order is
// preserved and there is no dedup: registering the same callback twice
// fires it twice per event.
func (r *Room) On(kind EventKind, fn Callback) {
	r.mu.Lock()
	r.listeners[kind] = append(r.listeners[kind], fn)
	r.mu.Unlock()
}

// dispatch invokes the callbacks registered for the event's kind, in
// registration order, synchronously.
func (r *Room) dispatch(ev *ChatEvent) {
	r.mu.Lock()
	fns := make([]Callback, len(r.listeners[ev.Kind]))
	copy(fns, r.listeners[ev.Kind])
	r.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Send posts a chat message to the room.
func (r *Room) Send(ctx context.Context, text string) error {
	if r.isClosed() {
		return ErrRoomClosed
	}
	_, err := r.d.browser.Post(ctx, r.d.routes.NewMessage(r.ID), urlValues(
		"fkey", r.fkey,
		"text", text,
	))
	return err
}

// EditMessage replaces the text of a previously sent message.
func (r *Room) EditMessage(ctx context.Context, messageID int64, text string) error {
	if r.isClosed() {
		return ErrRoomClosed
	}
	_, err := r.d.browser.Post(ctx, r.d.routes.EditMessage(messageID), urlValues(
		"fkey", r.fkey,
		"text", text,
	))
	return err
}

// DeleteMessage deletes a previously sent message.
func (r *Room) DeleteMessage(ctx context.Context, messageID int64) error {
	if r.isClosed() {
		return ErrRoomClosed
	}
	_, err := r.d.browser.Post(ctx, r.d.routes.DeleteMessage(messageID), urlValues(
		"fkey", r.fkey,
	))
	return err
}

// Close tears the room down: the socket is closed, the read loop ends,
// and the room leaves the dispatcher's arena. Safe to call twice.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.sock.Close()
	<-r.done
}

// Done is closed when the room's read loop has exited, whether by
// Close or by the socket failing.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// replyPrefix is the chat service's reply convention: a message
// starting with ":<messageId> " threads onto that message.
func replyPrefix(messageID int64) string {
	return ":" + strconv.FormatInt(messageID, 10) + " "
}
