package chatlib

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

// pushSocket is the minimal surface the dispatcher needs from the
// room's persistent socket. Tests substitute an in-memory pipe.
type pushSocket interface {
	// ReadFrame returns the next inbound frame payload.
	ReadFrame(ctx context.Context) ([]byte, error)
	// Close tears the socket down.
	Close() error
}

// wsSocket adapts a coder/websocket connection to pushSocket.
type wsSocket struct {
	conn *websocket.Conn
}

// dialSocket opens the push socket for a room. The chat service checks
// the Origin header against the chat host.
func dialSocket(ctx context.Context, socketURL, origin string, client *http.Client) (pushSocket, error) {
	header := http.Header{}
	header.Set("Origin", origin)
	conn, _, err := websocket.Dial(ctx, socketURL, &websocket.DialOptions{
		HTTPClient: client,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, err
	}
	// Event frames are small JSON objects, but a busy multiplexed
	// socket can batch many records into one frame.
	conn.SetReadLimit(1 << 20)
	return &wsSocket{conn: conn}, nil
}

func (s *wsSocket) ReadFrame(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *wsSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
