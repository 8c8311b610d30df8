package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polyglot-chat/contract"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	handshakeTimeout = 10 * time.Second

	// Max inbound frame size
	maxFrameSize = 512 * 1024 // 512 KB
)

// WebSocketTransport dials real websocket connections. It is the only part
// of the channel that touches the network.
type WebSocketTransport struct{}

func NewWebSocketTransport() WebSocketTransport { return WebSocketTransport{} }

func (WebSocketTransport) Dial(ctx context.Context, url string, header http.Header) (contract.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &wsConn{ws: ws}, nil
}

// wsConn serializes writes: the session loop and the pinger both write to
// the same underlying connection.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
