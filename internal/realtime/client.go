package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientWriteTimeout is the deadline for writing one frame to a peer.
const clientWriteTimeout = 5 * time.Second

// Conn is the transport half the registry needs: a way to push one text
// frame to the peer. Send returns an error when the peer is gone.
type Conn interface {
	Send(data []byte) error
}

// Client wraps a WebSocket connection as a registry Conn. The write mutex
// serializes frames from the broadcast path and the per-connection echo
// loop, which run concurrently.
type Client struct {
	ID        string
	CreatedAt time.Time

	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient wraps an upgraded WebSocket connection with its own identity.
// A reconnecting peer gets a new Client; identities are never reused.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		conn:      conn,
	}
}

// Send writes one text frame to the peer.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadText blocks until the next inbound text frame or transport error.
func (c *Client) ReadText() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close tears down the underlying transport.
func (c *Client) Close() error {
	return c.conn.Close()
}
