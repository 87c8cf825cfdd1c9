package realtime

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound frames buffered per connection before it counts as stalled.
	sendBuffer = 64

	// Inbound frames per second tolerated before the peer is disconnected.
	inboundRate  = 5
	inboundBurst = 20
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
	errPanicked     = errors.New("send panicked")
)

// Client is a websocket connection for one (game id, player name) pair.
// Frames queued with Send are written in order by a single writer.
type Client struct {
	id     string
	gameID string
	player string

	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

func (c *Client) ID() string { return c.id }

// Send queues data without blocking.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops the writer, which then closes the socket. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Upgrader turns HTTP requests into registered Clients.
type Upgrader struct {
	registry *Registry
	ws       websocket.Upgrader
}

// NewUpgrader returns an Upgrader registering clients in reg. checkOrigin
// may be nil to accept any origin.
func NewUpgrader(reg *Registry, checkOrigin func(r *http.Request) bool) *Upgrader {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Upgrader{
		registry: reg,
		ws: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve upgrades the request, registers the client under gameID and
// starts its pumps. It returns once the client is registered.
func (u *Upgrader) Serve(w http.ResponseWriter, r *http.Request, gameID, player string) error {
	conn, err := u.ws.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		id:      uuid.NewString(),
		gameID:  gameID,
		player:  player,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
	u.registry.Register(gameID, c)
	log.Info().Str("gameId", gameID).Str("player", player).Str("conn", c.id).Msg("player connected")

	go c.writePump()
	go c.readPump(u.registry)
	return nil
}

// readPump keeps the channel alive. Inbound frames are accepted but carry
// no meaning; the client is unregistered as soon as reading fails.
func (c *Client) readPump(reg *Registry) {
	defer func() {
		reg.Unregister(c.gameID, c)
		c.Close()
		log.Info().Str("gameId", c.gameID).Str("player", c.player).Str("conn", c.id).Msg("player disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket read")
			}
			return
		}
		if !c.limiter.Allow() {
			log.Warn().Str("gameId", c.gameID).Str("player", c.player).Msg("inbound flood, disconnecting")
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		log.Debug().Str("conn", c.id).Int("bytes", len(data)).Msg("ignored inbound frame")
	}
}

// writePump is the only writer on the socket, so frames leave in queue order.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
