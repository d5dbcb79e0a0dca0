package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by sends before Connect or after Close.
var ErrNotConnected = errors.New("signaling: not connected")

const (
	pingPeriod = 25 * time.Second
	// The server answers every ping, so silence past readWait means it is gone.
	readWait         = 2*pingPeriod + 5*time.Second
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

var dialer = websocket.Dialer{
	Proxy:            websocket.DefaultDialer.Proxy,
	HandshakeTimeout: handshakeTimeout,
}

// Handler callbacks for incoming signaling messages. Callbacks run on the
// read goroutine.
type Handler struct {
	OnRegistered       func()
	OnOffer            func(from string, payload json.RawMessage)
	OnAnswer           func(from string, payload json.RawMessage)
	OnICECandidate     func(from string, payload json.RawMessage)
	OnHostsUpdated     func(hosts []HostInfo)
	OnHostDisconnected func(hostID string)
	OnError            func(msg string)
}

// Client is a WebSocket signaling client.
type Client struct {
	url      string
	clientID string
	role     Role
	handler  Handler
	log      *zap.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewClient creates a signaling client.
func NewClient(url, clientID string, role Role, handler Handler, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:      url,
		clientID: clientID,
		role:     role,
		handler:  handler,
		log:      log.Named("signaling").With(zap.String("id", clientID)),
		done:     make(chan struct{}),
	}
}

// Connect dials the signaling server, registers and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(registerMsg(c.clientID, c.role)); err != nil {
		conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Done is closed once the client has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the connection and waits for the client goroutines.
// It must not be called from a Handler callback.
func (c *Client) Close() {
	c.shutdown()
	c.wg.Wait()
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendOffer sends an SDP offer to target.
func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(signalMsg(TypeOffer, target, payload))
}

// SendAnswer sends an SDP answer to target.
func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(signalMsg(TypeAnswer, target, payload))
}

// SendICECandidate sends an ICE candidate to target.
func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(signalMsg(TypeICECandidate, target, payload))
}

// RequestHostList asks the server for available hosts.
func (c *Client) RequestHostList() error {
	return c.send(Message{Type: TypeListHosts})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.shutdown()
	for {
		var msg Message
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn("signaling read error", zap.Error(err))
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case TypeRegistered:
		c.log.Debug("registered")
		if c.handler.OnRegistered != nil {
			c.handler.OnRegistered()
		}
	case TypeOffer:
		if c.handler.OnOffer != nil {
			c.handler.OnOffer(msg.From, msg.Payload)
		}
	case TypeAnswer:
		if c.handler.OnAnswer != nil {
			c.handler.OnAnswer(msg.From, msg.Payload)
		}
	case TypeICECandidate:
		if c.handler.OnICECandidate != nil {
			c.handler.OnICECandidate(msg.From, msg.Payload)
		}
	case TypeHosts, TypeHostsUpdated:
		if c.handler.OnHostsUpdated != nil {
			c.handler.OnHostsUpdated(msg.List)
		}
	case TypeHostDisconnected:
		if c.handler.OnHostDisconnected != nil {
			c.handler.OnHostDisconnected(msg.HostID)
		}
	case TypeError:
		if c.handler.OnError != nil {
			c.handler.OnError(msg.Msg)
		}
	case TypePong:
		// heartbeat response, nothing to do
	default:
		c.log.Debug("unknown signaling message", zap.String("type", msg.Type))
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(heartbeat(TypePing))
		}
	}
}
