package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Handlers receive connection events. OnSample is called once per decoded
// location event; OnState on every state transition. Both may be nil.
type Handlers struct {
	OnSample func(track.LocationSample)
	OnState  func(State)
}

// Connection maintains one best-effort push subscription for a tracking id.
// It reports transport loss through its state and never reconnects on its
// own; reconnection policy belongs to the caller.
type Connection struct {
	wsURL      string
	trackingID string
	handlers   Handlers

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	gen   int
}

func NewConnection(wsURL, trackingID string, handlers Handlers) *Connection {
	return &Connection{
		wsURL:      wsURL,
		trackingID: trackingID,
		handlers:   handlers,
		state:      StateDisconnected,
	}
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) endpoint() string {
	return c.wsURL + "/tracking/ws/" + c.trackingID
}

// Connect opens the transport. Calling it while connecting or connected is
// a no-op. The connection reaches StateConnected only after the server ack
// arrives on the stream.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	gen := c.gen
	c.mu.Unlock()
	c.notify(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint(), nil)
	if err != nil {
		c.mu.Lock()
		dropped := c.gen == gen && c.state == StateConnecting
		if dropped {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		if dropped {
			c.notify(StateDisconnected)
		}
		return err
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Disconnect raced the dial; release the fresh transport.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn, gen)
	return nil
}

// Disconnect releases the transport from any state. Calling it while
// already disconnected is a no-op.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.gen++
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.notify(StateDisconnected)
}

func (c *Connection) readPump(conn *websocket.Conn, gen int) {
	defer func() {
		_ = conn.Close()
		c.mu.Lock()
		live := c.gen == gen
		if live {
			c.state = StateDisconnected
			c.conn = nil
		}
		c.mu.Unlock()
		if live {
			c.notify(StateDisconnected)
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(payload, gen)
	}
}

// envelope mirrors the push-channel wire format.
type envelope struct {
	Type       string          `json:"type"`
	TrackingID string          `json:"tracking_id"`
	Data       json.RawMessage `json:"data"`
}

func (c *Connection) handleMessage(payload []byte, gen int) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("live: dropping malformed message: %v", err)
		return
	}

	switch env.Type {
	case "connected":
		c.mu.Lock()
		acked := c.gen == gen && c.state == StateConnecting
		if acked {
			c.state = StateConnected
		}
		c.mu.Unlock()
		if acked {
			c.notify(StateConnected)
		}
	case "location_update":
		var sample track.LocationSample
		if err := json.Unmarshal(env.Data, &sample); err != nil {
			log.Printf("live: dropping malformed location payload: %v", err)
			return
		}
		if sample.Timestamp.IsZero() {
			log.Printf("live: dropping location payload without timestamp")
			return
		}
		if err := track.ValidateCoordinates(sample.Latitude, sample.Longitude); err != nil {
			log.Printf("live: dropping location payload: %v", err)
			return
		}
		if sample.TrackingID == "" {
			sample.TrackingID = c.trackingID
		}
		if c.handlers.OnSample != nil {
			c.handlers.OnSample(sample)
		}
	default:
		log.Printf("live: dropping message of unknown type %q", env.Type)
	}
}

func (c *Connection) notify(state State) {
	if c.handlers.OnState != nil {
		c.handlers.OnState(state)
	}
}
