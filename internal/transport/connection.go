package transport

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// Connection wraps one gorilla/websocket connection, fanning inbound
// messages out to Operations/Closed channels and serializing outbound
// writes through a buffered send channel, the way goatee's hub.stream
// separates its read and write goroutines.
type Connection struct {
	ClientID string

	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	// Operations receives every envelope decoded from the client, whatever
	// its Type; the consumer filters for MsgOperation.
	Operations chan Envelope
	// Closed is closed once the read loop observes the connection end.
	Closed chan struct{}
}

// NewConnection starts the read and write pumps for conn and returns the
// Connection handle used to send to and receive from it.
func NewConnection(clientID string, conn *websocket.Conn, log zerolog.Logger) *Connection {
	c := &Connection{
		ClientID:   clientID,
		conn:       conn,
		send:       make(chan []byte, 16),
		log:        log,
		Operations: make(chan Envelope, 16),
		Closed:     make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *Connection) readLoop() {
	defer close(c.Closed)
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Str("client_id", c.ClientID).Msg("transport: unexpected close")
			}
			return
		}
		env, err := Decode(buf)
		if err != nil {
			c.log.Warn().Err(err).Str("client_id", c.ClientID).Msg("transport: dropping undecodable message")
			continue
		}
		c.Operations <- env
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn().Err(err).Str("client_id", c.ClientID).Msg("transport: write failed")
				return
			}
		case <-c.Closed:
			return
		}
	}
}

// WriteInit sends the initial document snapshot after the connection is
// accepted.
func (c *Connection) WriteInit(revision int, content string) error {
	return c.write(Envelope{Type: MsgInit, Revision: revision, Content: content})
}

// WriteAck confirms the client's outstanding operation has been accepted.
func (c *Connection) WriteAck(revision int) error {
	return c.write(Envelope{Type: MsgAck, Revision: revision})
}

// WriteOperation sends an accepted operation, either broadcast from another
// client or this one's own accepted submission.
func (c *Connection) WriteOperation(clientID string, revision int, op *ot.WrappedOperation) error {
	return c.write(Envelope{Type: MsgOperation, ClientID: clientID, Revision: revision, Op: op})
}

func (c *Connection) write(env Envelope) error {
	b, err := env.Encode()
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	case <-c.Closed:
		return xerrors.Errorf("transport: connection closed")
	}
}

// Close stops the write pump and closes the underlying websocket.
func (c *Connection) Close() error {
	close(c.send)
	return c.conn.Close()
}

// SendOperation implements otclient.TransportAdapter for a local in-process
// client driving this Connection directly. It writes op as an operation
// envelope tagged with this Connection's ClientID.
func (c *Connection) SendOperation(revision int, op *ot.WrappedOperation) error {
	return c.WriteOperation(c.ClientID, revision, op)
}
