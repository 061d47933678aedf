package client

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/packets"
)

// Client represents one connected program (game client, admin tool or updater)
// and owns the framing of envelopes over its TCP connection.
type Client struct {
	connection net.Conn
	remoteAddr string

	// Guards writes so that frames sent from different goroutines never interleave.
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	// Set once the session layer assigns an id to the connection.
	SessionID int
	// Debugging information attached to every log line about this client.
	DebugTags map[string]interface{}
}

func NewClient(connection net.Conn) *Client {
	remoteAddr := connection.RemoteAddr().String()
	return &Client{
		connection: connection,
		remoteAddr: remoteAddr,
		SessionID:  -1,
		DebugTags:  map[string]interface{}{"remote": remoteAddr},
	}
}

func (c *Client) RemoteAddr() string { return c.remoteAddr }

// Log returns an entry of logger carrying the client's DebugTags.
func (c *Client) Log(logger *logrus.Logger) *logrus.Entry {
	return logger.WithFields(logrus.Fields(c.DebugTags))
}

// ReadEnvelope blocks until a full frame has been read from the connection.
// The returned envelope is stamped with the client's session id.
func (c *Client) ReadEnvelope() (*packets.Envelope, error) {
	header := make([]byte, packets.HeaderSize)
	if _, err := io.ReadFull(c.connection, header); err != nil {
		return nil, err
	}
	size, class, typ, err := packets.ParseHeader(header)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, size-packets.HeaderSize)
	if _, err := io.ReadFull(c.connection, payload); err != nil {
		return nil, fmt.Errorf("error reading %d byte payload from %s: %w", len(payload), c.remoteAddr, err)
	}
	return &packets.Envelope{
		Class:     class,
		Type:      typ,
		SessionID: c.SessionID,
		Payload:   payload,
	}, nil
}

// Send frames the envelope and writes it to the connection. Envelopes sent
// from one goroutine arrive in the order they were sent.
func (c *Client) Send(env *packets.Envelope) error {
	frame, err := packets.MarshalFrame(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transmit(frame)
}

// transmit writes the contents of data to the TCP connection until every byte was written.
func (c *Client) transmit(data []byte) error {
	for bytesSent := 0; bytesSent < len(data); {
		n, err := c.connection.Write(data[bytesSent:])
		if err != nil {
			return fmt.Errorf("failed to send to client %v: %w", c.remoteAddr, err)
		}
		bytesSent += n
	}
	return nil
}

// Close the TCP connection. Only the first call has an effect.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.connection.Close()
	})
	return c.closeErr
}
