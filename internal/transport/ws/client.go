package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

var ErrClosed = errors.New("ws: connection closed")

// DefaultPingInterval keeps a session alive well inside the server's DefaultReadTimeout.
const DefaultPingInterval = 30 * time.Second

type Options struct {
	// PingInterval is how often the client pings an otherwise idle session.
	// Zero uses DefaultPingInterval; a negative value disables pings.
	PingInterval time.Duration
}

// Client is a remote domain. Every call sends one request and blocks until the server
// answers it or ctx is done.
type Client struct {
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []byte
	err     error

	done chan struct{}
}

// Dial connects and performs the HELLO/WELCOME handshake.
func Dial(ctx context.Context, url, agentName string) (*Client, error) {
	return DialWith(ctx, url, agentName, Options{})
}

func DialWith(ctx context.Context, url, agentName string, opts Options) (*Client, error) {
	d := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: agentName}
	if err := writeJSON(conn, hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("welcome: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("welcome: unexpected message %s", truncate(msg, 200))
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:      conn,
		sessionID: welcome.SessionID,
		pending:   map[string]chan []byte{},
		done:      make(chan struct{}),
	}
	go c.readLoop()

	every := opts.PingInterval
	if every == 0 {
		every = DefaultPingInterval
	}
	if every > 0 {
		go c.pingLoop(every)
	}
	return c, nil
}

func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

// Snapshot requests the current state. The document is checked against the state schema
// and the snapshot invariants before it is returned.
func (c *Client) Snapshot(ctx context.Context) (*state.Snapshot, error) {
	reqID := uuid.NewString()
	reply, err := c.roundTrip(ctx, reqID, protocol.StateReqMsg{
		Type:            protocol.TypeStateReq,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
	})
	if err != nil {
		return nil, err
	}
	base, err := protocol.DecodeBase(reply)
	if err != nil {
		return nil, err
	}
	switch base.Type {
	case protocol.TypeState:
		var sm protocol.StateMsg
		if err := json.Unmarshal(reply, &sm); err != nil {
			return nil, err
		}
		if err := protocol.ValidateState(sm.State); err != nil {
			return nil, err
		}
		var s state.Snapshot
		if err := json.Unmarshal(sm.State, &s); err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return &s, nil
	case protocol.TypeAck:
		var ack protocol.AckMsg
		if err := json.Unmarshal(reply, &ack); err != nil {
			return nil, err
		}
		if err := ack.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("ws: accepted ack in reply to %s", protocol.TypeStateReq)
	default:
		return nil, fmt.Errorf("ws: unexpected reply type %q", base.Type)
	}
}

// Execute sends one command and returns the server's rejection, if any, as *protocol.Error.
func (c *Client) Execute(ctx context.Context, cmd command.Command) error {
	reqID := uuid.NewString()
	reply, err := c.roundTrip(ctx, reqID, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Command:         cmd,
	})
	if err != nil {
		return err
	}
	var ack protocol.AckMsg
	if err := json.Unmarshal(reply, &ack); err != nil {
		return err
	}
	if ack.Type != protocol.TypeAck {
		return fmt.Errorf("ws: unexpected reply type %q", ack.Type)
	}
	return ack.Err()
}

func (c *Client) roundTrip(ctx context.Context, reqID string, msg any) ([]byte, error) {
	ch := make(chan []byte, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[reqID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := writeJSON(c.conn, msg)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply, ok := <-ch:
		if !ok {
			return nil, c.closedErr()
		}
		return reply, nil
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		id := base.ReqID
		if base.Type == protocol.TypeAck {
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				continue
			}
			id = ack.AckFor
		}
		c.mu.Lock()
		ch := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if ch != nil {
			ch <- msg
		}
	}
}

func (c *Client) pingLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
