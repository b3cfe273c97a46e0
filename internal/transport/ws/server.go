// Package ws carries the domain protocol over websockets: Server exposes a domain store to
// remote bots and Client is the bot-side view of such a server.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Backend is the store a Server exposes.
type Backend interface {
	Snapshot(ctx context.Context) (*state.Snapshot, error)
	Execute(ctx context.Context, c command.Command) error
	Tick() uint64
}

// DefaultReadTimeout is how long a session may stay silent. Pings and pongs count as
// traffic, so a client that pings more often than this survives long tick intervals.
const DefaultReadTimeout = 120 * time.Second

type Server struct {
	backend Backend
	log     *log.Logger

	// ReadTimeout drops a session that sends nothing, not even a ping, for this long.
	ReadTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewServer(b Backend, logger *log.Logger) *Server {
	return &Server{
		backend:     b,
		log:         logger,
		ReadTimeout: DefaultReadTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024,
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin:       func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, name := s.handshake(conn)
		if session == "" {
			return
		}
		s.logf("session open: id=%s agent=%s", session, name)
		defer s.logf("session closed: id=%s", session)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		timeout := s.ReadTimeout
		if timeout <= 0 {
			timeout = DefaultReadTimeout
		}
		extend := func() { _ = conn.SetReadDeadline(time.Now().Add(timeout)) }
		conn.SetPingHandler(func(data string) error {
			extend()
			err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
			if err == websocket.ErrCloseSent {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) {
				return nil
			}
			return err
		})
		conn.SetPongHandler(func(string) error {
			extend()
			return nil
		})

		// Requests are served in arrival order, one at a time, so a client that awaits each
		// reply observes its own commands in order.
		for {
			extend()
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := s.serve(ctx, msg)
			if reply == nil {
				continue
			}
			if err := writeJSON(conn, reply); err != nil {
				return
			}
		}
	}
}

func (s *Server) serve(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.reject("", &protocol.Error{Code: protocol.ErrProtoBadRequest, Message: err.Error()})
	}
	if !protocol.IsSupportedVersion(base.ProtocolVersion) {
		return s.reject(base.ReqID, protocol.Errorf(protocol.ErrProtoVersion, "unsupported protocol_version %q", base.ProtocolVersion))
	}

	switch base.Type {
	case protocol.TypeStateReq:
		snap, err := s.backend.Snapshot(ctx)
		if err != nil {
			return s.reject(base.ReqID, err)
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			return s.reject(base.ReqID, err)
		}
		return protocol.StateMsg{
			Type:            protocol.TypeState,
			ProtocolVersion: protocol.Version,
			ReqID:           base.ReqID,
			State:           raw,
		}

	case protocol.TypeCmd:
		if err := protocol.Validate(protocol.SchemaCmd, msg); err != nil {
			return s.reject(base.ReqID, err)
		}
		var cmd protocol.CmdMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			return s.reject(base.ReqID, &protocol.Error{Code: protocol.ErrProtoBadRequest, Message: err.Error()})
		}
		if err := s.backend.Execute(ctx, cmd.Command); err != nil {
			return s.reject(cmd.ReqID, err)
		}
		return protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          cmd.ReqID,
			Accepted:        true,
			ServerTick:      s.backend.Tick(),
		}

	default:
		return s.reject(base.ReqID, protocol.Errorf(protocol.ErrProtoBadRequest, "unexpected message type %q", base.Type))
	}
}

func (s *Server) reject(reqID string, err error) protocol.AckMsg {
	code, msg := protocol.ErrInternal, err.Error()
	var pe *protocol.Error
	if errors.As(err, &pe) {
		code, msg = pe.Code, pe.Message
	}
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          reqID,
		Accepted:        false,
		Code:            code,
		Message:         msg,
		ServerTick:      s.backend.Tick(),
	}
}

func (s *Server) handshake(conn *websocket.Conn) (session, name string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", ""
	}
	if !protocol.IsSupportedVersion(hello.ProtocolVersion) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", ""
	}
	if hello.AgentName == "" {
		hello.AgentName = "bot"
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		ServerTick:      s.backend.Tick(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", ""
	}
	return welcome.SessionID, hello.AgentName
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
