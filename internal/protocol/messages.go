package protocol

import (
	"encoding/json"

	"tycoon.ai/internal/sim/command"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	ServerTick      uint64 `json:"server_tick"`
}

// STATE_REQ (client -> server): ask for a fresh snapshot.
type StateReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
}

// STATE (server -> client). State is kept raw so the receiver can validate the document
// against the state schema before decoding it.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ReqID           string          `json:"req_id"`
	State           json.RawMessage `json:"state"`
}

// CMD (client -> server): one mutating command.
type CmdMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ReqID           string          `json:"req_id"`
	Command         command.Command `json:"command"`
}

// ACK (server -> client) answers STATE_REQ failures and every CMD.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// Err converts a rejected ack into an *Error; accepted acks yield nil.
func (a AckMsg) Err() error {
	if a.Accepted {
		return nil
	}
	code := a.Code
	if code == "" {
		code = ErrInternal
	}
	return &Error{Code: code, Message: a.Message}
}
