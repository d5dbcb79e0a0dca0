package signaling

import (
	"encoding/json"
	"errors"
	"time"
)

// Wire message types. Offer, answer and candidate messages are relayed
// verbatim to Target with From filled in by the server.
const (
	TypeRegister         = "register"
	TypeRegistered       = "registered"
	TypeListHosts        = "list-hosts"
	TypeHosts            = "hosts"
	TypeHostsUpdated     = "hosts-updated"
	TypeHostDisconnected = "host-disconnected"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
)

// Role is the part a client plays: a host streams a capture device, a
// controller views it.
type Role string

const (
	RoleHost       Role = "host"
	RoleController Role = "controller"
)

func (r Role) valid() bool {
	return r == RoleHost || r == RoleController
}

var errBadRegister = errors.New("register needs id and clientType")

// Message is the JSON envelope for every signaling exchange. Only the
// fields relevant to Type are set.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Role      Role            `json:"clientType,omitempty"`
	From      string          `json:"from,omitempty"`
	Target    string          `json:"target,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	List      []HostInfo      `json:"list,omitempty"`
	HostID    string          `json:"hostId,omitempty"`
	Msg       string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// HostInfo is one entry of the host list sent to controllers.
type HostInfo struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}

func registerMsg(id string, role Role) Message {
	return Message{Type: TypeRegister, ID: id, Role: role}
}

func signalMsg(typ, target string, payload json.RawMessage) Message {
	return Message{Type: typ, Target: target, Payload: payload}
}

func errorMsg(text string) Message {
	return Message{Type: TypeError, Msg: text}
}

func heartbeat(typ string) Message {
	return Message{Type: typ, Timestamp: time.Now().UnixMilli()}
}

// checkRegister reports whether m is a well-formed registration.
func (m Message) checkRegister() error {
	if m.ID == "" || !m.Role.valid() {
		return errBadRegister
	}
	return nil
}

// relayed reports whether the server forwards m to another client.
func (m Message) relayed() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// forwarded returns the copy of m delivered to Target.
func (m Message) forwarded(from string) Message {
	m.From = from
	m.Target = ""
	return m
}
