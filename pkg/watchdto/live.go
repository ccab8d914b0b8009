package watchdto

import "encoding/json"

// Live feed message types.
const (
	LiveWatch   = "watch"
	LiveUnwatch = "unwatch"
	LiveRound   = "round"
	LiveError   = "error"
	LiveHello   = "hello"
)

// LiveRequest is sent by a WebSocket client.
type LiveRequest struct {
	Type    string `json:"type"`
	RoundID string `json:"roundId,omitempty"`
	Search  string `json:"search,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// LiveMessage is pushed by the server.
type LiveMessage struct {
	Type    string          `json:"type"`
	ConnID  string          `json:"connId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
