package model

import "encoding/json"

type MessageType string

const (
	MessageTypeRegister      MessageType = "register"
	MessageTypeRegistered    MessageType = "registered"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeOrdersChanged MessageType = "orders_changed"
	MessageTypeOrderCreated  MessageType = "order_created"
)

// --- WebSocket Messages ---

// WSMessage is the frame exchanged with the order feed's notification hook.
type WSMessage struct {
	Type     MessageType     `json:"type"`
	AgentKey string          `json:"agent_key,omitempty"`
	Order    json.RawMessage `json:"order,omitempty"` // Keep raw to parse into specific structs
	Error    string          `json:"error,omitempty"`
}
