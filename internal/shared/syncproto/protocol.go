// Package syncproto is the wire protocol of the order sync channel, shared by the
// server hub and the client transport.
package syncproto

import "encoding/json"

const (
	// MethodUpdateOrders is pushed to clients with a change token as payload.
	MethodUpdateOrders = "UpdateOrders"
	// MethodRequestBroadcast asks the server to push UpdateOrders to everyone.
	MethodRequestBroadcast = "RequestBroadcast"
)

// Frame is the JSON envelope exchanged over the websocket.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
