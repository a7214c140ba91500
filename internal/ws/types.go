package ws

// Message is the JSON envelope for non-audio websocket traffic.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
