package liveserver

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MessageType constants
const (
	TypeTick    = "tick"
	TypeReceipt = "receipt"
)

// NewMessage creates a message of the given type
func NewMessage(msgType string, data interface{}) Message {
	return Message{Type: msgType, Data: data}
}

// NewTickMessage wraps a price tick for broadcast
func NewTickMessage(data interface{}) Message {
	return NewMessage(TypeTick, data)
}

// NewReceiptMessage wraps an accepted-ticket receipt for broadcast
func NewReceiptMessage(data interface{}) Message {
	return NewMessage(TypeReceipt, data)
}
