package models

// MessageKind classifies a normalized inbound webhook event.
type MessageKind string

// Inbound message kinds.
const (
	MessageKindText   MessageKind = "text"
	MessageKindButton MessageKind = "button"
	MessageKindList   MessageKind = "list"
	MessageKindOrder  MessageKind = "order"
	MessageKindImage  MessageKind = "image"
	MessageKindVideo  MessageKind = "video"
)

// IncomingMessage is the platform-independent form of one inbound webhook
// event, produced by the webhook processor and consumed by the engine.
type IncomingMessage struct {
	BusinessID         string      `json:"business_id"`
	PhoneNumber        string      `json:"phone_number"`
	CustomerName       string      `json:"customer_name,omitempty"`
	Kind               MessageKind `json:"kind"`
	Content            string      `json:"content,omitempty"`
	InteractivePayload string      `json:"interactive_payload,omitempty"`
	Order              *OrderEvent `json:"order,omitempty"`
}

// OrderEvent carries the line items of a catalog "add to cart" event.
type OrderEvent struct {
	CatalogID string           `json:"catalog_id,omitempty"`
	Lines     []OrderEventLine `json:"lines"`
}

// OrderEventLine is one requested line item from the catalog event.
type OrderEventLine struct {
	ItemID   string  `json:"item_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

// IsInteractive reports whether the message is a button or list reply.
func (m IncomingMessage) IsInteractive() bool {
	return m.Kind == MessageKindButton || m.Kind == MessageKindList
}
