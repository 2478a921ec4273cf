package entity

import "time"

// OutboundMessageQueued is raised when a lead should receive a message.
type OutboundMessageQueued struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Address    string    `json:"address,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ToastStatus string

const (
	ToastSending ToastStatus = "sending"
	ToastSent    ToastStatus = "sent"
)

type Toast struct {
	EventID   string      `json:"event_id"`
	Recipient string      `json:"recipient"`
	Message   string      `json:"message"`
	Status    ToastStatus `json:"status"`
}

// Message is an e-mail delivered by the notifier.
type Message struct {
	Type        string
	Subject     string
	Message     string
	ContentType string
	Recipients  []string
}
