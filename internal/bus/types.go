// Package bus defines the message types exchanged between the broker core and
// the messaging transport, plus a small in-process bus for inbound events.
package bus

import "context"

// EventKind classifies an inbound transport event.
type EventKind string

const (
	KindCommand  EventKind = "command"
	KindText     EventKind = "text"
	KindCallback EventKind = "callback"
	KindPhoto    EventKind = "photo"
)

// Inbound is an event received from the transport (one Telegram update).
type Inbound struct {
	SenderID int64     `json:"sender_id"`
	Kind     EventKind `json:"kind"`
	Payload  string    `json:"payload"`            // command name, message text, or callback data
	Username string    `json:"username,omitempty"` // sender's @username, if any
	Name     string    `json:"name,omitempty"`     // sender's display name
}

// Button is one inline action attached to an outbound message. Data is the
// callback payload echoed back when the recipient presses it.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Outbound is a message for the transport to deliver to one recipient.
// ImagePath and DocumentPath are local file paths; the transport falls back
// to plain text when the file is missing.
type Outbound struct {
	RecipientID  int64      `json:"recipient_id"`
	Text         string     `json:"text"`
	ImagePath    string     `json:"image_path,omitempty"`
	DocumentPath string     `json:"document_path,omitempty"`
	Buttons      [][]Button `json:"buttons,omitempty"`
	Markdown     bool       `json:"markdown,omitempty"`
}

// Notifier delivers outbound messages. Delivery is best-effort and
// at-most-once: a non-nil error means this recipient was unreachable, and the
// caller decides whether that matters.
type Notifier interface {
	Notify(ctx context.Context, msg Outbound) error
}
