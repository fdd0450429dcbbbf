package bus

import "log/slog"

const inboundBuffer = 256

// MessageBus carries inbound transport events to the core's consumer loop.
// Publishing never blocks: when the buffer is full the event is dropped and
// logged, matching the best-effort transport contract.
type MessageBus struct {
	inbound chan Inbound
}

// New creates a message bus with a bounded inbound buffer.
func New() *MessageBus {
	return &MessageBus{
		inbound: make(chan Inbound, inboundBuffer),
	}
}

// PublishInbound enqueues an inbound event for the consumer.
func (b *MessageBus) PublishInbound(msg Inbound) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound bus full, dropping event",
			"sender_id", msg.SenderID, "kind", msg.Kind)
	}
}

// Inbound returns the receive side of the inbound queue.
func (b *MessageBus) Inbound() <-chan Inbound {
	return b.inbound
}

// Close shuts the inbound queue. Publish after Close panics; callers stop
// producers first.
func (b *MessageBus) Close() {
	close(b.inbound)
}
