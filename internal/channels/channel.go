// Package channels provides the transport abstraction connecting chat
// platforms to the broker via the message bus.
package channels

import (
	"context"

	"github.com/quantumpanel/keybot/internal/bus"
)

// Channel defines the interface that all transport implementations satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram").
	Name() string

	// Start begins listening for updates. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Notify delivers an outbound message to a recipient on this channel.
	Notify(ctx context.Context, msg bus.Outbound) error

	// IsRunning returns whether the channel is actively processing updates.
	IsRunning() bool
}

// BaseChannel provides shared state for channel implementations, which
// should embed it.
type BaseChannel struct {
	name    string
	bus     *bus.MessageBus
	running bool
}

// NewBaseChannel creates a BaseChannel bound to the message bus.
func NewBaseChannel(name string, msgBus *bus.MessageBus) *BaseChannel {
	return &BaseChannel{name: name, bus: msgBus}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// Bus returns the message bus reference.
func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

// HandleText publishes a plain chat message to the bus for session routing.
func (c *BaseChannel) HandleText(senderID int64, username, name, text string) {
	c.bus.PublishInbound(bus.Inbound{
		SenderID: senderID,
		Kind:     bus.KindText,
		Payload:  text,
		Username: username,
		Name:     name,
	})
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
