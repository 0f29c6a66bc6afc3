// Package notify defines the interface for reminder delivery backends.
package notify

import "context"

// Message is a notification ready for delivery
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Provider delivers notifications. Implementations must be safe for use
// by a single reminder loop; they are not required to be concurrent.
type Provider interface {
	// Send delivers msg, returning an error when delivery fails
	Send(ctx context.Context, msg *Message) error

	// Name returns the provider name used in logs and config
	Name() string
}
