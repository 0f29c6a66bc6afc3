// Package stdout implements a Provider that prints notifications.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/felo/warranty-tracker/internal/notify"
)

// Provider writes notifications in a human-readable format
type Provider struct {
	writer io.Writer
}

// New creates a Provider that writes to os.Stdout
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a Provider that writes to w
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints msg. The plain-text body is preferred over HTML.
func (p *Provider) Send(_ context.Context, msg *notify.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	b.WriteString(body + "\n")
	b.WriteString("========================================\n")

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "stdout"
}
