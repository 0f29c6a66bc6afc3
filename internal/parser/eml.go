package parser

import (
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"strings"

	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/felo/warranty-tracker/internal/purchase"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ParseEMLFile parses an .eml file and returns a ParsedEmail
func ParseEMLFile(filePath string) (*ParsedEmail, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ParseEML(f)
}

// ParseEML parses an email from a reader
func ParseEML(r io.Reader) (*ParsedEmail, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	header := mr.Header
	parsed := &ParsedEmail{
		MessageID:  strings.TrimSpace(header.Get("Message-Id")),
		Subject:    decodeMIMEWord(header.Get("Subject")),
		DateHeader: strings.TrimSpace(header.Get("Date")),
	}

	if fromAddrs, err := header.AddressList("From"); err == nil && len(fromAddrs) > 0 {
		parsed.Sender = fromAddrs[0].Address
		parsed.SenderName = fromAddrs[0].Name
	} else {
		// Malformed From headers still carry a usable domain more often
		// than not
		parsed.Sender = strings.TrimSpace(header.Get("From"))
	}

	if toAddrs, err := header.AddressList("To"); err == nil {
		for _, addr := range toAddrs {
			parsed.Recipients = append(parsed.Recipients, addr.Address)
		}
	}

	if date, err := header.Date(); err == nil {
		parsed.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body: %w", err)
			}

			if strings.HasPrefix(contentType, "text/plain") {
				// Keep the first plain part; multipart/alternative may repeat it
				if parsed.BodyText == "" {
					parsed.BodyText = string(body)
				}
			} else if strings.HasPrefix(contentType, "text/html") {
				if parsed.BodyHTML == "" {
					parsed.BodyHTML = string(body)
				}
			}

		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			size, err := io.Copy(io.Discard, part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment: %w", err)
			}

			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        size,
			})
		}
	}

	return parsed, nil
}

// Body returns the plain text body, falling back to the HTML part
// converted to text
func (p *ParsedEmail) Body() string {
	if strings.TrimSpace(p.BodyText) != "" {
		return p.BodyText
	}
	return purchase.HTMLToText(p.BodyHTML)
}

// From returns the sender formatted as an address header value
func (p *ParsedEmail) From() string {
	if p.Sender == "" {
		return ""
	}
	if !strings.Contains(p.Sender, "@") {
		return p.Sender
	}
	return (&mail.Address{Name: p.SenderName, Address: p.Sender}).String()
}

// RawEmail converts the message into the purchase parser's input
func (p *ParsedEmail) RawEmail(id string) purchase.RawEmail {
	return purchase.RawEmail{
		ID:      id,
		Subject: p.Subject,
		From:    p.From(),
		Date:    p.DateHeader,
		Body:    p.Body(),
	}
}

// decodeMIMEWord decodes MIME-encoded words (RFC 2047)
// Example: =?UTF-8?Q?Invitaci=C3=B3n?= -> Invitación
func decodeMIMEWord(s string) string {
	dec := &mime.WordDecoder{CharsetReader: charset.Reader}
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		// If decoding fails, return original string
		return s
	}
	return decoded
}
