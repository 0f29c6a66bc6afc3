package parser

import "time"

// ParsedEmail is a decoded RFC 5322 message reduced to what the purchase
// pipeline needs
type ParsedEmail struct {
	MessageID  string
	Subject    string
	Sender     string
	SenderName string
	Recipients []string
	// Date is zero when the header is missing or unparsable; DateHeader
	// keeps the raw text either way
	Date        time.Time
	DateHeader  string
	BodyText    string
	BodyHTML    string
	Attachments []ParsedAttachment
}

// ParsedAttachment describes an attachment without holding its content
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Size        int64
}
