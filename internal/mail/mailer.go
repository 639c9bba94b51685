// Package mail defines the mailer collaborator. The transport mechanics
// (IMAP/SMTP, MIME parsing) live behind the Mailer interface; the engine
// only consumes parsed inbound messages and hands off outbound ones.
package mail

import (
	"context"
	"time"
)

// Attachment is a decoded mail attachment.
type Attachment struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Data      string `json:"data"`
}

// InboundEmail is one parsed message pulled from the mailbox. BodyText
// has quoted reply text stripped; FullBodyText is the raw text part.
type InboundEmail struct {
	UniqueID     string
	Subject      string
	BodyText     string
	FullBodyText string
	SenderEmail  string
	SenderName   string
	ReceivedAt   *time.Time
	MessageID    string
	InReplyTo    string
	References   []string
	RawHeaders   map[string]string
	Attachments  []Attachment
}

// OutboundMessage is a reply to deliver on the ticket's thread.
type OutboundMessage struct {
	Recipient  string
	Subject    string
	Body       string
	ReplyTo    string
	References []string
	// Attachments maps filename to data URI.
	Attachments map[string]string
}

// Mailer pulls inbound messages and sends threaded replies. Send returns
// the generated message id, or empty when the transport could not assign
// one.
type Mailer interface {
	Pull(ctx context.Context, max int) ([]InboundEmail, error)
	Send(ctx context.Context, msg OutboundMessage) (string, error)
}
