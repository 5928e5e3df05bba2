package transport

import (
	"context"
)

// Message is one outbound email handed to the provider.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string
	IsHTML  bool
}

// Transport is the email provider collaborator. Send returns the provider
// message ID on success.
type Transport interface {
	Send(ctx context.Context, msg *Message) (string, error)
}
