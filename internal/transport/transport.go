// Package transport submits single messages to the mail provider.
package transport

import (
	"context"
	"fmt"
)

type Message struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	HTML      string
	// Tags are attached to the provider message for event correlation.
	Tags map[string]string
}

// Sender delivers one message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SendError is a provider rejection.
type SendError struct {
	Provider string
	Code     string
	Message  string
}

func (e *SendError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}
