package contact

import (
	"context"
	"strings"
)

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Trimmed returns m with surrounding whitespace removed from every field.
func (m Message) Trimmed() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Subject: strings.TrimSpace(m.Subject),
		Message: strings.TrimSpace(m.Message),
	}
}

func (m Message) IsEmpty() bool {
	return m.Name == "" && m.Email == "" && m.Subject == "" && m.Message == ""
}

// Sender delivers a message to the content backend.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
